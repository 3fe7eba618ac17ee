package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMd(t *testing.T) {
	assert.Equal(t, `air\_horn \*loud\*`, EscapeMd("air_horn *loud*"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc…", Truncate("abcdef", 4))
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name              string
		total, page, size int
		begin, end, pages int
		ok                bool
	}{
		{"empty", 0, 1, 10, 0, 0, 1, true},
		{"first", 25, 1, 10, 0, 10, 3, true},
		{"last partial", 25, 3, 10, 20, 25, 3, true},
		{"past end", 25, 4, 10, 0, 0, 3, false},
		{"zero page", 5, 0, 10, 0, 0, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, e, p, ok := PageBounds(tt.total, tt.page, tt.size)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.pages, p)
			if ok {
				assert.Equal(t, tt.begin, b)
				assert.Equal(t, tt.end, e)
			}
		})
	}
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 sound", Plural(1, "sound", "sounds"))
	assert.Equal(t, "3 sounds", Plural(3, "sound", "sounds"))
}
