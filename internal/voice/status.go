package voice

import "fmt"

type Status int

const (
	StatusDisconnected Status = iota
	StatusJoining
	StatusWaiting
	StatusPlaying
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusJoining:
		return "Joining"
	case StatusWaiting:
		return "Waiting"
	case StatusPlaying:
		return "Playing"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// DeriveStatus computes the session status from what it holds. Joining
// only applies while a join is in flight.
func DeriveStatus(hasConn, hasSound, joining bool) Status {
	switch {
	case joining:
		return StatusJoining
	case !hasConn:
		return StatusDisconnected
	case hasSound:
		return StatusPlaying
	default:
		return StatusWaiting
	}
}
