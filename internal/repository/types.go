package repository

import "database/sql"

type Repo struct {
	db *sql.DB
}

// Alias is a guild-specific shortcut to a sound name.
type Alias struct {
	ID      int64
	GuildID string
	Author  string
	Name    string
	Sound   string
}
