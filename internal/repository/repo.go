package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sonroyaalmerol/kumaboard/internal/player"
)

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) LoadPlayerStates(ctx context.Context) ([]player.SaveState, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT guild_id, join_and_play, COALESCE(bound_voice_channel_id, ''), COALESCE(feedback_channel_id, '')
	FROM guild_players ORDER BY guild_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []player.SaveState
	for rows.Next() {
		var st player.SaveState
		var jp int
		if err := rows.Scan(&st.ID, &jp, &st.BoundVoiceChannelID, &st.FeedbackChannelID); err != nil {
			return nil, err
		}
		st.JoinAndPlay = jp != 0
		out = append(out, st)
	}
	return out, rows.Err()
}

// SavePlayerStates replaces the stored registry with states.
func (r *Repo) SavePlayerStates(ctx context.Context, states []player.SaveState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM guild_players`); err != nil {
		return fmt.Errorf("clear guild players: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO guild_players(guild_id, join_and_play, bound_voice_channel_id, feedback_channel_id)
	VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range states {
		if _, err := stmt.ExecContext(ctx, st.ID, boolToInt(st.JoinAndPlay),
			nullString(st.BoundVoiceChannelID), nullString(st.FeedbackChannelID)); err != nil {
			return fmt.Errorf("insert guild player %s: %w", st.ID, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) AddAlias(ctx context.Context, a *Alias) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sound_aliases(guild_id, author_id, name, sound) VALUES (?,?,?,?)
		 ON CONFLICT(guild_id, name) DO UPDATE SET sound=excluded.sound, author_id=excluded.author_id`,
		a.GuildID, a.Author, a.Name, a.Sound,
	)
	return err
}

func (r *Repo) RemoveAlias(ctx context.Context, guild, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sound_aliases WHERE guild_id=? AND name=?`, guild, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repo) FindAlias(ctx context.Context, guild, name string) (*Alias, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, guild_id, author_id, name, sound FROM sound_aliases WHERE guild_id=? AND name=?`, guild, name)
	var a Alias
	if err := row.Scan(&a.ID, &a.GuildID, &a.Author, &a.Name, &a.Sound); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) ListAliases(ctx context.Context, guild string) ([]Alias, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, guild_id, author_id, name, sound FROM sound_aliases WHERE guild_id=? ORDER BY name ASC`, guild)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.GuildID, &a.Author, &a.Name, &a.Sound); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) CacheTouch(ctx context.Context, hash string, size int64, created bool) error {
	now := time.Now().UnixNano()
	if created {
		_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO file_cache(hash,bytes,accessed_at,created_at) VALUES (?,?,?,COALESCE((SELECT created_at FROM file_cache WHERE hash=?),?))`,
			hash, size, now, hash, now)
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE file_cache SET accessed_at=? WHERE hash=?`, now, hash)
	return err
}

func (r *Repo) CacheRemove(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM file_cache WHERE hash=?`, hash)
	return err
}

func (r *Repo) CacheTotalBytes(ctx context.Context) (int64, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(bytes),0) FROM file_cache`)
	var v int64
	if err := row.Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (r *Repo) CacheOldest(ctx context.Context) (string, error) {
	row := r.db.QueryRowContext(ctx, `SELECT hash FROM file_cache ORDER BY accessed_at ASC LIMIT 1`)
	var hash string
	if err := row.Scan(&hash); err != nil {
		return "", err
	}
	return hash, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
