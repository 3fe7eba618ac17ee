package repository

import (
	"context"
	"strings"
)

// AliasService manages per-guild sound shortcuts. Names are stored
// lower-cased and trimmed.
type AliasService struct {
	repo *Repo
}

func NewAliasService(repo *Repo) *AliasService {
	return &AliasService{repo: repo}
}

func aliasName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (a *AliasService) Create(ctx context.Context, guild, author, name, sound string) error {
	return a.repo.AddAlias(ctx, &Alias{
		GuildID: guild, Author: author, Name: aliasName(name), Sound: strings.TrimSpace(sound),
	})
}

func (a *AliasService) Remove(ctx context.Context, guild, name string) (int64, error) {
	return a.repo.RemoveAlias(ctx, guild, aliasName(name))
}

func (a *AliasService) Use(ctx context.Context, guild, name string) (*Alias, error) {
	return a.repo.FindAlias(ctx, guild, aliasName(name))
}

func (a *AliasService) List(ctx context.Context, guild string) ([]Alias, error) {
	return a.repo.ListAliases(ctx, guild)
}
