package inmemdb

import (
	"context"

	"github.com/trezcool/classbook/core/roster"
)

type rosterProvider struct {
	db *DB
}

var _ roster.Provider = (*rosterProvider)(nil) // interface compliance check

func NewRosterProvider(db *DB) roster.Provider {
	return &rosterProvider{db: db}
}

func (p *rosterProvider) GroupRoster(_ context.Context, groupID string) ([]string, error) {
	p.db.mutex.RLock()
	defer p.db.mutex.RUnlock()
	return p.db.roster(groupID), nil
}
