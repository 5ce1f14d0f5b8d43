package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/classbook/core/roster"
)

type rosterProvider struct {
	db *sqlx.DB
}

var _ roster.Provider = (*rosterProvider)(nil) // interface compliance check

func NewRosterProvider(db *sqlx.DB) roster.Provider {
	return &rosterProvider{db: db}
}

func (p *rosterProvider) GroupRoster(ctx context.Context, groupID string) ([]string, error) {
	members := make([]string, 0)
	q := "SELECT student_id FROM group_students WHERE group_id = $1 ORDER BY student_id"
	if err := p.db.SelectContext(ctx, &members, q, groupID); err != nil {
		return nil, storageErr(err, "querying group roster")
	}
	return members, nil
}
