package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/schedule"
)

func Test_pqErrorCode(t *testing.T) {
	unique := &pq.Error{Code: pqUniqueViolation}
	assert.Equal(t, pqUniqueViolation, pqErrorCode(unique))
	assert.Equal(t, pqUniqueViolation, pqErrorCode(errors.Wrap(unique, "inserting")))
	assert.Equal(t, pqForeignKeyViolation, pqErrorCode(&pq.Error{Code: pqForeignKeyViolation}))
	assert.Equal(t, "", pqErrorCode(errors.New("boom")))
	assert.Equal(t, "", pqErrorCode(nil))
}

func Test_trapNoRowsErr(t *testing.T) {
	err := trapNoRowsErr(sql.ErrNoRows, schedule.ErrNotFound, "getting schedule")
	assert.Equal(t, schedule.ErrNotFound, err)

	err = trapNoRowsErr(errors.Wrap(sql.ErrNoRows, "scanning"), schedule.ErrNotFound, "getting schedule")
	assert.True(t, core.IsNotFound(err))

	boom := errors.New("connection reset")
	err = trapNoRowsErr(boom, schedule.ErrNotFound, "getting schedule")
	assert.True(t, core.IsStorage(err))
	assert.False(t, core.IsNotFound(err))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, "getting schedule: connection reset", err.Error())
}

type txMock struct{ rollbacks int }

func (m *txMock) Rollback() error {
	m.rollbacks++
	return sql.ErrTxDone
}

func Test_rollback(t *testing.T) {
	tx := new(txMock)
	rollback(tx)
	assert.Equal(t, 1, tx.rollbacks)
}
