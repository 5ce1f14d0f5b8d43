// Package stats aggregates attendance records into presence rates.
package stats

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
)

var errInvalidDimension = errors.New("invalid dimension, expected one of student, group, teacher")

// Dimension is what records are grouped by.
type Dimension string

const (
	DimStudent Dimension = "student"
	DimGroup   Dimension = "group"
	DimTeacher Dimension = "teacher"
)

func ParseDimension(s string) (Dimension, error) {
	switch dim := Dimension(core.CleanString(s, true /* lower */)); dim {
	case DimStudent, DimGroup, DimTeacher:
		return dim, nil
	}
	return "", core.NewValidationError(errInvalidDimension, core.FieldError{Field: "by", Error: errInvalidDimension.Error()})
}

// entityID returns the id rec is grouped under for dim.
func (dim Dimension) entityID(rec attendance.Record) string {
	switch dim {
	case DimStudent:
		return rec.StudentID
	case DimGroup:
		return rec.GroupID
	case DimTeacher:
		return rec.TeacherID
	}
	return ""
}

// scopedEntity returns the entity id scope pins down for dim, if any.
func (dim Dimension) scopedEntity(scope attendance.Scope) (string, bool) {
	switch s := scope.(type) {
	case attendance.ByStudent:
		return s.StudentID, dim == DimStudent
	case attendance.ByGroup:
		return s.GroupID, dim == DimGroup
	case attendance.ByTeacher:
		return s.TeacherID, dim == DimTeacher
	}
	return "", false
}

// Statistic is the attendance rate of one entity. It is computed, never stored.
type Statistic struct {
	Scope    Dimension `json:"scope"`
	EntityID string    `json:"entity_id"`
	Total    int       `json:"total"`
	Present  int       `json:"present"`
	Rate     float64   `json:"rate"`
}

// Rate returns present/total, or 0 when total is 0.
func Rate(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(present) / float64(total)
}

// Aggregate groups records by dim and computes their rates.
// Records without an id for dim are skipped.
// Statistics are sorted by rate (highest first), then entity id.
func Aggregate(records []attendance.Record, dim Dimension) []Statistic {
	byEntity := make(map[string]*Statistic)
	for _, rec := range records {
		id := dim.entityID(rec)
		if id == "" {
			continue
		}
		stat, ok := byEntity[id]
		if !ok {
			stat = &Statistic{Scope: dim, EntityID: id}
			byEntity[id] = stat
		}
		stat.Total++
		if rec.Attended {
			stat.Present++
		}
	}

	stats := make([]Statistic, 0, len(byEntity))
	for _, stat := range byEntity {
		stat.Rate = Rate(stat.Present, stat.Total)
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Rate != stats[j].Rate {
			return stats[i].Rate > stats[j].Rate
		}
		return stats[i].EntityID < stats[j].EntityID
	})
	return stats
}

// RecordReader reads the attendance ledger.
type RecordReader interface {
	QueryByDateRange(ctx context.Context, scope attendance.Scope, r core.DateRange) ([]attendance.Record, error)
}

type Aggregator struct {
	records RecordReader
}

func NewAggregator(records RecordReader) *Aggregator {
	return &Aggregator{records: records}
}

func (agg *Aggregator) ByStudent(ctx context.Context, r core.DateRange) ([]Statistic, error) {
	return agg.Compute(ctx, DimStudent, attendance.All{}, r)
}

func (agg *Aggregator) ByGroup(ctx context.Context, r core.DateRange) ([]Statistic, error) {
	return agg.Compute(ctx, DimGroup, attendance.All{}, r)
}

func (agg *Aggregator) ByTeacher(ctx context.Context, r core.DateRange) ([]Statistic, error) {
	return agg.Compute(ctx, DimTeacher, attendance.All{}, r)
}

// Compute aggregates the records of scope within r by dim.
// When scope pins the grouped entity and it has no records, its statistic
// is still returned with a zero rate.
func (agg *Aggregator) Compute(ctx context.Context, dim Dimension, scope attendance.Scope, r core.DateRange) ([]Statistic, error) {
	records, err := agg.records.QueryByDateRange(ctx, scope, r)
	if err != nil {
		return nil, errors.Wrap(err, "reading attendance records")
	}
	stats := Aggregate(records, dim)
	if id, ok := dim.scopedEntity(scope); ok && id != "" && len(stats) == 0 {
		stats = append(stats, Statistic{Scope: dim, EntityID: id})
	}
	return stats, nil
}
