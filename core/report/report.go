// Package report shapes attendance for reading: per day, ranked, and per occurrence.
package report

import (
	"context"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/roster"
	"github.com/trezcool/classbook/core/schedule"
	"github.com/trezcool/classbook/core/session"
	"github.com/trezcool/classbook/core/stats"
)

// DaySummary is the attendance of one date.
type DaySummary struct {
	Date    civil.Date          `json:"date"`
	Present int                 `json:"present"`
	Absent  int                 `json:"absent"`
	Total   int                 `json:"total"`
	Rate    float64             `json:"rate"`
	Records []attendance.Record `json:"records"`
}

// Occurrence is the roll call coverage of one occurrence of a schedule.
type Occurrence struct {
	Date       civil.Date `json:"date"`
	Recorded   int        `json:"recorded"`
	RosterSize int        `json:"roster_size"`
	Present    int        `json:"present"`
	Complete   bool       `json:"complete"`
}

type (
	ScheduleFinder interface {
		Get(ctx context.Context, id string) (schedule.Schedule, error)
	}

	Reporter struct {
		records    stats.RecordReader
		schedules  ScheduleFinder
		roster     roster.Provider
		aggregator *stats.Aggregator
	}
)

func NewReporter(records stats.RecordReader, schedules ScheduleFinder, rosterProvider roster.Provider) *Reporter {
	return &Reporter{
		records:    records,
		schedules:  schedules,
		roster:     rosterProvider,
		aggregator: stats.NewAggregator(records),
	}
}

// DefaultScope is what a session sees when it does not pick a scope:
// teachers their own schedules, students themselves, anyone else everything.
func DefaultScope(sess session.Session) attendance.Scope {
	switch role := sess.PrimaryRole(); {
	case role == session.RoleTeacher:
		return attendance.ByTeacher{TeacherID: sess.UserID}
	case role == session.RoleStudent:
		return attendance.ByStudent{StudentID: sess.UserID}
	default:
		return attendance.All{}
	}
}

func scopeOrDefault(sess session.Session, scope attendance.Scope) attendance.Scope {
	if scope == nil {
		return DefaultScope(sess)
	}
	return scope
}

// Daily groups the records of scope within r by date, most recent first.
func (rep *Reporter) Daily(ctx context.Context, sess session.Session, scope attendance.Scope, r core.DateRange) ([]DaySummary, error) {
	records, err := rep.records.QueryByDateRange(ctx, scopeOrDefault(sess, scope), r)
	if err != nil {
		return nil, errors.Wrap(err, "reading attendance records")
	}

	byDate := make(map[civil.Date]*DaySummary)
	days := make([]civil.Date, 0)
	for _, rec := range records {
		day, ok := byDate[rec.Date]
		if !ok {
			day = &DaySummary{Date: rec.Date}
			byDate[rec.Date] = day
			days = append(days, rec.Date)
		}
		day.Total++
		if rec.Attended {
			day.Present++
		} else {
			day.Absent++
		}
		day.Records = append(day.Records, rec)
	}

	slices.SortFunc(days, func(a, b civil.Date) int { return b.DaysSince(a) })
	summaries := make([]DaySummary, 0, len(days))
	for _, d := range days {
		day := byDate[d]
		day.Rate = stats.Rate(day.Present, day.Total)
		summaries = append(summaries, *day)
	}
	return summaries, nil
}

// Ranking returns the statistics of scope within r by dim, highest rate first.
func (rep *Reporter) Ranking(
	ctx context.Context,
	sess session.Session,
	dim stats.Dimension,
	scope attendance.Scope,
	r core.DateRange,
) ([]stats.Statistic, error) {
	return rep.aggregator.Compute(ctx, dim, scopeOrDefault(sess, scope), r)
}

// Coverage reports, for every occurrence of a schedule within r (most recent first),
// how much of the group roster has been recorded.
func (rep *Reporter) Coverage(ctx context.Context, scheduleID string, r core.DateRange) ([]Occurrence, error) {
	sch, err := rep.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, errors.Wrap(err, "getting schedule")
	}
	members, err := rep.roster.GroupRoster(ctx, sch.GroupID)
	if err != nil {
		return nil, errors.Wrap(err, "getting group roster")
	}
	records, err := rep.records.QueryByDateRange(ctx, attendance.ByGroup{GroupID: sch.GroupID}, r)
	if err != nil {
		return nil, errors.Wrap(err, "reading attendance records")
	}

	byDate := make(map[civil.Date][]attendance.Record)
	for _, rec := range records {
		if rec.ScheduleID == sch.ID {
			byDate[rec.Date] = append(byDate[rec.Date], rec)
		}
	}

	occurrences := make([]Occurrence, 0)
	for d := range sch.Occurrences(r) {
		recs := byDate[d]
		occ := Occurrence{Date: d, Recorded: len(recs), RosterSize: len(members)}
		studentIDs := make([]string, 0, len(recs))
		for _, rec := range recs {
			studentIDs = append(studentIDs, rec.StudentID)
			if rec.Attended {
				occ.Present++
			}
		}
		occ.Complete = len(members) > 0 && len(roster.Missing(members, studentIDs)) == 0
		occurrences = append(occurrences, occ)
	}
	slices.Reverse(occurrences)
	return occurrences, nil
}
