package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/stats"
)

func (cli *commandLine) occurrences(ctx context.Context, scheduleID string, r core.DateRange) error {
	seq, err := cli.schedules.ResolveOccurrences(ctx, scheduleID, r)
	if err != nil {
		return errors.Wrap(err, "resolving occurrences")
	}

	dates := make([]civil.Date, 0)
	for d := range seq {
		dates = append(dates, d)
	}

	if !cli.interactive() {
		return cli.printJSON(dates)
	}
	w := cli.table("DATE\tWEEKDAY")
	for _, d := range dates {
		fmt.Fprintf(w, "%s\t%s\n", d, d.In(time.UTC).Weekday())
	}
	return w.Flush()
}

func (cli *commandLine) coverage(ctx context.Context, scheduleID string, r core.DateRange) error {
	occurrences, err := cli.reporter.Coverage(ctx, scheduleID, r)
	if err != nil {
		return errors.Wrap(err, "computing coverage")
	}

	if !cli.interactive() {
		return cli.printJSON(occurrences)
	}
	w := cli.table("DATE\tRECORDED\tROSTER\tPRESENT\tCOMPLETE")
	for _, occ := range occurrences {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%t\n", occ.Date, occ.Recorded, occ.RosterSize, occ.Present, occ.Complete)
	}
	return w.Flush()
}

func (cli *commandLine) stats(ctx context.Context, dim stats.Dimension, scope attendance.Scope, r core.DateRange) error {
	statistics, err := cli.reporter.Ranking(ctx, cliSession, dim, scope, r)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}

	if !cli.interactive() {
		return cli.printJSON(statistics)
	}
	w := cli.table(fmt.Sprintf("%s\tPRESENT\tTOTAL\tRATE", dim))
	for _, stat := range statistics {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\n", stat.EntityID, stat.Present, stat.Total, stat.Rate*100)
	}
	return w.Flush()
}
