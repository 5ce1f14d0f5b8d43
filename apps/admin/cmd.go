package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/report"
	"github.com/trezcool/classbook/core/schedule"
	"github.com/trezcool/classbook/core/session"
	"github.com/trezcool/classbook/core/stats"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp          = errors.New("help provided")
	errCacheDisabled = errors.New("roster cache is disabled")

	// the CLI reads everything
	cliSession = session.New("admin-cli", session.RoleAdminOwner)
)

// rosterInvalidator drops cached group rosters.
type rosterInvalidator interface {
	Invalidate(ctx context.Context, groupIDs ...string) error
}

type commandLine struct {
	db        *sql.DB
	schedules schedule.Service
	reporter  *report.Reporter
	rosters   rosterInvalidator // nil when the cache is disabled
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status...) against the database")
	fmt.Fprintln(cli.out, "  occurrences -schedule ID -from DATE -to DATE - list the dates a schedule happens on")
	fmt.Fprintln(cli.out, "  coverage -schedule ID -from DATE -to DATE - report how much of each occurrence was recorded")
	fmt.Fprintln(cli.out, "  stats -by student|group|teacher -from DATE -to DATE [-group ID|-teacher ID|-student ID] - attendance rates")
	fmt.Fprintln(cli.out, "  invalidate-roster -group ID - drop the cached roster of a group after enrollment changes")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "occurrences", "coverage":
		cmd := flag.NewFlagSet(args[1], flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		scheduleID := cmd.String("schedule", "", "The schedule id.")
		from := cmd.String("from", "", "First date of the range (YYYY-MM-DD).")
		to := cmd.String("to", "", "Last date of the range (YYYY-MM-DD).")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *scheduleID == "" {
			cmd.Usage()
			return errHelp
		}
		r, err := core.ParseDateRange(*from, *to)
		if err != nil {
			return err
		}
		if args[1] == "coverage" {
			return cli.coverage(ctx, *scheduleID, r)
		}
		return cli.occurrences(ctx, *scheduleID, r)

	case "stats":
		cmd := flag.NewFlagSet("stats", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		by := cmd.String("by", "", "The dimension to aggregate by: student, group or teacher.")
		from := cmd.String("from", "", "First date of the range (YYYY-MM-DD).")
		to := cmd.String("to", "", "Last date of the range (YYYY-MM-DD).")
		groupID := cmd.String("group", "", "Only read the records of this group.")
		teacherID := cmd.String("teacher", "", "Only read the records of this teacher.")
		studentID := cmd.String("student", "", "Only read the records of this student.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *by == "" {
			cmd.Usage()
			return errHelp
		}
		dim, err := stats.ParseDimension(*by)
		if err != nil {
			return err
		}
		r, err := core.ParseDateRange(*from, *to)
		if err != nil {
			return err
		}
		scope, err := attendance.ParseScope(*groupID, *teacherID, *studentID)
		if err != nil {
			return err
		}
		return cli.stats(ctx, dim, scope, r)

	case "invalidate-roster":
		cmd := flag.NewFlagSet("invalidate-roster", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		groupID := cmd.String("group", "", "The group id.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *groupID == "" {
			cmd.Usage()
			return errHelp
		}
		if cli.rosters == nil {
			return errCacheDisabled
		}
		if err := cli.rosters.Invalidate(ctx, *groupID); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Cached roster of group %s dropped\n", *groupID)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

// interactive reports whether output goes to a terminal, in which case tables are printed instead of JSON.
func (cli *commandLine) interactive() bool {
	f, ok := cli.out.(*os.File)
	return ok && isTerminalFunc(int(f.Fd()))
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cli *commandLine) table(header string) *tabwriter.Writer {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	return w
}
