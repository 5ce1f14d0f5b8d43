package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/report"
	"github.com/trezcool/classbook/core/schedule"
	"github.com/trezcool/classbook/core/roster"
	logsvc "github.com/trezcool/classbook/services/logger"
	rediscache "github.com/trezcool/classbook/storage/cache/redis"
	"github.com/trezcool/classbook/storage/database"
	sqlxrepos "github.com/trezcool/classbook/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	defer logger.Flush()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	var rosterProvider roster.Provider = sqlxrepos.NewRosterProvider(db)
	var rosterCache *rediscache.RosterCache
	if conf.Cache.Enabled {
		client, err := rediscache.NewClient(context.Background(), conf)
		if err != nil {
			logger.Fatal("setting up cache", err)
		}
		defer client.Close()
		rosterCache = rediscache.NewRosterCache(rosterProvider, client, conf.Cache.RosterTTL, logger)
		rosterProvider = rosterCache
	}

	schSvc := schedule.NewService(sqlxrepos.NewScheduleRepository(db), validate)
	attSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), schSvc, rosterProvider, validate)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		schedules: schSvc,
		reporter:  report.NewReporter(attSvc, schSvc, rosterProvider),
		out:       os.Stdout,
	}
	if rosterCache != nil {
		cli.rosters = rosterCache
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
			logger.Flush()
		}
		os.Exit(1)
	}
}
