package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/classbook/apps/api/echo"
	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/report"
	"github.com/trezcool/classbook/core/roster"
	"github.com/trezcool/classbook/core/schedule"
	logsvc "github.com/trezcool/classbook/services/logger"
	rediscache "github.com/trezcool/classbook/storage/cache/redis"
	"github.com/trezcool/classbook/storage/database"
	sqlxrepos "github.com/trezcool/classbook/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newRedisClient returns nil when the cache is disabled.
func newRedisClient(conf *core.Config, loggerParam DBLoggerParam) *redis.Client {
	if !conf.Cache.Enabled {
		return nil
	}
	client, err := rediscache.NewClient(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	return client
}

func newRosterProvider(conf *core.Config, db *sqlx.DB, client *redis.Client, loggerParam DBLoggerParam) roster.Provider {
	provider := sqlxrepos.NewRosterProvider(db)
	if client == nil {
		return provider
	}
	return rediscache.NewRosterCache(provider, client, conf.Cache.RosterTTL, loggerParam.Logger)
}

func newAttendanceService(
	repo attendance.Repository,
	schedules schedule.Service,
	rosterProvider roster.Provider,
	validate *validator.Validate,
) attendance.Service {
	return attendance.NewService(repo, schedules, rosterProvider, validate)
}

func newReporter(records attendance.Service, schedules schedule.Service, rosterProvider roster.Provider) *report.Reporter {
	return report.NewReporter(records, schedules, rosterProvider)
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Translator    ut.Translator
	ScheduleSvc   schedule.Service
	AttendanceSvc attendance.Service
	Reporter      *report.Reporter
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Translator:    p.Translator,
		ScheduleSvc:   p.ScheduleSvc,
		AttendanceSvc: p.AttendanceSvc,
		Reporter:      p.Reporter,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRedisClient))
	must(c.Provide(newRosterProvider))
	must(c.Provide(sqlxrepos.NewScheduleRepository))
	must(c.Provide(sqlxrepos.NewAttendanceRepository))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(schedule.NewService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newReporter))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
