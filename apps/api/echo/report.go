package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core/report"
	"github.com/trezcool/classbook/core/stats"
)

type reportApi struct {
	reporter *report.Reporter
}

func registerReportAPI(g *echo.Group, reporter *report.Reporter) {
	api := reportApi{reporter: reporter}

	g.GET("/stats", api.stats)
	g.GET("/reports/daily", api.daily)
}

// Handlers

func (api *reportApi) stats(ctx echo.Context) error {
	dim, err := stats.ParseDimension(ctx.QueryParam("by"))
	if err != nil {
		return err
	}
	r, err := bindDateRange(ctx)
	if err != nil {
		return err
	}
	scope, err := bindScope(ctx)
	if err != nil {
		return err
	}

	statistics, err := api.reporter.Ranking(ctx.Request().Context(), getContextSession(ctx), dim, scope, r)
	if err != nil {
		return errors.Wrap(err, "computing statistics")
	}
	return ctx.JSON(http.StatusOK, statistics)
}

func (api *reportApi) daily(ctx echo.Context) error {
	r, err := bindDateRange(ctx)
	if err != nil {
		return err
	}
	scope, err := bindScope(ctx)
	if err != nil {
		return err
	}

	days, err := api.reporter.Daily(ctx.Request().Context(), getContextSession(ctx), scope, r)
	if err != nil {
		return errors.Wrap(err, "computing daily report")
	}
	return ctx.JSON(http.StatusOK, days)
}
