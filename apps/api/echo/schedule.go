package echoapi

import (
	"net/http"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core/report"
	"github.com/trezcool/classbook/core/schedule"
)

type scheduleApi struct {
	svc      schedule.Service
	reporter *report.Reporter
}

func registerScheduleAPI(g *echo.Group, svc schedule.Service, reporter *report.Reporter) {
	api := scheduleApi{
		svc:      svc,
		reporter: reporter,
	}

	sg := g.Group("/schedules")
	sg.POST("", api.create)
	sg.GET("", api.query)

	// detail endpoints
	dg := sg.Group("/:id", objectMiddleware(svc.Get))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/occurrences", api.occurrences)
	dg.GET("/coverage", api.coverage)
}

// Handlers

func (api *scheduleApi) create(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}

	sch, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter := new(schedule.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []schedule.Schedule{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, schedule.OrderingFields)

	schedules, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if schedules == nil {
		schedules = []schedule.Schedule{}
	}
	return ctx.JSON(http.StatusOK, schedules)
}

func (api *scheduleApi) retrieve(ctx echo.Context) error {
	sch, err := getContextObject[schedule.Schedule](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *scheduleApi) update(ctx echo.Context) error {
	sch, err := getContextObject[schedule.Schedule](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data schedule.UpdateSchedule
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchedule")
	}

	sch, err = api.svc.Update(ctx.Request().Context(), sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating schedule")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *scheduleApi) destroy(ctx echo.Context) error {
	sch, err := getContextObject[schedule.Schedule](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	if err = api.svc.Delete(ctx.Request().Context(), sch.ID); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) occurrences(ctx echo.Context) error {
	sch, err := getContextObject[schedule.Schedule](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	r, err := bindDateRange(ctx)
	if err != nil {
		return err
	}

	dates := slices.Collect(sch.Occurrences(r))
	if dates == nil {
		dates = []civil.Date{}
	}
	return ctx.JSON(http.StatusOK, dates)
}

func (api *scheduleApi) coverage(ctx echo.Context) error {
	sch, err := getContextObject[schedule.Schedule](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	r, err := bindDateRange(ctx)
	if err != nil {
		return err
	}

	occurrences, err := api.reporter.Coverage(ctx.Request().Context(), sch.ID, r)
	if err != nil {
		return errors.Wrap(err, "computing coverage")
	}
	return ctx.JSON(http.StatusOK, occurrences)
}
