package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
)

var errScheduleIDRequired = "schedule_id is required"

type attendanceApi struct {
	svc attendance.Service
}

func registerAttendanceAPI(g *echo.Group, svc attendance.Service) {
	api := attendanceApi{svc: svc}

	ag := g.Group("/attendance")
	ag.POST("", api.create)
	ag.POST("/bulk", api.createBulk)
	ag.GET("/template", api.template)
	ag.GET("", api.query)

	// detail endpoints
	dg := ag.Group("/:id", objectMiddleware(svc.Get))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	ag.DELETE("/:id", api.destroy) // idempotent, no lookup
}

// bindOccurrence reads the required schedule_id and date query params.
func bindOccurrence(ctx echo.Context) (string, error) {
	scheduleID := core.CleanString(ctx.QueryParam("schedule_id"))
	if scheduleID == "" {
		return "", core.NewValidationError(nil, core.FieldError{Field: "schedule_id", Error: errScheduleIDRequired})
	}
	return scheduleID, nil
}

// Handlers

func (api *attendanceApi) create(ctx echo.Context) error {
	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}

	rec, err := api.svc.RecordSingle(ctx.Request().Context(), getContextSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) createBulk(ctx echo.Context) error {
	var data attendance.BulkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkRequest")
	}

	res, err := api.svc.RecordBulk(ctx.Request().Context(), getContextSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "recording bulk attendance")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *attendanceApi) template(ctx echo.Context) error {
	scheduleID, err := bindOccurrence(ctx)
	if err != nil {
		return err
	}
	date, err := bindDate(ctx, "date")
	if err != nil {
		return err
	}

	tmpl, err := api.svc.Template(ctx.Request().Context(), scheduleID, date)
	if err != nil {
		return errors.Wrap(err, "building bulk template")
	}
	return ctx.JSON(http.StatusOK, tmpl)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	scheduleID, err := bindOccurrence(ctx)
	if err != nil {
		return err
	}
	date, err := bindDate(ctx, "date")
	if err != nil {
		return err
	}

	recs, err := api.svc.QueryByScheduleAndDate(ctx.Request().Context(), scheduleID, date)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if recs == nil {
		recs = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	rec, err := getContextObject[attendance.Record](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *attendanceApi) update(ctx echo.Context) error {
	rec, err := getContextObject[attendance.Record](ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	var data attendance.UpdateRecord
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRecord")
	}

	rec, err = api.svc.Update(ctx.Request().Context(), getContextSession(ctx), rec.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating attendance record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

type deleteResponse struct {
	Deleted bool `json:"deleted"`
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	deleted, err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.JSON(http.StatusOK, deleteResponse{Deleted: deleted})
}
