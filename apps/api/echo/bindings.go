package echoapi

import (
	"cloud.google.com/go/civil"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the "ordering" query param, keeping the fields in allowed.
func (ord *Ordering) Bind(ctx echo.Context, allowed map[string]string) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam), allowed)
}

// bindDateRange reads the required "from" and "to" query params.
func bindDateRange(ctx echo.Context) (core.DateRange, error) {
	return core.ParseDateRange(ctx.QueryParam("from"), ctx.QueryParam("to"))
}

// bindDate reads a required YYYY-MM-DD query param.
func bindDate(ctx echo.Context, param string) (civil.Date, error) {
	return core.ParseDate(param, ctx.QueryParam(param))
}

// bindScope reads the optional, mutually exclusive group_id, teacher_id and student_id query params.
func bindScope(ctx echo.Context) (attendance.Scope, error) {
	return attendance.ParseScope(ctx.QueryParam("group_id"), ctx.QueryParam("teacher_id"), ctx.QueryParam("student_id"))
}
