package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/course"
)

type courseApi struct {
	*Server
}

func registerCourseAPI(g *echo.Group, s *Server) {
	api := courseApi{Server: s}

	cg := g.Group("/courses")
	cg.PUT("", api.save, adminMiddleware())
	cg.GET("/:course_id", api.retrieve)
	cg.GET("/:course_id/modes", api.queryModes)
	cg.PUT("/:course_id/modes", api.saveMode, adminMiddleware())
}

func (api *courseApi) save(ctx echo.Context) error {
	var data course.NewOverview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewOverview")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}
	ovw, err := api.CourseSvc.SaveOverview(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving course overview")
	}
	return ctx.JSON(http.StatusOK, ovw)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	ovw, err := api.CourseSvc.GetOverview(ctx.Request().Context(), ctx.Param("course_id"))
	if err != nil {
		return errors.Wrap(err, "getting course overview")
	}
	return ctx.JSON(http.StatusOK, ovw)
}

func (api *courseApi) queryModes(ctx echo.Context) error {
	modes, err := api.CourseSvc.QueryModes(ctx.Request().Context(), ctx.Param("course_id"))
	if err != nil {
		return errors.Wrap(err, "querying course modes")
	}
	return ctx.JSON(http.StatusOK, modes)
}

func (api *courseApi) saveMode(ctx echo.Context) error {
	var data course.NewMode
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMode")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}
	mode, err := api.CourseSvc.SaveMode(ctx.Request().Context(), ctx.Param("course_id"), data)
	if err != nil {
		return errors.Wrap(err, "saving course mode")
	}
	return ctx.JSON(http.StatusOK, mode)
}
