package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type scheduleApi struct {
	*Server
}

func registerScheduleAPI(g *echo.Group, s *Server) {
	api := scheduleApi{Server: s}
	g.GET("/schedules", api.query, staffMiddleware())
}

func (api *scheduleApi) query(ctx echo.Context) error {
	filter, err := bindScheduleFilter(ctx)
	if err != nil {
		return err
	}
	schedules, err := api.ScheduleSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	return ctx.JSON(http.StatusOK, schedules)
}
