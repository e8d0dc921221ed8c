package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/settings"
)

type settingsApi struct {
	*Server
}

func registerSettingsAPI(g *echo.Group, s *Server) {
	api := settingsApi{Server: s}

	sg := g.Group("/settings", adminMiddleware())
	sg.GET("/upgrade-deadline", api.upgradeDeadline)
	sg.PUT("/upgrade-deadline", api.saveUpgradeDeadline)
	sg.GET("/courses/:course_id/upgrade-deadline", api.courseUpgradeDeadline)
	sg.PUT("/courses/:course_id/upgrade-deadline", api.saveCourseUpgradeDeadline)
	sg.GET("/refund", api.refund)
	sg.PUT("/refund", api.saveRefund)
}

func (api *settingsApi) upgradeDeadline(ctx echo.Context) error {
	cfg, err := api.SettingsSvc.CurrentUpgradeDeadline(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting upgrade deadline config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *settingsApi) saveUpgradeDeadline(ctx echo.Context) error {
	var data settings.UpdateUpgradeDeadline
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUpgradeDeadline")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}
	cfg, err := api.SettingsSvc.SaveUpgradeDeadline(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving upgrade deadline config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *settingsApi) courseUpgradeDeadline(ctx echo.Context) error {
	cfg, err := api.SettingsSvc.CurrentCourseUpgradeDeadline(ctx.Request().Context(), ctx.Param("course_id"))
	if err != nil {
		return errors.Wrap(err, "getting course upgrade deadline config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *settingsApi) saveCourseUpgradeDeadline(ctx echo.Context) error {
	courseID := ctx.Param("course_id")
	if _, err := api.CourseSvc.GetOverview(ctx.Request().Context(), courseID); err != nil {
		return errors.Wrap(err, "getting course overview")
	}

	var data settings.UpdateUpgradeDeadline
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUpgradeDeadline")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}
	cfg, err := api.SettingsSvc.SaveCourseUpgradeDeadline(ctx.Request().Context(), courseID, data)
	if err != nil {
		return errors.Wrap(err, "saving course upgrade deadline config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *settingsApi) refund(ctx echo.Context) error {
	cfg, err := api.SettingsSvc.CurrentRefund(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting refund config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

func (api *settingsApi) saveRefund(ctx echo.Context) error {
	var data settings.UpdateRefund
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRefund")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}
	cfg, err := api.SettingsSvc.SaveRefund(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving refund config")
	}
	return ctx.JSON(http.StatusOK, cfg)
}
