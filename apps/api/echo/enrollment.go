package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
)

const (
	contextObjectKey = "object"

	notRefundableMessage = "You will not be refunded the amount you paid."
)

var errEnrNotFoundInCtx = errors.New("enrollment object not found in echo.Context")

type enrollmentApi struct {
	*Server
}

func registerEnrollmentAPI(g *echo.Group, s *Server) {
	api := enrollmentApi{Server: s}

	g.GET("/dashboard", api.dashboard)

	eg := g.Group("/enrollments")
	eg.POST("", api.create)
	eg.GET("", api.query)

	// detail endpoints
	dg := eg.Group("/:id", api.ctxEnrollmentMiddleware)
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy)
	dg.GET("/schedule", api.schedule)
	dg.GET("/refund", api.refund)
	dg.POST("/attributes", api.addAttribute, staffMiddleware())
}

type (
	enrollmentResponse struct {
		enrollment.Enrollment
		Schedule *schedule.Schedule `json:"schedule"`
	}

	dashboardEntry struct {
		EnrollmentID     string          `json:"enrollment_id"`
		Course           course.Overview `json:"course"`
		Mode             string          `json:"mode"`
		UpgradeDeadline  *time.Time      `json:"upgrade_deadline"`
		Refundable       bool            `json:"refundable"`
		RefundCutoffDate *time.Time      `json:"refund_cutoff_date"`
		Message          string          `json:"message,omitempty"`
	}
)

// Handlers

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}

	ctxUsr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	// only staff can enroll someone else
	if data.UserID == "" {
		data.UserID = ctxUsr.ID
	} else if data.UserID != ctxUsr.ID && !ctxUsr.IsStaff() {
		return errHttpForbidden
	}
	if err = data.Validate(api.Validate); err != nil {
		return err
	}

	enr, created, err := api.EnrollmentSvc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	resp, err := api.withSchedule(ctx, enr)
	if err != nil {
		return err
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ctx.JSON(code, resp)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	filter := enrollment.QueryFilter{UserID: ctxUsr.ID}
	if uid := ctx.QueryParam(userIDParam); uid != "" && uid != ctxUsr.ID {
		if !ctxUsr.IsStaff() {
			return errHttpForbidden
		}
		filter.UserID = uid
	}
	if filter.IsActive, err = bindActive(ctx); err != nil {
		return err
	}

	enrollments, err := api.EnrollmentSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	enr, ok := ctx.Get(contextObjectKey).(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	resp, err := api.withSchedule(ctx, enr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	enr, ok := ctx.Get(contextObjectKey).(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	enr, err := api.EnrollmentSvc.Unenroll(ctx.Request().Context(), enr.ID)
	if err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) schedule(ctx echo.Context) error {
	enr, ok := ctx.Get(contextObjectKey).(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	sch, err := api.ScheduleSvc.GetForEnrollment(ctx.Request().Context(), enr.ID)
	if err != nil {
		return errors.Wrap(err, "getting schedule")
	}
	return ctx.JSON(http.StatusOK, sch)
}

func (api *enrollmentApi) refund(ctx echo.Context) error {
	enr, ok := ctx.Get(contextObjectKey).(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	status, err := api.EnrollmentSvc.RefundStatus(ctx.Request().Context(), enr)
	if err != nil {
		return errors.Wrap(err, "getting refund status")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *enrollmentApi) addAttribute(ctx echo.Context) error {
	enr, ok := ctx.Get(contextObjectKey).(enrollment.Enrollment)
	if !ok {
		return errors.Wrap(errEnrNotFoundInCtx, "retrieving object from context")
	}
	var data enrollment.Attribute
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Attribute")
	}
	if err := data.Validate(api.Validate); err != nil {
		return err
	}

	enr, err := api.EnrollmentSvc.AddAttribute(ctx.Request().Context(), enr.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding attribute")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

// dashboard lists the active enrollments of the context user with their upgrade & refund details.
func (api *enrollmentApi) dashboard(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.UserSvc)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	enrollments, err := api.EnrollmentSvc.QueryForUser(reqCtx, ctxUsr.ID, true /* activeOnly */)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	certCourseIDs, err := api.CertRepo.CourseIDsWithCerts(reqCtx, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}

	entries := make([]dashboardEntry, 0, len(enrollments))
	for _, enr := range enrollments {
		entry, err := api.dashboardEntry(ctx, ctxUsr, enr, certCourseIDs)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *enrollmentApi) dashboardEntry(
	ctx echo.Context,
	usr user.User,
	enr enrollment.Enrollment,
	certCourseIDs map[string]bool,
) (dashboardEntry, error) {
	reqCtx := ctx.Request().Context()
	entry := dashboardEntry{EnrollmentID: enr.ID, Mode: enr.Mode}

	ovw, err := api.CourseSvc.GetOverview(reqCtx, enr.CourseID)
	if err != nil {
		return entry, errors.Wrap(err, "getting course")
	}
	entry.Course = ovw

	sch, err := api.ScheduleSvc.GetForEnrollment(reqCtx, enr.ID)
	switch errors.Cause(err) {
	case nil:
		entry.UpgradeDeadline = sch.UpgradeDeadline
	case schedule.ErrNotFound:
	default:
		return entry, errors.Wrap(err, "getting schedule")
	}

	status, err := api.EnrollmentSvc.RefundStatus(reqCtx, enr, certCourseIDs)
	if err != nil {
		// refunds are informative here: never fail the whole dashboard
		api.Logger.Warn("echoapi.dashboard: getting refund status: "+err.Error(), err, usr)
	}
	entry.Refundable = status.Refundable
	entry.RefundCutoffDate = status.RefundCutoffDate

	if !entry.Refundable {
		paid, err := api.isPaid(ctx, enr)
		if err != nil {
			return entry, err
		}
		if paid {
			entry.Message = notRefundableMessage
		}
	}
	return entry, nil
}

// isPaid tells whether enr was bought: it has an order or its mode has a price.
func (api *enrollmentApi) isPaid(ctx echo.Context, enr enrollment.Enrollment) (bool, error) {
	if _, ok := enr.OrderNumber(); ok {
		return true, nil
	}
	mode, err := api.CourseSvc.GetMode(ctx.Request().Context(), enr.CourseID, enr.Mode)
	switch errors.Cause(err) {
	case nil:
		return mode.MinPrice > 0, nil
	case course.ErrModeNotFound:
		return false, nil
	default:
		return false, errors.Wrap(err, "getting course mode")
	}
}

func (api *enrollmentApi) withSchedule(ctx echo.Context, enr enrollment.Enrollment) (enrollmentResponse, error) {
	resp := enrollmentResponse{Enrollment: enr}
	sch, err := api.ScheduleSvc.GetForEnrollment(ctx.Request().Context(), enr.ID)
	switch errors.Cause(err) {
	case nil:
		resp.Schedule = &sch
	case schedule.ErrNotFound:
	default:
		return resp, errors.Wrap(err, "getting schedule")
	}
	return resp, nil
}

// ctxEnrollmentMiddleware loads the enrollment of the `:id` path param.
// Learners only see their own enrollments.
func (api *enrollmentApi) ctxEnrollmentMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctxUsr, err := getContextUser(ctx, api.UserSvc)
		if err != nil {
			return err
		}
		enr, err := api.EnrollmentSvc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == enrollment.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding enrollment by ID")
		}
		if enr.UserID != ctxUsr.ID && !ctxUsr.IsStaff() {
			return errHttpNotFound
		}
		ctx.Set(contextObjectKey, enr)
		return next(ctx)
	}
}
