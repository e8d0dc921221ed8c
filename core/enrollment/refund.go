package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/certificate"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/user"
)

// RefundCutoffDate returns the date after which enr cannot be refunded anymore:
// the refund window counted from the latest of the order date and the course start.
// It is nil when enr was not paid through an order, or when the order could not be fetched.
func (svc *service) RefundCutoffDate(ctx context.Context, enr Enrollment) (*time.Time, error) {
	number, ok := enr.OrderNumber()
	if !ok {
		return nil, nil
	}

	usr, err := svc.UserRepo.GetUser(ctx, user.GetFilter{ID: enr.UserID})
	if err != nil {
		return nil, errors.Wrap(err, "getting user")
	}
	order, err := svc.Orders.GetOrder(ctx, usr, number)
	if err != nil {
		svc.Logger.Warn(fmt.Sprintf("enrollment.RefundCutoffDate(%s): fetching order %s: %v", enr.ID, number, err), err)
		return nil, nil
	}

	ovw, err := svc.CourseRepo.GetOverview(ctx, enr.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "getting course")
	}
	refundCfg, err := svc.SettingsSvc.CurrentRefund(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting refund config")
	}

	basis := order.DatePlaced.UTC()
	if start := ovw.Start.UTC(); start.After(basis) {
		basis = start
	}
	cutoff := basis.Add(refundCfg.RefundWindow)
	return &cutoff, nil
}

func (svc *service) Refundable(ctx context.Context, enr Enrollment, certCourseIDs ...map[string]bool) (bool, error) {
	cutoffDate := func() (*time.Time, error) { return svc.RefundCutoffDate(ctx, enr) }
	return svc.refundable(ctx, enr, cutoffDate, certCourseIDs...)
}

// RefundStatus fetches the order once for both the cutoff date and the refundable check.
func (svc *service) RefundStatus(ctx context.Context, enr Enrollment, certCourseIDs ...map[string]bool) (RefundStatus, error) {
	cutoff, err := svc.RefundCutoffDate(ctx, enr)
	if err != nil {
		return RefundStatus{}, err
	}
	cutoffDate := func() (*time.Time, error) { return cutoff, nil }
	refundable, err := svc.refundable(ctx, enr, cutoffDate, certCourseIDs...)
	if err != nil {
		return RefundStatus{}, err
	}
	return RefundStatus{Refundable: refundable, RefundCutoffDate: cutoff}, nil
}

// refundable calls cutoffDate only once the cheaper checks passed.
func (svc *service) refundable(
	ctx context.Context,
	enr Enrollment,
	cutoffDate func() (*time.Time, error),
	certCourseIDs ...map[string]bool,
) (bool, error) {
	if enr.CanRefund {
		return true, nil
	}

	hasCert, err := svc.hasDownloadableCert(ctx, enr, certCourseIDs...)
	if err != nil {
		return false, err
	}
	if hasCert {
		return false, nil
	}

	if _, err = svc.CourseRepo.GetVerifiedMode(ctx, enr.CourseID); err != nil {
		if errors.Cause(err) == course.ErrModeNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting verified mode")
	}

	cutoff, err := cutoffDate()
	if err != nil {
		return false, errors.Wrap(err, "getting refund cutoff date")
	}
	if cutoff != nil && NowFunc().UTC().After(*cutoff) {
		return false, nil
	}
	return true, nil
}

func (svc *service) hasDownloadableCert(ctx context.Context, enr Enrollment, certCourseIDs ...map[string]bool) (bool, error) {
	if len(certCourseIDs) > 0 && certCourseIDs[0] != nil {
		return certCourseIDs[0][enr.CourseID], nil
	}
	cert, err := svc.CertRepo.GetCertificate(ctx, enr.UserID, enr.CourseID)
	switch errors.Cause(err) {
	case nil:
		return cert.IsDownloadable(), nil
	case certificate.ErrNotFound:
		return false, nil
	default:
		return false, errors.Wrap(err, "getting certificate")
	}
}
