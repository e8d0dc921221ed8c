package certificate

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/ratiba/core"
)

// Statuses
const (
	StatusDownloadable = "downloadable"
	StatusGenerating   = "generating"
	StatusNotPassing   = "notpassing"
	StatusUnavailable  = "unavailable"
	StatusAuditPassing = "audit_passing"
)

var ErrNotFound = errors.New("certificate not found")

// Certificate is the replicated state of a learner's course certificate.
type Certificate struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	CourseID string    `json:"course_id"`
	Status   string    `json:"status"`
	Mode     string    `json:"mode"`
	Created  time.Time `json:"created"`
}

func (c Certificate) IsDownloadable() bool { return c.Status == StatusDownloadable }

type Repository interface {
	// CourseIDsWithCerts returns the IDs of the courses in which userID holds a downloadable certificate.
	CourseIDsWithCerts(ctx context.Context, userID string, exec ...core.DBExecutor) (map[string]bool, error)
	GetCertificate(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (Certificate, error)
	CreateCertificate(ctx context.Context, cert Certificate, exec ...core.DBExecutor) (Certificate, error)
}
