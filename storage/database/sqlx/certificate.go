package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/certificate"
)

const certificateColumns = `id, user_id, course_id, status, mode, created`

type certificateRow struct {
	ID       string    `db:"id"`
	UserID   string    `db:"user_id"`
	CourseID string    `db:"course_id"`
	Status   string    `db:"status"`
	Mode     string    `db:"mode"`
	Created  time.Time `db:"created"`
}

type certificateRepository struct {
	baseRepository
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(exec core.DBExecutor) certificate.Repository {
	return &certificateRepository{baseRepository{exec: exec}}
}

func (repo certificateRepository) CourseIDsWithCerts(ctx context.Context, userID string, exec ...core.DBExecutor) (map[string]bool, error) {
	courseIDs := make(map[string]bool)
	if !isUUID(userID) {
		return courseIDs, nil
	}
	var ids []string
	q := `SELECT course_id FROM certificate WHERE user_id = $1 AND status = $2`
	if err := repo.getExec(exec).SelectContext(ctx, &ids, q, userID, certificate.StatusDownloadable); err != nil {
		return nil, errors.Wrap(err, "selecting certified course ids")
	}
	for _, id := range ids {
		courseIDs[id] = true
	}
	return courseIDs, nil
}

func (repo certificateRepository) GetCertificate(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (certificate.Certificate, error) {
	if !isUUID(userID) {
		return certificate.Certificate{}, certificate.ErrNotFound
	}
	var row certificateRow
	q := `SELECT ` + certificateColumns + ` FROM certificate WHERE user_id = $1 AND course_id = $2`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, userID, courseID); err != nil {
		if isNoRows(err) {
			return certificate.Certificate{}, certificate.ErrNotFound
		}
		return certificate.Certificate{}, errors.Wrap(err, "selecting certificate")
	}
	cert := certificate.Certificate(row)
	cert.Created = cert.Created.UTC()
	return cert, nil
}

func (repo certificateRepository) CreateCertificate(ctx context.Context, cert certificate.Certificate, exec ...core.DBExecutor) (certificate.Certificate, error) {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	if cert.Created.IsZero() {
		cert.Created = time.Now()
	}
	cert.Created = cert.Created.UTC()
	q := `INSERT INTO certificate (` + certificateColumns + `)
		VALUES (:id, :user_id, :course_id, :status, :mode, :created)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, certificateRow(cert)); err != nil {
		return certificate.Certificate{}, errors.Wrap(err, "inserting certificate")
	}
	return cert, nil
}
