package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/enrollment"
)

const enrollmentColumns = `id, user_id, course_id, mode, is_active, can_refund, created`

type enrollmentRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	Mode      string    `db:"mode"`
	IsActive  bool      `db:"is_active"`
	CanRefund bool      `db:"can_refund"`
	Created   time.Time `db:"created"`
}

func toEnrollmentRow(enr enrollment.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:        enr.ID,
		UserID:    enr.UserID,
		CourseID:  enr.CourseID,
		Mode:      enr.Mode,
		IsActive:  enr.IsActive,
		CanRefund: enr.CanRefund,
		Created:   enr.Created.UTC(),
	}
}

func (row enrollmentRow) toEnrollment(attrs []enrollment.Attribute) enrollment.Enrollment {
	if attrs == nil {
		attrs = []enrollment.Attribute{}
	}
	return enrollment.Enrollment{
		ID:         row.ID,
		UserID:     row.UserID,
		CourseID:   row.CourseID,
		Mode:       row.Mode,
		IsActive:   row.IsActive,
		CanRefund:  row.CanRefund,
		Created:    row.Created.UTC(),
		Attributes: attrs,
	}
}

type attributeRow struct {
	EnrollmentID string `db:"enrollment_id"`
	Namespace    string `db:"namespace"`
	Name         string `db:"name"`
	Value        string `db:"value"`
}

type enrollmentRepository struct {
	baseRepository
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) enrollment.Repository {
	return &enrollmentRepository{baseRepository{exec: exec}}
}

// attributes returns the attributes of enrollmentIDs, by insertion order.
func (repo enrollmentRepository) attributes(
	ctx context.Context,
	enrollmentIDs []string,
	exec ...core.DBExecutor,
) (map[string][]enrollment.Attribute, error) {
	var rows []attributeRow
	q := `SELECT enrollment_id, namespace, name, value FROM enrollment_attribute
		WHERE enrollment_id = ANY($1::uuid[]) ORDER BY id`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, pq.Array(enrollmentIDs)); err != nil {
		return nil, errors.Wrap(err, "selecting enrollment attributes")
	}
	attrs := make(map[string][]enrollment.Attribute, len(enrollmentIDs))
	for _, row := range rows {
		attrs[row.EnrollmentID] = append(attrs[row.EnrollmentID], enrollment.Attribute{
			Namespace: row.Namespace,
			Name:      row.Name,
			Value:     row.Value,
		})
	}
	return attrs, nil
}

func (repo enrollmentRepository) get(ctx context.Context, w where, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	var row enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment` + w.String()
	if err := repo.getExec(exec).GetContext(ctx, &row, q, w.args...); err != nil {
		if isNoRows(err) {
			return enrollment.Enrollment{}, enrollment.ErrNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "selecting enrollment")
	}
	attrs, err := repo.attributes(ctx, []string{row.ID}, exec...)
	if err != nil {
		return enrollment.Enrollment{}, err
	}
	return row.toEnrollment(attrs[row.ID]), nil
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = uuid.NewString()
	}
	q := `INSERT INTO enrollment (` + enrollmentColumns + `)
		VALUES (:id, :user_id, :course_id, :mode, :is_active, :can_refund, :created)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, toEnrollmentRow(enr)); err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	enr.Created = enr.Created.UTC()
	if enr.Attributes == nil {
		enr.Attributes = []enrollment.Attribute{}
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, id string, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	if !isUUID(id) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var w where
	w.add("id = $%d", id)
	return repo.get(ctx, w, exec...)
}

func (repo enrollmentRepository) GetUserEnrollment(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	if !isUUID(userID) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var w where
	w.add("user_id = $%d", userID)
	w.add("course_id = $%d", courseID)
	return repo.get(ctx, w, exec...)
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter, exec ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	var w where
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return []enrollment.Enrollment{}, nil
		}
		w.add("user_id = $%d", filter.UserID)
	}
	if filter.CourseID != "" {
		w.add("course_id = $%d", filter.CourseID)
	}
	if filter.IDs != nil {
		w.add("id = ANY($%d::uuid[])", pq.Array(uuids(filter.IDs)))
	}
	if filter.IsActive != nil {
		w.add("is_active = $%d", *filter.IsActive)
	}

	var rows []enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment` + w.String() + ` ORDER BY created, id`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	if len(rows) == 0 {
		return []enrollment.Enrollment{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	attrs, err := repo.attributes(ctx, ids, exec...)
	if err != nil {
		return nil, err
	}

	enrollments := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.toEnrollment(attrs[row.ID]))
	}
	return enrollments, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	if !isUUID(enr.ID) {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	q := `UPDATE enrollment SET mode = :mode, is_active = :is_active, can_refund = :can_refund WHERE id = :id`
	res, err := repo.getExec(exec).NamedExecContext(ctx, q, toEnrollmentRow(enr))
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return repo.GetEnrollment(ctx, enr.ID, exec...)
}

func (repo enrollmentRepository) CreateAttribute(
	ctx context.Context,
	enrollmentID string,
	attr enrollment.Attribute,
	exec ...core.DBExecutor,
) (enrollment.Attribute, error) {
	if !isUUID(enrollmentID) {
		return enrollment.Attribute{}, enrollment.ErrNotFound
	}
	q := `INSERT INTO enrollment_attribute (enrollment_id, namespace, name, value)
		VALUES (:enrollment_id, :namespace, :name, :value)`
	row := attributeRow{EnrollmentID: enrollmentID, Namespace: attr.Namespace, Name: attr.Name, Value: attr.Value}
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, row); err != nil {
		return enrollment.Attribute{}, errors.Wrap(err, "inserting enrollment attribute")
	}
	return attr, nil
}
