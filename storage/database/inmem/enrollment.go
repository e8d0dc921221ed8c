package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func copyEnrollment(enr enrollment.Enrollment) enrollment.Enrollment {
	attrs := make([]enrollment.Attribute, len(enr.Attributes))
	copy(attrs, enr.Attributes)
	enr.Attributes = attrs
	return enr
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	defer repo.db.lockWrite(exec)()

	for _, e := range repo.db.enrollments {
		if e.UserID == enr.UserID && e.CourseID == enr.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	if enr.ID == "" {
		enr.ID = uuid.NewString()
	}
	enr.Created = enr.Created.UTC()
	enr = copyEnrollment(enr)
	repo.db.enrollments[enr.ID] = enr
	return copyEnrollment(enr), nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id string, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return copyEnrollment(enr), nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) GetUserEnrollment(_ context.Context, userID, courseID string, _ ...core.DBExecutor) (enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			return copyEnrollment(enr), nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter enrollment.QueryFilter, _ ...core.DBExecutor) ([]enrollment.Enrollment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ids map[string]bool
	if filter.IDs != nil {
		ids = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}

	enrollments := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.UserID != "" && enr.UserID != filter.UserID {
			continue
		}
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		if ids != nil && !ids[enr.ID] {
			continue
		}
		if filter.IsActive != nil && enr.IsActive != *filter.IsActive {
			continue
		}
		enrollments = append(enrollments, copyEnrollment(enr))
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if !enrollments[i].Created.Equal(enrollments[j].Created) {
			return enrollments[i].Created.Before(enrollments[j].Created)
		}
		return enrollments[i].ID < enrollments[j].ID
	})
	return enrollments, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, enr enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	defer repo.db.lockWrite(exec)()

	existing, ok := repo.db.enrollments[enr.ID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	existing.Mode = enr.Mode
	existing.IsActive = enr.IsActive
	existing.CanRefund = enr.CanRefund
	repo.db.enrollments[enr.ID] = existing
	return copyEnrollment(existing), nil
}

func (repo *enrollmentRepository) CreateAttribute(
	_ context.Context,
	enrollmentID string,
	attr enrollment.Attribute,
	exec ...core.DBExecutor,
) (enrollment.Attribute, error) {
	defer repo.db.lockWrite(exec)()

	enr, ok := repo.db.enrollments[enrollmentID]
	if !ok {
		return enrollment.Attribute{}, enrollment.ErrNotFound
	}
	enr = copyEnrollment(enr)
	enr.Attributes = append(enr.Attributes, attr)
	repo.db.enrollments[enrollmentID] = enr
	return attr, nil
}
