package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
)

const (
	overviewColumns = `id, display_name, start, "end", modified`
	modeColumns     = `id, course_id, mode_slug, mode_display_name, min_price, currency, expiration_datetime`
)

type overviewRow struct {
	ID          string    `db:"id"`
	DisplayName string    `db:"display_name"`
	Start       null.Time `db:"start"`
	End         null.Time `db:"end"`
	Modified    time.Time `db:"modified"`
}

func (row overviewRow) toOverview() course.Overview {
	ovw := course.Overview{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		End:         timePtr(row.End),
		Modified:    row.Modified.UTC(),
	}
	if row.Start.Valid {
		ovw.Start = row.Start.Time.UTC()
	}
	return ovw
}

type modeRow struct {
	ID                 string    `db:"id"`
	CourseID           string    `db:"course_id"`
	Slug               string    `db:"mode_slug"`
	DisplayName        string    `db:"mode_display_name"`
	MinPrice           int       `db:"min_price"`
	Currency           string    `db:"currency"`
	ExpirationDatetime null.Time `db:"expiration_datetime"`
}

func (row modeRow) toMode() course.Mode {
	return course.Mode{
		ID:                 row.ID,
		CourseID:           row.CourseID,
		Slug:               row.Slug,
		DisplayName:        row.DisplayName,
		MinPrice:           row.MinPrice,
		Currency:           row.Currency,
		ExpirationDatetime: timePtr(row.ExpirationDatetime),
	}
}

type courseRepository struct {
	baseRepository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) course.Repository {
	return &courseRepository{baseRepository{exec: exec}}
}

func (repo courseRepository) GetOverview(ctx context.Context, courseID string, exec ...core.DBExecutor) (course.Overview, error) {
	var row overviewRow
	q := `SELECT ` + overviewColumns + ` FROM course_overview WHERE id = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, courseID); err != nil {
		if isNoRows(err) {
			return course.Overview{}, course.ErrNotFound
		}
		return course.Overview{}, errors.Wrap(err, "selecting course overview")
	}
	return row.toOverview(), nil
}

func (repo courseRepository) UpsertOverview(ctx context.Context, ovw course.Overview, exec ...core.DBExecutor) (course.Overview, error) {
	q := `INSERT INTO course_overview (` + overviewColumns + `) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name, start = EXCLUDED.start, "end" = EXCLUDED."end",
			modified = EXCLUDED.modified`
	_, err := repo.getExec(exec).ExecContext(
		ctx, q,
		ovw.ID, ovw.DisplayName, nullTime(&ovw.Start), nullTime(ovw.End), ovw.Modified.UTC(),
	)
	if err != nil {
		return course.Overview{}, errors.Wrap(err, "upserting course overview")
	}
	return repo.GetOverview(ctx, ovw.ID, exec...)
}

func (repo courseRepository) GetVerifiedMode(ctx context.Context, courseID string, exec ...core.DBExecutor) (course.Mode, error) {
	return repo.verifiedMode(ctx, courseID, nil, exec)
}

func (repo courseRepository) GetActiveVerifiedMode(
	ctx context.Context,
	courseID string,
	at time.Time,
	exec ...core.DBExecutor,
) (course.Mode, error) {
	return repo.verifiedMode(ctx, courseID, &at, exec)
}

// verifiedMode skips the modes expired at `at`, when set.
func (repo courseRepository) verifiedMode(ctx context.Context, courseID string, at *time.Time, exec []core.DBExecutor) (course.Mode, error) {
	var w where
	w.add("course_id = $%d", courseID)
	w.add("mode_slug = ANY($%d::text[])", pq.Array(course.VerifiedModes))
	if at != nil {
		w.add("(expiration_datetime IS NULL OR expiration_datetime >= $%d)", at.UTC())
	}

	var row modeRow
	q := `SELECT ` + modeColumns + ` FROM course_mode` + w.String() + `
		ORDER BY array_position($2::text[], mode_slug) LIMIT 1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, w.args...); err != nil {
		if isNoRows(err) {
			return course.Mode{}, course.ErrModeNotFound
		}
		return course.Mode{}, errors.Wrap(err, "selecting verified mode")
	}
	return row.toMode(), nil
}

func (repo courseRepository) GetMode(ctx context.Context, courseID, slug string, exec ...core.DBExecutor) (course.Mode, error) {
	var row modeRow
	q := `SELECT ` + modeColumns + ` FROM course_mode WHERE course_id = $1 AND mode_slug = $2`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, courseID, slug); err != nil {
		if isNoRows(err) {
			return course.Mode{}, course.ErrModeNotFound
		}
		return course.Mode{}, errors.Wrap(err, "selecting course mode")
	}
	return row.toMode(), nil
}

func (repo courseRepository) QueryModes(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Mode, error) {
	var rows []modeRow
	q := `SELECT ` + modeColumns + ` FROM course_mode WHERE course_id = $1 ORDER BY min_price, mode_slug`
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting course modes")
	}
	modes := make([]course.Mode, 0, len(rows))
	for _, row := range rows {
		modes = append(modes, row.toMode())
	}
	return modes, nil
}

func (repo courseRepository) UpsertMode(ctx context.Context, mode course.Mode, exec ...core.DBExecutor) (course.Mode, error) {
	if mode.ID == "" {
		mode.ID = uuid.NewString()
	}
	q := `INSERT INTO course_mode (` + modeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (course_id, mode_slug) DO UPDATE SET
			mode_display_name = EXCLUDED.mode_display_name, min_price = EXCLUDED.min_price,
			currency = EXCLUDED.currency, expiration_datetime = EXCLUDED.expiration_datetime`
	_, err := repo.getExec(exec).ExecContext(
		ctx, q,
		mode.ID, mode.CourseID, mode.Slug, mode.DisplayName, mode.MinPrice, mode.Currency,
		nullTime(mode.ExpirationDatetime),
	)
	if err != nil {
		return course.Mode{}, errors.Wrap(err, "upserting course mode")
	}
	return repo.GetMode(ctx, mode.CourseID, mode.Slug, exec...)
}
