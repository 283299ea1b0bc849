package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/school-reports/internal/database"
	"github.com/lib/pq"
)

// ReportRepository provides PostgreSQL-backed report storage
type ReportRepository struct {
	pool *Pool
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(pool *Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func newID() string {
	return uuid.New().String()
}

const reportColumns = `id, user_id, title, to_char(event_date, 'YYYY-MM-DD'), event_time, venue, organizer,
	attendance, impact, summary, teacher_name, teacher_designation, images, language,
	custom_field_values, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*database.Report, error) {
	var r database.Report
	var values []byte
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Title, &r.Date, &r.Time, &r.Venue, &r.Organizer,
		&r.Attendance, &r.Impact, &r.Summary, &r.TeacherName, &r.TeacherDesignation,
		pq.Array(&r.Images), &r.Language, &values, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	if len(values) > 0 {
		if err := json.Unmarshal(values, &r.CustomFieldValues); err != nil {
			return nil, fmt.Errorf("decode custom field values: %w", err)
		}
	}
	return &r, nil
}

func encodeFieldValues(values map[string]string) ([]byte, error) {
	if values == nil {
		values = map[string]string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode custom field values: %w", err)
	}
	return data, nil
}

func (r *ReportRepository) CreateReport(ctx context.Context, report *database.Report) error {
	if report.ID == "" {
		report.ID = newID()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	report.UpdatedAt = report.CreatedAt
	values, err := encodeFieldValues(report.CustomFieldValues)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO reports (id, user_id, title, event_date, event_time, venue, organizer, attendance,
			impact, summary, teacher_name, teacher_designation, images, language, custom_field_values,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		report.ID, report.OwnerID, report.Title, report.Date, report.Time, report.Venue, report.Organizer,
		report.Attendance, report.Impact, report.Summary, report.TeacherName, report.TeacherDesignation,
		pq.Array(report.Images), report.Language, values, report.CreatedAt, report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetReport(ctx context.Context, ownerID, id string) (*database.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	report, err := scanReport(r.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1 AND user_id = $2`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// FindReport looks a report up by id regardless of owner. It backs the
// command line export, which runs outside any session.
func (r *ReportRepository) FindReport(ctx context.Context, id string) (*database.Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	report, err := scanReport(r.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find report: %w", err)
	}
	return report, nil
}

func (r *ReportRepository) ListReports(ctx context.Context, ownerID string, page int) (*database.ReportPage, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE user_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}

	from, to := database.PageRange(page)
	reports, err := r.queryReports(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE user_id = $1
		 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		ownerID, to-from+1, from)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return database.NewReportPage(reports, page, total), nil
}

func (r *ReportRepository) ListAllReports(ctx context.Context, ownerID string) ([]database.Report, error) {
	reports, err := r.queryReports(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE user_id = $1 ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list all reports: %w", err)
	}
	return reports, nil
}

func (r *ReportRepository) queryReports(ctx context.Context, query string, args ...any) ([]database.Report, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reports := []database.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func (r *ReportRepository) UpdateReport(ctx context.Context, report *database.Report) error {
	if _, err := uuid.Parse(report.ID); err != nil {
		return fmt.Errorf("update report: %w", database.ErrNotFound)
	}
	report.UpdatedAt = time.Now()
	values, err := encodeFieldValues(report.CustomFieldValues)
	if err != nil {
		return err
	}
	result, err := r.pool.Exec(ctx,
		`UPDATE reports SET title = $1, event_date = $2, event_time = $3, venue = $4, organizer = $5,
			attendance = $6, impact = $7, summary = $8, teacher_name = $9, teacher_designation = $10,
			images = $11, language = $12, custom_field_values = $13, updated_at = $14
		 WHERE id = $15 AND user_id = $16`,
		report.Title, report.Date, report.Time, report.Venue, report.Organizer, report.Attendance,
		report.Impact, report.Summary, report.TeacherName, report.TeacherDesignation,
		pq.Array(report.Images), report.Language, values, report.UpdatedAt, report.ID, report.OwnerID)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return requireAffected(result, "update report")
}

func (r *ReportRepository) DeleteReport(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("delete report: %w", database.ErrNotFound)
	}
	result, err := r.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return requireAffected(result, "delete report")
}

func requireAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: getting rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrNotFound)
	}
	return nil
}
