package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

var (
	ErrReportNotFound   = errors.New("report not found")
	ErrStatusRegression = errors.New("report status cannot move backwards")
)

type ReportRepository interface {
	Insert(ctx context.Context, report *models.LeakReport) (int64, error)
	GetAll(ctx context.Context) ([]*models.LeakReport, error)
	GetByID(ctx context.Context, id int64) (*models.LeakReport, error)
	GetByReporter(ctx context.Context, reporterID int64) ([]*models.LeakReport, error)
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status models.Status, technician *string) (*models.LeakReport, error)
	Stats(ctx context.Context) (*models.ReportStats, error)
}

// reportRow mirrors the leaks table. Columns added by later migrations are
// nullable so rows written by older schema versions still scan.
type reportRow struct {
	ID         int64           `db:"id"`
	UserID     int64           `db:"user_id"`
	UserName   sql.NullString  `db:"user_name"`
	PhotoPath  sql.NullString  `db:"photo_path"`
	Latitude   sql.NullFloat64 `db:"latitude"`
	Longitude  sql.NullFloat64 `db:"longitude"`
	Address    sql.NullString  `db:"address"`
	Severity   sql.NullString  `db:"severity"`
	AISeverity sql.NullString  `db:"ai_severity"`
	Technician sql.NullString  `db:"technician"`
	Status     sql.NullString  `db:"status"`
	CreatedAt  time.Time       `db:"created_at"`
}

const reportColumns = `id, user_id, user_name, photo_path, latitude, longitude, address, severity, ai_severity, technician, status, created_at`

func (r *reportRow) toModel() *models.LeakReport {
	report := &models.LeakReport{
		ID:                  r.ID,
		ReporterID:          r.UserID,
		ReporterDisplayName: r.UserName.String,
		PhotoRef:            r.PhotoPath.String,
		Coordinates: models.Coordinates{
			Latitude:  r.Latitude.Float64,
			Longitude: r.Longitude.Float64,
		},
		UserSeverity: models.Severity(r.Severity.String).OrUnknown(),
		AISeverity:   models.Severity(r.AISeverity.String).OrUnknown(),
		Status:       models.Status(r.Status.String),
		CreatedAt:    r.CreatedAt,
	}
	if r.Address.Valid {
		address := r.Address.String
		report.Address = &address
	}
	if r.Technician.Valid && r.Technician.String != "" {
		technician := r.Technician.String
		report.Technician = &technician
	}
	if report.Status == "" {
		report.Status = models.StatusReported
	}
	return report
}

type reportRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewReportRepository(db *sqlx.DB, logger *zap.Logger) ReportRepository {
	return &reportRepository{db: db, logger: logger}
}

// Insert stores a new report and assigns its ID and creation time.
func (r *reportRepository) Insert(ctx context.Context, report *models.LeakReport) (int64, error) {
	if report.Status == "" {
		report.Status = models.StatusReported
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`INSERT INTO leaks (user_id, user_name, photo_path, latitude, longitude, address, severity, ai_severity, technician, status, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		report.ReporterID,
		report.ReporterDisplayName,
		report.PhotoRef,
		report.Coordinates.Latitude,
		report.Coordinates.Longitude,
		report.Address,
		string(report.UserSeverity.OrUnknown()),
		string(report.AISeverity.OrUnknown()),
		report.Technician,
		string(report.Status),
		report.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	report.ID = id
	return id, nil
}

func (r *reportRepository) GetAll(ctx context.Context) ([]*models.LeakReport, error) {
	query := `SELECT ` + reportColumns + ` FROM leaks ORDER BY created_at DESC, id DESC`
	return r.selectReports(ctx, query)
}

func (r *reportRepository) GetByReporter(ctx context.Context, reporterID int64) ([]*models.LeakReport, error) {
	query := r.db.Rebind(`SELECT ` + reportColumns + ` FROM leaks WHERE user_id = ? ORDER BY created_at DESC, id DESC`)
	return r.selectReports(ctx, query, reporterID)
}

func (r *reportRepository) selectReports(ctx context.Context, query string, args ...interface{}) ([]*models.LeakReport, error) {
	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}

	reports := make([]*models.LeakReport, 0, len(rows))
	for i := range rows {
		reports = append(reports, rows[i].toModel())
	}
	return reports, nil
}

// Delete removes a report. Deleting a missing report returns ErrReportNotFound.
func (r *reportRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM leaks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete report %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete report %d: %w", id, err)
	}
	if affected == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id int64) (*models.LeakReport, error) {
	return getByID(ctx, r.db, id)
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getByID(ctx context.Context, q queryer, id int64) (*models.LeakReport, error) {
	var row reportRow
	query := q.Rebind(`SELECT ` + reportColumns + ` FROM leaks WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report %d: %w", id, err)
	}
	return row.toModel(), nil
}

// UpdateStatus moves a report to status, optionally overwriting the technician.
// The status check and both fields are written by one conditional UPDATE, so
// concurrent updates of the same report never lose a field.
func (r *reportRepository) UpdateStatus(ctx context.Context, id int64, status models.Status, technician *string) (*models.LeakReport, error) {
	if !status.Valid() {
		return nil, models.ErrUnknownStatus
	}

	predecessors := make([]string, 0, len(models.Statuses))
	for _, st := range status.Predecessors() {
		predecessors = append(predecessors, string(st))
	}

	query, args, err := sqlx.In(
		`UPDATE leaks SET status = ?, technician = COALESCE(?, technician)
		 WHERE id = ? AND (status IN (?) OR status IS NULL)`,
		string(status), technician, id, predecessors,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build status update: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update report %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update report %d: %w", id, err)
	}

	report, err := getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return report, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, report.Status, status)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}
	return report, nil
}

func (r *reportRepository) Stats(ctx context.Context) (*models.ReportStats, error) {
	stats := &models.ReportStats{
		ByStatus:   make(map[models.Status]int),
		BySeverity: make(map[models.Severity]int),
	}

	var byStatus []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	err := r.db.SelectContext(ctx, &byStatus,
		`SELECT COALESCE(status, 'Signalé') AS status, COUNT(*) AS count FROM leaks GROUP BY COALESCE(status, 'Signalé')`)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports by status: %w", err)
	}
	for _, s := range byStatus {
		stats.ByStatus[models.Status(s.Status)] += s.Count
		stats.Total += s.Count
	}

	var bySeverity []struct {
		Severity string `db:"severity"`
		Count    int    `db:"count"`
	}
	err = r.db.SelectContext(ctx, &bySeverity,
		`SELECT COALESCE(severity, 'Inconnue') AS severity, COUNT(*) AS count FROM leaks GROUP BY COALESCE(severity, 'Inconnue')`)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports by severity: %w", err)
	}
	for _, s := range bySeverity {
		stats.BySeverity[models.Severity(s.Severity).OrUnknown()] += s.Count
	}

	return stats, nil
}
