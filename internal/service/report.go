package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/metrics"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/repository"
)

// Notifier informs a reporter that a report changed status.
type Notifier interface {
	Notify(ctx context.Context, reporterID, reportID int64, status models.Status)
}

// ReportService applies operator actions to reports.
type ReportService struct {
	repo          repository.ReportRepository
	notifier      Notifier
	notifyTimeout time.Duration
	metrics       *metrics.Metrics
	logger        *zap.Logger
	wg            sync.WaitGroup
}

func NewReportService(repo repository.ReportRepository, notifier Notifier, notifyTimeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *ReportService {
	if notifyTimeout <= 0 {
		notifyTimeout = 20 * time.Second
	}
	return &ReportService{
		repo:          repo,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		metrics:       m,
		logger:        logger,
	}
}

func (s *ReportService) List(ctx context.Context) ([]*models.LeakReport, error) {
	return s.repo.GetAll(ctx)
}

func (s *ReportService) Get(ctx context.Context, id int64) (*models.LeakReport, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ReportService) ListByReporter(ctx context.Context, reporterID int64) ([]*models.LeakReport, error) {
	return s.repo.GetByReporter(ctx, reporterID)
}

func (s *ReportService) Stats(ctx context.Context) (*models.ReportStats, error) {
	return s.repo.Stats(ctx)
}

// UpdateStatus moves a report forward and schedules one notification to its reporter.
// Setting the current status again is allowed and notifies again.
// The notification outcome never affects the returned result.
func (s *ReportService) UpdateStatus(ctx context.Context, id int64, status models.Status, technician *string) (*models.LeakReport, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownStatus, status)
	}
	if technician != nil && *technician == "" {
		technician = nil
	}

	report, err := s.repo.UpdateStatus(ctx, id, status, technician)
	if err != nil {
		if errors.Is(err, repository.ErrStatusRegression) {
			current := models.Status("")
			if report != nil {
				current = report.Status
			}
			s.logger.Warn("Rejected status regression",
				zap.Int64("report_id", id),
				zap.String("current", string(current)),
				zap.String("requested", string(status)))
		}
		return nil, err
	}

	s.metrics.StatusUpdated(string(report.Status))
	s.logger.Info("Report status updated",
		zap.Int64("report_id", report.ID),
		zap.String("status", string(report.Status)))

	s.wg.Add(1)
	go func(reporterID, reportID int64, status models.Status) {
		defer s.wg.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()
		s.notifier.Notify(nctx, reporterID, reportID, status)
	}(report.ReporterID, report.ID, report.Status)

	return report, nil
}

// Wait blocks until scheduled notifications have been attempted.
func (s *ReportService) Wait() {
	s.wg.Wait()
}
