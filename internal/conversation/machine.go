package conversation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/classifier"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/geocoder"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

func (e *Engine) process(ctx context.Context, s *session, gen uint64, in input) {
	switch in.kind {
	case inputStart:
		e.start(ctx, s, gen, in.msg)
		return
	case inputReply:
		e.send(ctx, in.msg.ReporterID, in.reply)
		return
	}

	s.mu.Lock()
	state := s.state
	if in.msg.DisplayName != "" {
		s.displayName = in.msg.DisplayName
	}
	s.mu.Unlock()

	switch state {
	case StateAwaitingPhoto:
		e.onPhoto(ctx, s, gen, in.msg)
	case StateAwaitingSeverity:
		e.onSeverity(ctx, s, gen, in.msg)
	case StateAwaitingLocation:
		e.onLocation(ctx, s, gen, in.msg)
	default:
		e.send(ctx, in.msg.ReporterID, msgIdleHint())
	}
}

func (e *Engine) start(ctx context.Context, s *session, gen uint64, msg models.IncomingMessage) {
	var orphan string
	if !s.commit(gen, e.now(), func() {
		orphan = s.reset()
		s.state = StateAwaitingPhoto
		if msg.DisplayName != "" {
			s.displayName = msg.DisplayName
		}
	}) {
		return
	}
	e.removePhoto(orphan)

	e.logger.Debug("Report started", zap.Int64("reporter_id", msg.ReporterID))
	e.send(ctx, msg.ReporterID, msgAskPhoto())
}

func (e *Engine) onPhoto(ctx context.Context, s *session, gen uint64, msg models.IncomingMessage) {
	if msg.Photo == nil {
		e.send(ctx, msg.ReporterID, msgPhotoExpected())
		return
	}
	e.send(ctx, msg.ReporterID, msgAnalyzing())

	data, err := e.deps.Files.Fetch(ctx, *msg.Photo)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("Failed to download photo", zap.Int64("reporter_id", msg.ReporterID), zap.Error(err))
			e.send(ctx, msg.ReporterID, msgPhotoUnavailable())
		}
		return
	}

	ref, err := e.deps.Photos.Save(ctx, msg.ReporterID, data)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Error("Failed to store photo", zap.Int64("reporter_id", msg.ReporterID), zap.Error(err))
			e.send(ctx, msg.ReporterID, msgPhotoUnavailable())
		}
		return
	}

	analysis, err := e.analyze(ctx, msg.ReporterID, data)
	if err != nil {
		e.removePhoto(ref)
		if ctx.Err() == nil {
			e.send(ctx, msg.ReporterID, msgPhotoUnavailable())
		}
		return
	}

	if !analysis.IsLeak {
		e.removePhoto(ref)
		if s.commit(gen, e.now(), func() {}) {
			e.logger.Info("Photo rejected by classifier", zap.Int64("reporter_id", msg.ReporterID))
			e.send(ctx, msg.ReporterID, msgNoLeak())
		}
		return
	}

	var orphan string
	if !s.commit(gen, e.now(), func() {
		orphan = s.draft.photoRef
		s.draft.photoRef = ref
		s.draft.aiSeverity = analysis.Severity
		s.draft.aiSource = analysis.Source
		s.state = StateAwaitingSeverity
	}) {
		// cancelled while the photo was being analyzed
		e.removePhoto(ref)
		return
	}
	e.removePhoto(orphan)

	e.logger.Info("Photo accepted",
		zap.Int64("reporter_id", msg.ReporterID),
		zap.String("ai_severity", string(analysis.Severity)),
		zap.String("source", string(analysis.Source)))
	e.send(ctx, msg.ReporterID, msgAskSeverity(analysis))
}

// analyze asks the primary classifier and falls back to the simulated one on failure.
func (e *Engine) analyze(ctx context.Context, reporterID int64, data []byte) (*classifier.Analysis, error) {
	analysis, err := e.deps.Classifier.Analyze(ctx, data)
	if err == nil {
		analysis.Severity = bucket(analysis.Severity)
		return analysis, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	e.logger.Warn("Classifier failed, using simulation", zap.Int64("reporter_id", reporterID), zap.Error(err))
	e.deps.Metrics.ClassifierFallback()

	analysis, err = e.deps.Fallback.Analyze(ctx, data)
	if err != nil {
		return nil, err
	}
	analysis.Severity = bucket(analysis.Severity)
	return analysis, nil
}

// bucket keeps classifier output inside the three confirmable severities.
func bucket(sev models.Severity) models.Severity {
	for _, s := range models.Severities {
		if s == sev {
			return sev
		}
	}
	return models.SeverityMedium
}

func (e *Engine) onSeverity(ctx context.Context, s *session, gen uint64, msg models.IncomingMessage) {
	s.mu.Lock()
	estimate := s.draft.aiSeverity
	s.mu.Unlock()

	sev, ok := models.MatchSeverity(msg.Text)
	if !ok {
		e.send(ctx, msg.ReporterID, msgSeverityNotUnderstood(estimate))
		return
	}

	if !s.commit(gen, e.now(), func() {
		s.draft.userSeverity = sev
		s.state = StateAwaitingLocation
	}) {
		return
	}
	e.send(ctx, msg.ReporterID, msgAskLocation(sev))
}

func (e *Engine) onLocation(ctx context.Context, s *session, gen uint64, msg models.IncomingMessage) {
	if msg.Location == nil {
		e.send(ctx, msg.ReporterID, msgLocationExpected())
		return
	}
	coords := *msg.Location

	address := e.reverse(ctx, msg.ReporterID, coords)
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	report := &models.LeakReport{
		ReporterID:          msg.ReporterID,
		ReporterDisplayName: s.displayName,
		PhotoRef:            s.draft.photoRef,
		Coordinates:         coords,
		Address:             &address,
		UserSeverity:        s.draft.userSeverity.OrUnknown(),
		AISeverity:          s.draft.aiSeverity.OrUnknown(),
		Status:              models.StatusReported,
		CreatedAt:           e.now().UTC(),
	}
	s.mu.Unlock()

	id, err := e.deps.Store.Insert(ctx, report)
	if err != nil {
		if ctx.Err() != nil || !s.commit(gen, e.now(), func() {}) {
			return
		}
		// the draft is kept so the reporter can resend the location
		e.logger.Error("Failed to save report", zap.Int64("reporter_id", msg.ReporterID), zap.Error(err))
		e.send(ctx, msg.ReporterID, msgSaveFailed())
		return
	}

	if !s.commit(gen, e.now(), func() {
		s.draft = draft{}
		s.state = StateIdle
	}) {
		// cancelled while the report was being written
		e.discardReport(ctx, msg.ReporterID, id)
		return
	}

	e.deps.Metrics.ReportCreated()
	e.logger.Info("Report saved",
		zap.Int64("reporter_id", msg.ReporterID),
		zap.Int64("report_id", id),
		zap.String("severity", string(report.UserSeverity)),
		zap.String("ai_severity", string(report.AISeverity)))
	e.send(ctx, msg.ReporterID, msgSaved(id, address))
}

// discardReport deletes a report whose conversation was cancelled during the insert.
func (e *Engine) discardReport(ctx context.Context, reporterID, reportID int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := e.deps.Store.Delete(ctx, reportID); err != nil {
		e.logger.Error("Failed to discard report of a cancelled conversation",
			zap.Int64("reporter_id", reporterID), zap.Int64("report_id", reportID), zap.Error(err))
		return
	}
	e.logger.Info("Report discarded after cancel", zap.Int64("reporter_id", reporterID), zap.Int64("report_id", reportID))
}

// reverse never fails: a placeholder stands in for an unresolved address.
func (e *Engine) reverse(ctx context.Context, reporterID int64, c models.Coordinates) string {
	address, err := e.deps.Geocoder.Reverse(ctx, c.Latitude, c.Longitude)
	switch {
	case err == nil && address != "":
		return address
	case err == nil, errors.Is(err, geocoder.ErrNoResult):
		return AddressUnknown
	default:
		if ctx.Err() == nil {
			e.logger.Warn("Reverse geocoding failed", zap.Int64("reporter_id", reporterID), zap.Error(err))
			e.deps.Metrics.GeocoderFailure()
		}
		return AddressGeocodeError
	}
}
