package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/metrics"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

// Sender delivers one message to a reporter.
type Sender interface {
	Send(ctx context.Context, reporterID int64, msg models.OutgoingMessage) error
}

// Dispatcher tells reporters about status changes of their reports.
// Delivery is attempted once; failures are only logged.
type Dispatcher struct {
	sender  Sender
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewDispatcher(sender Sender, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, metrics: m, logger: logger}
}

// Render returns the notification text for a new status.
func Render(reportID int64, status models.Status) string {
	switch status {
	case models.StatusInProgress:
		return fmt.Sprintf("🛠️ Votre signalement #%d est maintenant *en cours d'intervention*.", reportID)
	case models.StatusResolved:
		return fmt.Sprintf("✅ Bonne nouvelle ! La fuite signalée (#%d) a été *réparée*. Merci de votre aide !", reportID)
	default:
		return fmt.Sprintf("ℹ️ Le statut de votre signalement #%d a été mis à jour : *%s*.", reportID, models.EscapeMarkdown(string(status)))
	}
}

// Notify sends the status message to the reporter.
func (d *Dispatcher) Notify(ctx context.Context, reporterID, reportID int64, status models.Status) {
	msg := models.OutgoingMessage{Text: Render(reportID, status), Markdown: true}

	if err := d.sender.Send(ctx, reporterID, msg); err != nil {
		d.metrics.Notification("failed")
		d.logger.Error("Failed to deliver status notification",
			zap.Int64("reporter_id", reporterID),
			zap.Int64("report_id", reportID),
			zap.String("status", string(status)),
			zap.Error(err))
		return
	}

	d.metrics.Notification("sent")
	d.logger.Info("Status notification sent",
		zap.Int64("reporter_id", reporterID),
		zap.Int64("report_id", reportID),
		zap.String("status", string(status)))
}
