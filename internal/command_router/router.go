package command_router

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/conversation"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

// Conversation is the intake state machine.
type Conversation interface {
	Start(msg models.IncomingMessage)
	Handle(msg models.IncomingMessage)
	Cancel(msg models.IncomingMessage)
}

// ReportLister returns a reporter's reports, newest first.
type ReportLister interface {
	ListByReporter(ctx context.Context, reporterID int64) ([]*models.LeakReport, error)
}

// Channel delivers messages to a reporter.
type Channel interface {
	Send(ctx context.Context, reporterID int64, msg models.OutgoingMessage) error
}

type action int

const (
	actionStart action = iota
	actionCancel
	actionStatus
	actionHelp
	actionAbout
	actionPrivacy
	actionContact
)

var commands = map[string]action{
	"start":            actionStart,
	"signaler":         actionStart,
	"cancel":           actionCancel,
	"annuler":          actionCancel,
	"status":           actionStatus,
	"mes_signalements": actionStatus,
	"help":             actionHelp,
	"aide":             actionHelp,
	"about":            actionAbout,
	"apropos":          actionAbout,
	"privacy":          actionPrivacy,
	"confidentialite":  actionPrivacy,
	"contact":          actionContact,
}

var keywords = map[string]action{
	conversation.ButtonReport:    actionStart,
	conversation.ButtonCancel:    actionCancel,
	conversation.ButtonMyReports: actionStatus,
}

const (
	maxListedReports = 15
	maxAddressRunes  = 40
)

// Router dispatches inbound messages. Route must be called in arrival order;
// conversation input keeps that order, stateless replies are sent in the background.
type Router struct {
	conversation Conversation
	reports      ReportLister
	channel      Channel
	logger       *zap.Logger
	wg           sync.WaitGroup
}

func NewRouter(conv Conversation, reports ReportLister, channel Channel, logger *zap.Logger) *Router {
	return &Router{
		conversation: conv,
		reports:      reports,
		channel:      channel,
		logger:       logger,
	}
}

func (r *Router) Route(ctx context.Context, msg models.IncomingMessage) {
	act, ok := r.resolve(msg)
	if !ok {
		if msg.IsCommand() {
			r.reply(ctx, msg.ReporterID, models.OutgoingMessage{Text: unknownCommandText})
			return
		}
		r.conversation.Handle(msg)
		return
	}

	switch act {
	case actionStart:
		r.conversation.Start(msg)
	case actionCancel:
		r.conversation.Cancel(msg)
	case actionStatus:
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.sendStatus(ctx, msg.ReporterID)
		}()
	case actionHelp:
		r.reply(ctx, msg.ReporterID, models.OutgoingMessage{Text: helpText, Markdown: true, Keyboard: conversation.MainMenu})
	case actionAbout:
		r.reply(ctx, msg.ReporterID, models.OutgoingMessage{Text: aboutText, Markdown: true})
	case actionPrivacy:
		r.reply(ctx, msg.ReporterID, models.OutgoingMessage{Text: privacyText, Markdown: true})
	case actionContact:
		r.reply(ctx, msg.ReporterID, models.OutgoingMessage{Text: contactText, Markdown: true})
	}
}

// Wait blocks until background replies have been sent.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) resolve(msg models.IncomingMessage) (action, bool) {
	if msg.IsCommand() {
		act, ok := commands[strings.ToLower(msg.Command)]
		return act, ok
	}
	if msg.Photo != nil || msg.Location != nil {
		return 0, false
	}
	act, ok := keywords[strings.TrimSpace(msg.Text)]
	return act, ok
}

func (r *Router) reply(ctx context.Context, reporterID int64, msg models.OutgoingMessage) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.send(ctx, reporterID, msg)
	}()
}

func (r *Router) send(ctx context.Context, reporterID int64, msg models.OutgoingMessage) {
	if err := r.channel.Send(ctx, reporterID, msg); err != nil {
		r.logger.Warn("Failed to send reply", zap.Int64("reporter_id", reporterID), zap.Error(err))
	}
}

func (r *Router) sendStatus(ctx context.Context, reporterID int64) {
	reports, err := r.reports.ListByReporter(ctx, reporterID)
	if err != nil {
		r.logger.Error("Failed to list reports", zap.Int64("reporter_id", reporterID), zap.Error(err))
		r.send(ctx, reporterID, models.OutgoingMessage{Text: statusErrorText})
		return
	}
	if len(reports) == 0 {
		r.send(ctx, reporterID, models.OutgoingMessage{Text: noReportsText, Keyboard: conversation.MainMenu})
		return
	}
	r.send(ctx, reporterID, models.OutgoingMessage{Text: renderStatus(reports), Markdown: true})
}

func renderStatus(reports []*models.LeakReport) string {
	var b strings.Builder
	b.WriteString("*Mes signalements :*\n\n")

	shown := reports
	if len(shown) > maxListedReports {
		shown = shown[:maxListedReports]
	}
	for _, r := range shown {
		fmt.Fprintf(&b, "🆔 `#%d` | %s\n", r.ID, r.Status)
		fmt.Fprintf(&b, "📍 %s\n", models.EscapeMarkdown(truncate(r.AddressOr(conversation.AddressUnknown), maxAddressRunes)))
		fmt.Fprintf(&b, "⚠️ Sévérité: %s\n", r.UserSeverity.OrUnknown())
		if r.Technician != nil && *r.Technician != "" {
			fmt.Fprintf(&b, "👷 Technicien: %s\n", models.EscapeMarkdown(*r.Technician))
		}
		b.WriteString("---\n")
	}
	if hidden := len(reports) - len(shown); hidden > 0 {
		fmt.Fprintf(&b, "… et %d plus ancien(s)", hidden)
	}
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
