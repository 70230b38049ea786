package command_router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

type fakeConversation struct {
	mu     sync.Mutex
	calls  []string
	inputs []models.IncomingMessage
}

func (f *fakeConversation) record(call string, msg models.IncomingMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.inputs = append(f.inputs, msg)
}

func (f *fakeConversation) Start(msg models.IncomingMessage)  { f.record("start", msg) }
func (f *fakeConversation) Handle(msg models.IncomingMessage) { f.record("handle", msg) }
func (f *fakeConversation) Cancel(msg models.IncomingMessage) { f.record("cancel", msg) }

type fakeLister struct {
	reports []*models.LeakReport
	err     error
}

func (f *fakeLister) ListByReporter(context.Context, int64) ([]*models.LeakReport, error) {
	return f.reports, f.err
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []models.OutgoingMessage
}

func (c *fakeChannel) Send(_ context.Context, _ int64, msg models.OutgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeChannel) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, m := range c.sent {
		out[i] = m.Text
	}
	return out
}

func newTestRouter(t *testing.T, lister *fakeLister) (*Router, *fakeConversation, *fakeChannel) {
	conv := &fakeConversation{}
	ch := &fakeChannel{}
	if lister == nil {
		lister = &fakeLister{}
	}
	return NewRouter(conv, lister, ch, zaptest.NewLogger(t)), conv, ch
}

func TestRouteConversationCommands(t *testing.T) {
	tests := []struct {
		msg  models.IncomingMessage
		want string
	}{
		{models.IncomingMessage{Command: "start"}, "start"},
		{models.IncomingMessage{Command: "signaler"}, "start"},
		{models.IncomingMessage{Text: "🚨 Signaler une fuite"}, "start"},
		{models.IncomingMessage{Command: "cancel"}, "cancel"},
		{models.IncomingMessage{Command: "Annuler"}, "cancel"},
		{models.IncomingMessage{Text: "❌ Annuler"}, "cancel"},
		{models.IncomingMessage{Text: "🌊 Moyenne"}, "handle"},
		{models.IncomingMessage{Photo: &models.PhotoFile{FileID: "f"}}, "handle"},
		{models.IncomingMessage{Location: &models.Coordinates{Latitude: 1, Longitude: 2}}, "handle"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s%s", tt.msg.Command, tt.msg.Text), func(t *testing.T) {
			r, conv, ch := newTestRouter(t, nil)
			r.Route(context.Background(), tt.msg)
			r.Wait()

			if len(conv.calls) != 1 || conv.calls[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", conv.calls, tt.want)
			}
			if len(ch.texts()) != 0 {
				t.Errorf("router replied on its own: %v", ch.texts())
			}
		})
	}
}

func TestRouteStaticCommands(t *testing.T) {
	tests := map[string]string{
		"help":            "WaterAlert",
		"aide":            "WaterAlert",
		"about":           "À propos",
		"apropos":         "À propos",
		"privacy":         "Confidentialité",
		"confidentialite": "Confidentialité",
		"contact":         "Contact",
		"bogus":           "Commande inconnue",
	}
	for cmd, want := range tests {
		t.Run(cmd, func(t *testing.T) {
			r, conv, ch := newTestRouter(t, nil)
			r.Route(context.Background(), models.IncomingMessage{ReporterID: 1, Command: cmd})
			r.Wait()

			texts := ch.texts()
			if len(texts) != 1 || !strings.Contains(texts[0], want) {
				t.Errorf("replies = %v, want one containing %q", texts, want)
			}
			if len(conv.calls) != 0 {
				t.Errorf("conversation touched: %v", conv.calls)
			}
		})
	}
}

func TestStatusListing(t *testing.T) {
	tech := "Marc"
	long := "12 Rue de la République, Quartier de la Part-Dieu, 69003 Lyon, France"
	lister := &fakeLister{reports: []*models.LeakReport{
		{ID: 12, Status: models.StatusInProgress, Address: &long, UserSeverity: models.SeverityHigh, Technician: &tech, CreatedAt: time.Now()},
		{ID: 3, Status: models.StatusReported, UserSeverity: ""},
	}}
	r, _, ch := newTestRouter(t, lister)

	r.Route(context.Background(), models.IncomingMessage{ReporterID: 1, Command: "mes_signalements"})
	r.Wait()

	texts := ch.texts()
	if len(texts) != 1 {
		t.Fatalf("replies = %d, want 1", len(texts))
	}
	got := texts[0]
	for _, want := range []string{"`#12` | En cours", "👷 Technicien: Marc", "Sévérité: Élevée", "`#3` | Signalé", "Sévérité: Inconnue", "Adresse inconnue"} {
		if !strings.Contains(got, want) {
			t.Errorf("listing missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(got, string([]rune(long)[:40])+"...") || strings.Contains(got, "France") {
		t.Errorf("address not truncated:\n%s", got)
	}
	if strings.Index(got, "#12") > strings.Index(got, "#3") {
		t.Errorf("listing order changed")
	}
}

func TestStatusListingBounded(t *testing.T) {
	var reports []*models.LeakReport
	for i := 20; i > 0; i-- {
		reports = append(reports, &models.LeakReport{ID: int64(i), Status: models.StatusReported})
	}
	got := renderStatus(reports)
	if strings.Count(got, "🆔") != maxListedReports {
		t.Errorf("listed %d reports, want %d", strings.Count(got, "🆔"), maxListedReports)
	}
	if !strings.Contains(got, "et 5 plus ancien(s)") {
		t.Errorf("hidden reports not mentioned:\n%s", got)
	}
}

func TestStatusEmptyAndError(t *testing.T) {
	r, _, ch := newTestRouter(t, &fakeLister{})
	r.Route(context.Background(), models.IncomingMessage{ReporterID: 1, Text: "📋 Mes signalements"})
	r.Wait()
	if texts := ch.texts(); len(texts) != 1 || texts[0] != noReportsText {
		t.Errorf("replies = %v", texts)
	}

	r, _, ch = newTestRouter(t, &fakeLister{err: errors.New("database is locked")})
	r.Route(context.Background(), models.IncomingMessage{ReporterID: 1, Command: "status"})
	r.Wait()
	if texts := ch.texts(); len(texts) != 1 || texts[0] != statusErrorText {
		t.Errorf("replies = %v", texts)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Élevée", 3); got != "Éle..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("court", 40); got != "court" {
		t.Errorf("truncate = %q", got)
	}
}
