package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/classifier"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

type fakeChannel struct {
	mu   sync.Mutex
	sent map[int64][]models.OutgoingMessage
}

func (c *fakeChannel) Send(_ context.Context, reporterID int64, msg models.OutgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent == nil {
		c.sent = make(map[int64][]models.OutgoingMessage)
	}
	c.sent[reporterID] = append(c.sent[reporterID], msg)
	return nil
}

func (c *fakeChannel) messages(reporterID int64) []models.OutgoingMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.OutgoingMessage(nil), c.sent[reporterID]...)
}

func (c *fakeChannel) last(reporterID int64) models.OutgoingMessage {
	msgs := c.messages(reporterID)
	if len(msgs) == 0 {
		return models.OutgoingMessage{}
	}
	return msgs[len(msgs)-1]
}

type fakeStore struct {
	mu      sync.Mutex
	next    int64
	reports []*models.LeakReport
	err     error
}

func (s *fakeStore) Insert(_ context.Context, r *models.LeakReport) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.next++
	cp := *r
	cp.ID = s.next
	s.reports = append(s.reports, &cp)
	return cp.ID, nil
}

func (s *fakeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reports {
		if r.ID == id {
			s.reports = append(s.reports[:i], s.reports[i+1:]...)
			return nil
		}
	}
	return errors.New("report not found")
}

func (s *fakeStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *fakeStore) all() []*models.LeakReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.LeakReport(nil), s.reports...)
}

// slowStore holds every Insert until release is closed, whatever the context says.
type slowStore struct {
	fakeStore
	entered chan struct{}
	release chan struct{}
}

func newSlowStore() *slowStore {
	return &slowStore{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *slowStore) Insert(ctx context.Context, r *models.LeakReport) (int64, error) {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
	return s.fakeStore.Insert(ctx, r)
}

type fakeGeocoder struct {
	address string
	err     error
}

func (g *fakeGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	return g.address, g.err
}

type fakePhotos struct {
	mu    sync.Mutex
	next  int
	files map[string][]byte
}

func (p *fakePhotos) Save(_ context.Context, reporterID int64, data []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.files == nil {
		p.files = make(map[string][]byte)
	}
	p.next++
	ref := fmt.Sprintf("uploads/%d_%d.jpg", reporterID, p.next)
	p.files[ref] = data
	return ref, nil
}

func (p *fakePhotos) Remove(ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.files, ref)
	return nil
}

func (p *fakePhotos) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.files)
}

func (p *fakePhotos) has(ref string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.files[ref]
	return ok
}

type fakeFiles struct{}

func (fakeFiles) Fetch(_ context.Context, f models.PhotoFile) ([]byte, error) {
	return []byte("jpeg:" + f.FileID), nil
}

// scriptedClassifier returns a fixed answer per photo id ("leak-small", "noleak", "fail").
type scriptedClassifier struct{}

func (scriptedClassifier) Analyze(_ context.Context, image []byte) (*classifier.Analysis, error) {
	id := strings.TrimPrefix(string(image), "jpeg:")
	switch {
	case id == "noleak":
		return &classifier.Analysis{IsLeak: false, Severity: models.SeveritySmall, Description: "un chat", Source: classifier.SourceGemini}, nil
	case id == "fail":
		return nil, errors.New("gemini API error: unavailable")
	case strings.HasPrefix(id, "leak-"):
		sev, err := models.ParseSeverity(strings.TrimPrefix(id, "leak-"))
		if err != nil {
			return nil, err
		}
		return &classifier.Analysis{IsLeak: true, Severity: sev, Description: "fuite visible", Source: classifier.SourceGemini}, nil
	}
	return &classifier.Analysis{IsLeak: true, Severity: models.SeverityMedium, Description: "fuite", Source: classifier.SourceGemini}, nil
}

// blockingClassifier blocks until its context is cancelled.
type blockingClassifier struct {
	started chan struct{}
}

func (b *blockingClassifier) Analyze(ctx context.Context, _ []byte) (*classifier.Analysis, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

type harness struct {
	engine  *Engine
	channel *fakeChannel
	store   *fakeStore
	geo     *fakeGeocoder
	photos  *fakePhotos
}

func newHarness(t *testing.T, c classifier.Classifier) *harness {
	t.Helper()
	h := &harness{
		channel: &fakeChannel{},
		store:   &fakeStore{},
		geo:     &fakeGeocoder{address: "Place de l'Hôtel de Ville, 75004 Paris"},
		photos:  &fakePhotos{},
	}
	if c == nil {
		c = scriptedClassifier{}
	}
	h.engine = NewEngine(Deps{
		Classifier: c,
		Fallback:   classifier.NewFixed(models.SeverityHigh),
		Store:      h.store,
		Geocoder:   h.geo,
		Photos:     h.photos,
		Files:      fakeFiles{},
		Channel:    h.channel,
	}, zaptest.NewLogger(t))
	t.Cleanup(h.engine.Close)
	return h
}

func startMsg(id int64) models.IncomingMessage {
	return models.IncomingMessage{ReporterID: id, DisplayName: "Jeanne Dupont", Command: "start"}
}

func photoMsg(id int64, fileID string) models.IncomingMessage {
	return models.IncomingMessage{ReporterID: id, DisplayName: "Jeanne Dupont", Photo: &models.PhotoFile{FileID: fileID, UniqueID: fileID}}
}

func textMsg(id int64, text string) models.IncomingMessage {
	return models.IncomingMessage{ReporterID: id, DisplayName: "Jeanne Dupont", Text: text}
}

func locationMsg(id int64, lat, lon float64) models.IncomingMessage {
	return models.IncomingMessage{ReporterID: id, DisplayName: "Jeanne Dupont", Location: &models.Coordinates{Latitude: lat, Longitude: lon}}
}

// step feeds one message and waits until it has been handled.
func (h *harness) step(msg models.IncomingMessage) {
	if msg.Command == "start" {
		h.engine.Start(msg)
	} else {
		h.engine.Handle(msg)
	}
	h.engine.Wait()
}

// useStore swaps the report store before any message is sent.
func (h *harness) useStore(s *slowStore) {
	h.engine.deps.Store = s
	h.store = &s.fakeStore
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) expectState(t *testing.T, id int64, want State) {
	t.Helper()
	if got := h.engine.State(id); got != want {
		t.Fatalf("state = %s, want %s", got, want)
	}
}
