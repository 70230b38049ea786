package conversation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/classifier"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/metrics"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

// ReportWriter commits finished reports.
type ReportWriter interface {
	Insert(ctx context.Context, report *models.LeakReport) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// Geocoder resolves a position to a human readable address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// PhotoStore keeps photos until a report owns them.
type PhotoStore interface {
	Save(ctx context.Context, reporterID int64, data []byte) (string, error)
	Remove(ref string) error
}

// FileFetcher downloads a photo from the chat platform.
type FileFetcher interface {
	Fetch(ctx context.Context, file models.PhotoFile) ([]byte, error)
}

// Channel delivers messages to a reporter.
type Channel interface {
	Send(ctx context.Context, reporterID int64, msg models.OutgoingMessage) error
}

// Deps are the collaborators of the Engine.
type Deps struct {
	Classifier classifier.Classifier
	// Fallback answers when Classifier fails. Usually a classifier.Simulated.
	Fallback classifier.Classifier
	Store    ReportWriter
	Geocoder Geocoder
	Photos   PhotoStore
	Files    FileFetcher
	Channel  Channel
	Metrics  *metrics.Metrics
}

// Engine runs one intake conversation per reporter. Messages of one reporter
// are handled in arrival order by a single goroutine; different reporters never
// wait for each other.
//
// e.mu only guards the sessions map and is never held while taking a session
// lock. Session locks are never held across I/O.
type Engine struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewEngine creates a new conversation engine.
func NewEngine(deps Deps, logger *zap.Logger) *Engine {
	if deps.Fallback == nil {
		deps.Fallback = classifier.NewSimulated(0)
	}
	if deps.Classifier == nil {
		deps.Classifier = deps.Fallback
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		deps:     deps,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[int64]*session),
	}
}

// Start begins a new report for the reporter, dropping any report in progress.
func (e *Engine) Start(msg models.IncomingMessage) {
	e.enqueue(input{kind: inputStart, msg: msg})
}

// Handle feeds a non-command message (photo, text, location) to the reporter's conversation.
func (e *Engine) Handle(msg models.IncomingMessage) {
	e.enqueue(input{kind: inputMessage, msg: msg})
}

// Cancel aborts the reporter's conversation immediately, including a step in
// flight. It does not wait behind queued messages; those are dropped. The
// acknowledgement is sent by the reporter's worker.
func (e *Engine) Cancel(msg models.IncomingMessage) {
	s := e.lookup(msg.ReporterID, false)
	if s == nil {
		e.enqueue(input{kind: inputReply, msg: msg, reply: msgNothingToCancel()})
		return
	}

	s.mu.Lock()
	if s.removed.Load() {
		s.mu.Unlock()
		e.enqueue(input{kind: inputReply, msg: msg, reply: msgNothingToCancel()})
		return
	}
	active := s.state != StateIdle
	prev := s.state
	s.gen++
	if s.cancelStep != nil {
		s.cancelStep()
	}
	s.queue = nil
	orphan := s.reset()
	reply := msgNothingToCancel()
	if active {
		reply = msgCancelled()
	}
	e.pushLocked(s, input{kind: inputReply, msg: msg, reply: reply})
	s.mu.Unlock()

	e.removePhoto(orphan)
	if active {
		e.logger.Info("Report cancelled", zap.Int64("reporter_id", msg.ReporterID), zap.Stringer("state", prev))
	}
}

// State returns the current step of the reporter's conversation.
func (e *Engine) State(reporterID int64) State {
	s := e.lookup(reporterID, false)
	if s == nil {
		return StateIdle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveSessions returns the number of reporters with a conversation in progress.
func (e *Engine) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// ExpireIdle drops conversations that have waited for the reporter longer than ttl.
// It returns the number of expired conversations.
func (e *Engine) ExpireIdle(ttl time.Duration) int {
	e.mu.Lock()
	candidates := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		candidates = append(candidates, s)
	}
	e.mu.Unlock()

	now := e.now()
	expired := 0
	for _, s := range candidates {
		s.mu.Lock()
		if s.removed.Load() || s.state == StateIdle || s.running || len(s.queue) > 0 || now.Sub(s.lastActive) <= ttl {
			s.mu.Unlock()
			continue
		}
		s.gen++
		orphan := s.reset()
		id := s.reporterID
		e.pushLocked(s, input{kind: inputReply, msg: models.IncomingMessage{ReporterID: id}, reply: msgExpired()})
		s.mu.Unlock()

		expired++
		e.removePhoto(orphan)
		e.logger.Info("Conversation expired", zap.Int64("reporter_id", id))
	}
	return expired
}

// Wait blocks until all queued messages have been handled.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close aborts steps in flight and waits for the workers to exit.
func (e *Engine) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) enqueue(in input) {
	for {
		s := e.lookup(in.msg.ReporterID, true)
		s.mu.Lock()
		if s.removed.Load() {
			// released between lookup and lock, the next lookup creates a fresh session
			s.mu.Unlock()
			continue
		}
		e.pushLocked(s, in)
		s.mu.Unlock()
		break
	}
	e.deps.Metrics.SetActiveSessions(e.ActiveSessions())
}

// lookup returns the live session of a reporter, creating it when create is set.
func (e *Engine) lookup(reporterID int64, create bool) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[reporterID]
	if ok && !s.removed.Load() {
		return s
	}
	if !create {
		return nil
	}
	s = &session{reporterID: reporterID, lastActive: e.now()}
	e.sessions[reporterID] = s
	return s
}

// pushLocked queues in and starts the worker if needed. s.mu must be held.
func (e *Engine) pushLocked(s *session, in input) {
	s.queue = append(s.queue, in)
	if !s.running {
		s.running = true
		e.wg.Add(1)
		go e.drain(s)
	}
}

// drain handles the session queue one message at a time.
func (e *Engine) drain(s *session) {
	defer e.wg.Done()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.cancelStep = nil
			s.mu.Unlock()
			e.releaseIfIdle(s)
			return
		}
		in := s.queue[0]
		s.queue = s.queue[1:]
		gen := s.gen
		ctx, cancel := context.WithCancel(e.ctx)
		s.cancelStep = cancel
		s.mu.Unlock()

		e.process(ctx, s, gen, in)
		cancel()
	}
}

// releaseIfIdle forgets a session that holds no conversation and no pending work.
func (e *Engine) releaseIfIdle(s *session) {
	s.mu.Lock()
	if !s.idle() || s.removed.Load() {
		s.mu.Unlock()
		return
	}
	s.removed.Store(true)
	s.mu.Unlock()

	e.mu.Lock()
	if e.sessions[s.reporterID] == s {
		delete(e.sessions, s.reporterID)
	}
	active := len(e.sessions)
	e.mu.Unlock()

	e.deps.Metrics.SetActiveSessions(active)
}

// commit runs fn under the session lock unless the session was cancelled since gen.
func (s *session) commit(gen uint64, now time.Time, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.lastActive = now
	fn()
	return true
}

func (e *Engine) send(ctx context.Context, reporterID int64, msg models.OutgoingMessage) {
	if err := e.deps.Channel.Send(ctx, reporterID, msg); err != nil {
		e.logger.Warn("Failed to send message", zap.Int64("reporter_id", reporterID), zap.Error(err))
	}
}

func (e *Engine) removePhoto(ref string) {
	if ref == "" {
		return
	}
	if err := e.deps.Photos.Remove(ref); err != nil {
		e.logger.Warn("Failed to remove orphan photo", zap.String("path", ref), zap.Error(err))
	}
}
