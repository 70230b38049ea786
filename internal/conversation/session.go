package conversation

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/classifier"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

// State is a step of the report intake conversation.
type State int

const (
	StateIdle State = iota
	StateAwaitingPhoto
	StateAwaitingSeverity
	StateAwaitingLocation
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingPhoto:
		return "awaiting_photo"
	case StateAwaitingSeverity:
		return "awaiting_severity"
	case StateAwaitingLocation:
		return "awaiting_location"
	default:
		return "unknown"
	}
}

// draft is the transient data gathered before a report is committed.
type draft struct {
	photoRef     string
	aiSeverity   models.Severity
	aiSource     classifier.Source
	userSeverity models.Severity
}

type inputKind int

const (
	inputStart inputKind = iota
	inputMessage
	// inputReply only delivers reply, in order with the reporter's other messages.
	inputReply
)

type input struct {
	kind  inputKind
	msg   models.IncomingMessage
	reply models.OutgoingMessage
}

// session is the conversation of one reporter. All fields except removed are guarded by mu.
type session struct {
	mu          sync.Mutex
	reporterID  int64
	displayName string
	state       State
	draft       draft
	lastActive  time.Time

	queue   []input
	running bool

	// gen is bumped by cancel and expiry; results computed for an older gen are dropped.
	gen        uint64
	cancelStep context.CancelFunc

	// removed is set once the session left the engine map; it is never reused after that.
	removed atomic.Bool
}

func (s *session) idle() bool {
	return s.state == StateIdle && len(s.queue) == 0 && !s.running
}

// reset returns the session to Idle and hands back the photo the draft owned.
func (s *session) reset() (orphanPhoto string) {
	orphanPhoto = s.draft.photoRef
	s.draft = draft{}
	s.state = StateIdle
	return orphanPhoto
}
