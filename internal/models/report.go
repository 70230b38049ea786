package models

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrUnknownStatus   = errors.New("unknown report status")
	ErrUnknownSeverity = errors.New("unknown severity")
)

// Severity is a leak severity bucket. Values are the labels shown to reporters and stored in the database.
type Severity string

const (
	SeveritySmall   Severity = "Petite"
	SeverityMedium  Severity = "Moyenne"
	SeverityHigh    Severity = "Élevée"
	SeverityUnknown Severity = "Inconnue"
)

// Severities lists the confirmable buckets in matching priority order.
var Severities = []Severity{SeveritySmall, SeverityMedium, SeverityHigh}

var severityAliases = map[Severity][]string{
	SeveritySmall:   {"petite", "small", "faible"},
	SeverityMedium:  {"moyenne", "medium", "moderee"},
	SeverityHigh:    {"elevee", "high"},
	SeverityUnknown: {"inconnue", "unknown"},
}

// ParseSeverity maps a label, an alias or a 1-3 score onto a severity bucket.
func ParseSeverity(s string) (Severity, error) {
	key := normalize(s)
	switch key {
	case "1":
		return SeveritySmall, nil
	case "2":
		return SeverityMedium, nil
	case "3":
		return SeverityHigh, nil
	}
	for _, sev := range append(Severities, SeverityUnknown) {
		for _, alias := range severityAliases[sev] {
			if key == alias {
				return sev, nil
			}
		}
	}
	return SeverityUnknown, ErrUnknownSeverity
}

// MatchSeverity looks for a severity label among the words of free text, checking Small, Medium then High.
// Keyboard labels such as "🌊 Moyenne (IA)" match; words merely containing a label do not.
func MatchSeverity(text string) (Severity, bool) {
	words := strings.FieldsFunc(normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return SeverityUnknown, false
	}
	for _, sev := range Severities {
		for _, alias := range severityAliases[sev] {
			for _, w := range words {
				if w == alias {
					return sev, true
				}
			}
		}
	}
	return SeverityUnknown, false
}

// OrUnknown returns SeverityUnknown for an empty value.
func (s Severity) OrUnknown() Severity {
	if s == "" {
		return SeverityUnknown
	}
	return s
}

// Status is the operator-side state of a report.
type Status string

const (
	StatusReported   Status = "Signalé"
	StatusInProgress Status = "En cours"
	StatusResolved   Status = "Réparé"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusReported, StatusInProgress, StatusResolved}

var statusAliases = map[Status][]string{
	StatusReported:   {"signale", "reported", "nouveau"},
	StatusInProgress: {"en cours", "in_progress", "in progress", "inprogress"},
	StatusResolved:   {"repare", "resolved", "resolu"},
}

// ParseStatus accepts the stored French labels, accent-free forms and English keys.
func ParseStatus(s string) (Status, error) {
	key := normalize(s)
	for _, st := range Statuses {
		for _, alias := range statusAliases[st] {
			if key == alias {
				return st, nil
			}
		}
	}
	return "", ErrUnknownStatus
}

func (s Status) rank() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether an operator may move a report from s to next.
// Only forward moves and same-status resubmissions are allowed.
func (s Status) CanTransitionTo(next Status) bool {
	return s.Valid() && next.Valid() && next.rank() >= s.rank()
}

// Predecessors returns the statuses from which s can be reached, s included.
func (s Status) Predecessors() []Status {
	var out []Status
	for _, st := range Statuses {
		if st.CanTransitionTo(s) {
			out = append(out, st)
		}
	}
	return out
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
}

// LeakReport is a persisted water leak report.
type LeakReport struct {
	ID                  int64       `json:"id"`
	ReporterID          int64       `json:"reporter_id"`
	ReporterDisplayName string      `json:"citizen"`
	PhotoRef            string      `json:"photo_path"`
	Coordinates         Coordinates `json:"coordinates"`
	Address             *string     `json:"address,omitempty"`
	UserSeverity        Severity    `json:"severity"`
	AISeverity          Severity    `json:"ai_severity"`
	Technician          *string     `json:"technician,omitempty"`
	Status              Status      `json:"status"`
	CreatedAt           time.Time   `json:"created_at"`
}

// AddressOr returns the resolved address or fallback when none was stored.
func (r *LeakReport) AddressOr(fallback string) string {
	if r.Address == nil || *r.Address == "" {
		return fallback
	}
	return *r.Address
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// ReportStats aggregates report counts for the operator dashboard.
type ReportStats struct {
	Total      int              `json:"total"`
	ByStatus   map[Status]int   `json:"by_status"`
	BySeverity map[Severity]int `json:"by_severity"`
}
