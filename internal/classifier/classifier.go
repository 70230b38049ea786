package classifier

import (
	"context"
	"math/rand"
	"time"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

// Source tells which classifier variant produced an analysis.
type Source string

const (
	SourceGemini    Source = "gemini"
	SourceSimulated Source = "simulated"
)

// Analysis is the bucketed result of a leak photo analysis.
type Analysis struct {
	IsLeak      bool
	Severity    models.Severity
	Description string
	Source      Source
}

// Classifier analyzes a photo in a single round trip. Retries and fallbacks
// are left to the caller.
type Classifier interface {
	Analyze(ctx context.Context, image []byte) (*Analysis, error)
}

// Simulated is the classifier used when no model is configured or the model is unreachable.
// It always reports a leak with a random severity.
type Simulated struct {
	delay time.Duration
	pick  func() models.Severity
}

// NewSimulated creates a simulated classifier that answers after delay.
func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{
		delay: delay,
		pick: func() models.Severity {
			return models.Severities[rand.Intn(len(models.Severities))]
		},
	}
}

// NewFixed returns a simulated classifier that always picks severity. Useful in tests.
func NewFixed(severity models.Severity) *Simulated {
	return &Simulated{pick: func() models.Severity { return severity }}
}

// Analyze implements Classifier.
func (s *Simulated) Analyze(ctx context.Context, _ []byte) (*Analysis, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &Analysis{
		IsLeak:   true,
		Severity: s.pick(),
		Source:   SourceSimulated,
	}, nil
}
