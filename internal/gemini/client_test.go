package gemini

import (
	"testing"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/classifier"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		isLeak   bool
		severity models.Severity
		desc     string
	}{
		{
			name:     "plain json",
			input:    `{"is_leak": true, "severity": "Moyenne", "description": "Flux constant sur le trottoir"}`,
			isLeak:   true,
			severity: models.SeverityMedium,
			desc:     "Flux constant sur le trottoir",
		},
		{
			name:     "fenced json",
			input:    "```json\n{\"is_leak\": true, \"severity\": \"Élevée\", \"description\": \"Geyser\"}\n```",
			isLeak:   true,
			severity: models.SeverityHigh,
			desc:     "Geyser",
		},
		{
			name:     "not a leak",
			input:    `{"is_leak": false, "severity": "Petite", "description": "Un chat"}`,
			isLeak:   false,
			severity: models.SeveritySmall,
			desc:     "Un chat",
		},
		{
			name:     "numeric score",
			input:    `{"is_leak": true, "severity": 3}`,
			isLeak:   true,
			severity: models.SeverityHigh,
			desc:     "Analyse terminée.",
		},
		{
			name:     "missing fields",
			input:    `{}`,
			isLeak:   true,
			severity: models.SeverityMedium,
			desc:     "Analyse terminée.",
		},
		{
			name:     "unexpected label",
			input:    `{"is_leak": true, "severity": "catastrophique"}`,
			isLeak:   true,
			severity: models.SeverityMedium,
			desc:     "Analyse terminée.",
		},
		{
			name:     "english label",
			input:    `{"is_leak": true, "severity": "small", "description": "drip"}`,
			isLeak:   true,
			severity: models.SeveritySmall,
			desc:     "drip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAnalysis(tt.input)
			if err != nil {
				t.Fatalf("parseAnalysis: %v", err)
			}
			if got.IsLeak != tt.isLeak || got.Severity != tt.severity || got.Description != tt.desc {
				t.Errorf("got %+v", got)
			}
			if got.Source != classifier.SourceGemini {
				t.Errorf("source = %q", got.Source)
			}
		})
	}
}

func TestParseAnalysisRejectsGarbage(t *testing.T) {
	if _, err := parseAnalysis("désolé, je ne peux pas analyser cette image"); err == nil {
		t.Fatal("expected an error for a non-JSON answer")
	}
}
