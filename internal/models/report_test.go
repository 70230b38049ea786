package models

import "testing"

func TestMatchSeverity(t *testing.T) {
	tests := []struct {
		text string
		want Severity
		ok   bool
	}{
		{"🌊 Moyenne", SeverityMedium, true},
		{"🌊 Moyenne (IA)", SeverityMedium, true},
		{"élevée", SeverityHigh, true},
		{"ELEVEE !", SeverityHigh, true},
		{"plutôt petite", SeveritySmall, true},
		{"medium", SeverityMedium, true},
		{"petite ou moyenne", SeveritySmall, true},
		{"pas grave", SeverityUnknown, false},
		{"c'est grave", SeverityUnknown, false},
		{"highway", SeverityUnknown, false},
		{"moyennement", SeverityUnknown, false},
		{"", SeverityUnknown, false},
		{"👍", SeverityUnknown, false},
	}

	for _, tt := range tests {
		got, ok := MatchSeverity(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MatchSeverity(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"Élevée":   SeverityHigh,
		"petite":   SeveritySmall,
		"2":        SeverityMedium,
		"inconnue": SeverityUnknown,
	}
	for in, want := range tests {
		got, err := ParseSeverity(in)
		if err != nil || got != want {
			t.Errorf("ParseSeverity(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseSeverity("grave"); err == nil {
		t.Error("ParseSeverity accepted an unknown label")
	}
}
