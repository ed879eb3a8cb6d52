package digest

import "testing"

func TestKeywordSetMatches(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		text     string
		want     bool
	}{
		{"exact keyword", []string{"error"}, "error", true},
		{"substring match", []string{"error"}, "build error: timeout", true},
		{"case insensitive keyword", []string{"ERROR"}, "an error occurred", true},
		{"case insensitive text", []string{"error"}, "ERROR: disk full", true},
		{"no match", []string{"error"}, "build passed", false},
		{"any keyword matches", []string{"error", "status"}, "status update", true},
		{"whitespace trimmed", []string{"  error  "}, "  error: timeout  ", true},
		{"empty set matches nothing", nil, "error: timeout", false},
		{"empty set matches nothing even on empty text", nil, "", false},
		{"empty text", []string{"error"}, "", false},
		{"blank keywords are dropped", []string{"", "  "}, "anything", false},
		{"unicode keyword", []string{"falhou"}, "o deploy FALHOU de novo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ks := NewKeywordSet(tt.keywords)
			if got := ks.Matches(tt.text); got != tt.want {
				t.Errorf("Matches(%q) with %v = %v, want %v", tt.text, tt.keywords, got, tt.want)
			}
		})
	}
}

func TestNewKeywordSetNormalizes(t *testing.T) {
	ks := NewKeywordSet([]string{" Error ", "STATUS", "error", ""})
	got := ks.Keywords()
	want := []string{"error", "status"}
	if len(got) != len(want) {
		t.Fatalf("Keywords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keywords()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if ks.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ks.Len())
	}
}
