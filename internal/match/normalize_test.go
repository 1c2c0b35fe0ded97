package match

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"strips will prefix", "Will the Chiefs win?", "the chiefs"},
		{"strips who will prefix", "Who will win the election?", "win the election"},
		{"strips trailing question mark", "Chiefs vs Jaguars?", "chiefs vs jaguars"},
		{"strips win suffix", "Will Kansas City win", "kansas city"},
		{"collapses whitespace", "Chiefs   vs   Jaguars", "chiefs vs jaguars"},
		{"plain title untouched", "bitcoin above 100k", "bitcoin above 100k"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.title); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}
