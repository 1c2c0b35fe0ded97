package match

import (
	"sort"
	"testing"
)

func TestNormalizeTeamName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Kansas City", "chiefs"},
		{"Chiefs", "chiefs"},
		{"Kansas City Chiefs", "chiefs"},
		{"Jacksonville", "jaguars"},
		{"Bucs", "buccaneers"},
		{"Niners", "49ers"},
		{"some unknown fighter", "some unknown fighter"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeTeamName(tt.in); got != tt.want {
				t.Errorf("NormalizeTeamName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTeamNameStable(t *testing.T) {
	// City fragments shared by two franchises must resolve to the same
	// mascot on every call, in gazetteer order.
	tests := []struct {
		in   string
		want string
	}{
		{"new york", "jets"},
		{"los angeles", "chargers"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				if got := NormalizeTeamName(tt.in); got != tt.want {
					t.Fatalf("call %d: NormalizeTeamName(%q) = %q, want %q", i, tt.in, got, tt.want)
				}
			}
		})
	}
}

func TestExtractTeams(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  []string
	}{
		{"mascot matchup", "Chiefs vs. Jaguars", []string{"chiefs", "jaguars"}},
		{"city matchup", "Kansas City at Jacksonville Winner?", []string{"chiefs", "jaguars"}},
		{"at connector", "Buffalo at Atlanta Winner?", []string{"bills", "falcons"}},
		{"no entities", "Bitcoin above 100k by March", nil},
		{"single team spread", "Spread: Jaguars (-3.5)", []string{"jaguars"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTeams(tt.title)
			sort.Strings(got)
			want := append([]string(nil), tt.want...)
			sort.Strings(want)
			if len(got) != len(want) {
				t.Fatalf("ExtractTeams(%q) = %v, want %v", tt.title, got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("ExtractTeams(%q) = %v, want %v", tt.title, got, want)
					break
				}
			}
		})
	}
}

func TestSameTeams(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"identical mascots", []string{"chiefs", "jaguars"}, []string{"chiefs", "jaguars"}, true},
		{"cities vs mascots", []string{"kansas city", "jacksonville"}, []string{"chiefs", "jaguars"}, true},
		{"different teams", []string{"chiefs", "jaguars"}, []string{"bills", "dolphins"}, false},
		{"empty side", nil, []string{"chiefs"}, false},
		{"subset is not equality", []string{"chiefs"}, []string{"chiefs", "jaguars"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameTeams(tt.a, tt.b); got != tt.want {
				t.Errorf("SameTeams(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
