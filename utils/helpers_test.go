package utils

import "testing"

func TestIsValidClassStatus(t *testing.T) {
	valid := []string{"draft", "active", "completed", "merged", "archived"}
	for _, status := range valid {
		if !IsValidClassStatus(status) {
			t.Errorf("IsValidClassStatus(%q) = false, want true", status)
		}
	}

	invalid := []string{"", "Draft", "deleted", "pending"}
	for _, status := range invalid {
		if IsValidClassStatus(status) {
			t.Errorf("IsValidClassStatus(%q) = true, want false", status)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Beginner A1  ", "Beginner A1"},
		{"Room\x001", "Room1"},
		{"\x00\x00", ""},
		{"unchanged", "unchanged"},
	}
	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
