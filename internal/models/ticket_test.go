package models

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"open unchanged", "open", "open"},
		{"in_progress unchanged", "in_progress", "in_progress"},
		{"resolved unchanged", "resolved", "resolved"},
		{"closed aliases resolved", "closed", "resolved"},
		{"unknown unchanged", "pending", "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStatus(tt.input); got != tt.want {
				t.Errorf("NormalizeStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"open to in_progress", StatusOpen, StatusInProgress, true},
		{"open to resolved", StatusOpen, StatusResolved, true},
		{"in_progress to resolved", StatusInProgress, StatusResolved, true},
		{"in_progress to open", StatusInProgress, StatusOpen, false},
		{"resolved to open", StatusResolved, StatusOpen, false},
		{"resolved to in_progress", StatusResolved, StatusInProgress, false},
		{"same status is not a transition", StatusOpen, StatusOpen, false},
		{"resolved is terminal", StatusResolved, StatusResolved, false},
		{"open to closed alias", StatusOpen, "closed", true},
		{"closed alias is terminal", "closed", StatusInProgress, false},
		{"unknown source", "pending", StatusResolved, false},
		{"unknown target", StatusOpen, "pending", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusAtLeast(t *testing.T) {
	if !StatusAtLeast(StatusResolved, StatusOpen) {
		t.Error("resolved should be at least open")
	}
	if !StatusAtLeast(StatusInProgress, StatusInProgress) {
		t.Error("a status should be at least itself")
	}
	if StatusAtLeast(StatusOpen, StatusInProgress) {
		t.Error("open should not be at least in_progress")
	}
}
