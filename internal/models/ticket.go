package models

import "time"

// Ticket statuses. Progression is strictly open -> in_progress -> resolved;
// there is no transition out of resolved.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// Ticket represents a single customer support case.
type Ticket struct {
	ID                   string     `db:"id" json:"id"`
	ClientName           string     `db:"client_name" json:"client_name"`
	ClientEmail          string     `db:"client_email" json:"client_email,omitempty"`
	ProblemDescription   string     `db:"problem_description" json:"problem_description"`
	Status               string     `db:"status" json:"status"`
	AssignedTechnicianID *string    `db:"assigned_technician_id" json:"assigned_technician_id,omitempty"`
	LGPDAccepted         bool       `db:"lgpd_accepted" json:"lgpd_accepted"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
	ResolvedAt           *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// NormalizeStatus maps legacy status spellings onto the canonical set.
// Older variants used "closed" for the terminal state.
func NormalizeStatus(status string) string {
	if status == "closed" {
		return StatusResolved
	}
	return status
}

// IsValidStatus reports whether status is one of the canonical values.
func IsValidStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// statusRank orders statuses along the lifecycle. Unknown statuses rank
// below open so they never win a monotonicity comparison.
func statusRank(status string) int {
	switch NormalizeStatus(status) {
	case StatusOpen:
		return 1
	case StatusInProgress:
		return 2
	case StatusResolved:
		return 3
	}
	return 0
}

// CanTransition reports whether a ticket may move from one status to
// another. Only forward moves are allowed; staying put is not a
// transition.
func CanTransition(from, to string) bool {
	f, t := statusRank(from), statusRank(to)
	return f > 0 && t > 0 && t > f
}

// StatusAtLeast reports whether got is the same as or later in the
// lifecycle than want. Used when reconciling pushed events against
// polled snapshots.
func StatusAtLeast(got, want string) bool {
	return statusRank(got) >= statusRank(want)
}
