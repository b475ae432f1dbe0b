package models

// Status is the moderation lifecycle state of a user submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	// StatusAwaitingSecondApproval is a legal PlayerEdit status kept for
	// forward compatibility; no current code path sets it. Player edits
	// resolve on the first approval.
	StatusAwaitingSecondApproval Status = "awaiting_second_approval"
)

// IsTerminal reports whether no further moderation action applies.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanReject reports whether a rejection is a legal transition from s.
func (s Status) CanReject() bool {
	return s == StatusPending || s == StatusAwaitingSecondApproval
}

// Kind identifies one of the three moderated entity families.
type Kind string

const (
	KindReview              Kind = "review"
	KindPlayerEdit          Kind = "player_edit"
	KindEquipmentSubmission Kind = "equipment_submission"
)

// Outcome is the result of an approve call, surfaced verbatim to both the
// admin dashboard and the Discord moderation channel.
type Outcome string

const (
	OutcomeFirstApproval   Outcome = "first_approval"
	OutcomeFullyApproved   Outcome = "fully_approved"
	OutcomeApproved        Outcome = "approved"
	OutcomeAlreadyApproved Outcome = "already_approved"
	OutcomeError           Outcome = "error"
)
