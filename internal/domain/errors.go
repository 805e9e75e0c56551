package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency. Each specific error
// wraps one of the four kinds so the HTTP layer can map it to a status code
// with errors.Is.

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("rejected")

	// ErrDuplicate is returned by the store when a unique key already exists.
	// Callers treat it as "already applied", never as a retryable failure.
	ErrDuplicate = errors.New("duplicate key")
)

// kindError is a specific domain error belonging to one of the kinds above.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, msg string) error { return &kindError{kind: kind, msg: msg} }

var (
	// Lookups
	ErrUserNotFound       = newKind(ErrNotFound, "User not found")
	ErrTaskNotFound       = newKind(ErrNotFound, "Task not found")
	ErrAdNotFound         = newKind(ErrNotFound, "Ad not found")
	ErrSubmissionNotFound = newKind(ErrNotFound, "Submission not found")
	ErrWithdrawalNotFound = newKind(ErrNotFound, "Withdrawal not found")
	ErrTeamNotFound       = newKind(ErrNotFound, "Team not found")

	// Authorization
	ErrUnauthorized    = newKind(ErrForbidden, "Unauthorized")
	ErrNotTeamLeader   = newKind(ErrForbidden, "Only team leaders can manage members")
	ErrNotTeamMember   = newKind(ErrForbidden, "User is not a member of this team")
	ErrInvalidInitData = newKind(ErrValidation, "Invalid Telegram data")

	// Eligibility
	ErrUserBanned          = newKind(ErrConflict, "User is banned")
	ErrTaskInactive        = newKind(ErrConflict, "Task is no longer active")
	ErrAlreadySubmitted    = newKind(ErrConflict, "Task already submitted")
	ErrDailyLimit          = newKind(ErrConflict, "Daily limit reached")
	ErrProofRequired       = newKind(ErrValidation, "Proof is required for this task")
	ErrAdInactive          = newKind(ErrConflict, "Ad is no longer active")
	ErrInsufficientBalance = newKind(ErrConflict, "Insufficient balance")
	ErrBelowMinimum        = newKind(ErrValidation, "Amount is below the minimum withdrawal")
	ErrInvalidMethod       = newKind(ErrValidation, "Unsupported withdrawal method")
	ErrInvalidReferralCode = newKind(ErrConflict, "Invalid referral code")
	ErrAlreadyReferred     = newKind(ErrConflict, "User already registered with a referral code")
	ErrSelfReferral        = newKind(ErrConflict, "Cannot refer yourself")
	ErrAlreadyInTeam       = newKind(ErrConflict, "User is already in a team")
	ErrTeamFull            = newKind(ErrConflict, "Team is full (maximum 4 members)")
	ErrTeamBanned          = newKind(ErrConflict, "Team is banned")
	ErrTeamNameTaken       = newKind(ErrConflict, "Team name already exists")
	ErrInvalidTeamCode     = newKind(ErrConflict, "Invalid team code")
	ErrTeamName            = newKind(ErrValidation, "Team name must be 3-30 characters")
	ErrInvalidTransition   = newKind(ErrConflict, "Status change not allowed")
	ErrAlreadyClaimed      = newKind(ErrConflict, "Bonus already claimed")
	ErrNoMonthlyBonus      = newKind(ErrConflict, "Current tier has no monthly bonus")
	ErrChallengeIncomplete = newKind(ErrConflict, "Challenge target not reached")
	ErrUnknownChallenge    = newKind(ErrNotFound, "Challenge not found")
	ErrInvalidAction       = newKind(ErrValidation, "Invalid action")
)

// detailError replaces the text of a domain error while keeping its identity.
type detailError struct {
	err error
	msg string
}

func (e *detailError) Error() string { return e.msg }
func (e *detailError) Unwrap() error { return e.err }

// WithMessage returns an error that reads msg and still matches err with
// errors.Is.
func WithMessage(err error, msg string) error { return &detailError{err: err, msg: msg} }
