package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the proposal engine wraps exactly one
// of these (open on a non-draft proposal wraps two), so callers classify with
// errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrPrecondition  = errors.New("precondition failed")
	ErrInvalidState  = errors.New("invalid proposal state")
	ErrNotFound      = errors.New("not found")
	ErrDuplicateVote = errors.New("you have already voted")
	ErrConflict      = errors.New("concurrent modification")
	ErrForbidden     = errors.New("forbidden")
)

var (
	ErrInvalidProposalInput = fmt.Errorf("%w: invalid proposal input", ErrValidation)
	ErrInvalidTitle         = fmt.Errorf("%w: title must be 1..200 characters", ErrValidation)
	ErrInvalidContentHash   = fmt.Errorf("%w: content hash must be a sha-256 hex digest", ErrValidation)
	ErrInvalidVotingWindow  = fmt.Errorf("%w: voting window start must be before end", ErrValidation)
	ErrInvalidQuorum        = fmt.Errorf("%w: quorum requirement must be 0..10000 basis points", ErrValidation)
	ErrInvalidOptionInput   = fmt.Errorf("%w: option text is required", ErrValidation)
	ErrInvalidVoteInput     = fmt.Errorf("%w: invalid vote input", ErrValidation)

	ErrTooFewOptions       = fmt.Errorf("%w: proposal needs at least two options", ErrPrecondition)
	ErrVotingWindowMissing = fmt.Errorf("%w: voting window is not set", ErrPrecondition)
	ErrVotingWindowInvalid = fmt.Errorf("%w: voting window start must be before end", ErrPrecondition)
	ErrAlreadyOpened       = fmt.Errorf("%w: %w: proposal is no longer draft", ErrPrecondition, ErrInvalidState)

	ErrProposalNotDraft  = fmt.Errorf("%w: proposal is not draft", ErrInvalidState)
	ErrProposalNotOpen   = fmt.Errorf("%w: proposal not open", ErrInvalidState)
	ErrProposalNotClosed = fmt.Errorf("%w: proposal is not closed", ErrInvalidState)
	ErrNoResultsYet      = fmt.Errorf("%w: proposal has not been opened", ErrInvalidState)
	ErrIllegalTransition = fmt.Errorf("%w: illegal status transition", ErrInvalidState)

	ErrProposalNotFound = fmt.Errorf("proposal %w", ErrNotFound)
	ErrOptionNotFound   = fmt.Errorf("option %w", ErrNotFound)
	ErrVoteNotFound     = fmt.Errorf("vote %w", ErrNotFound)
	ErrResultNotFound   = fmt.Errorf("result snapshot %w", ErrNotFound)

	ErrVersionConflict = fmt.Errorf("%w: proposal version changed", ErrConflict)

	ErrMissingCapability   = fmt.Errorf("%w: actor lacks required capability", ErrForbidden)
	ErrZeroVotingPower     = fmt.Errorf("%w: actor has no voting power", ErrForbidden)
	ErrOutsideVotingWindow = fmt.Errorf("%w: proposal not open: outside voting window", ErrInvalidState)
)

// Kind returns the sentinel kind err wraps, or nil for foreign errors. When
// an error wraps two kinds the first in declaration order wins.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation,
		ErrPrecondition,
		ErrInvalidState,
		ErrNotFound,
		ErrDuplicateVote,
		ErrConflict,
		ErrForbidden,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
