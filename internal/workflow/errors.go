package workflow

import (
	"errors"
	"fmt"

	"github.com/mauv0809/match-ledger/internal/ledger"
	"github.com/mauv0809/match-ledger/internal/rating"
)

// Error classes. Every error returned by the Service matches exactly one of
// them with errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrAuthorization      = errors.New("not authorized")
	ErrStateConflict      = errors.New("state conflict")
	ErrUnratedParticipant = rating.ErrUnratedParticipant
	ErrStorage            = errors.New("storage failure")
	ErrNotFound           = errors.New("not found")
)

var (
	ErrInvalidScore         = fmt.Errorf("%w: invalid score", ErrValidation)
	ErrInvalidFormat        = fmt.Errorf("%w: invalid format", ErrValidation)
	ErrDuplicateParticipant = fmt.Errorf("%w: duplicate participant", ErrValidation)

	ErrAlreadyFinalized  = fmt.Errorf("%w: match already finalized", ErrStateConflict)
	ErrAlreadyRejected   = fmt.Errorf("%w: match already rejected", ErrStateConflict)
	ErrAlreadyVetoed     = fmt.Errorf("%w: match already vetoed", ErrStateConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid transition", ErrStateConflict)
)

// terminalError returns the conflict for a transition attempted on a
// terminal match, or nil.
func terminalError(s ledger.State) error {
	switch s {
	case ledger.StateFinalized:
		return ErrAlreadyFinalized
	case ledger.StateRejected:
		return ErrAlreadyRejected
	case ledger.StateVetoed:
		return ErrAlreadyVetoed
	}
	return nil
}

// classify maps collaborator errors onto the error classes. Errors that
// already carry a class are returned unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrAuthorization), errors.Is(err, ErrStateConflict),
		errors.Is(err, ErrUnratedParticipant), errors.Is(err, ErrStorage), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, ledger.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, ledger.ErrTerminal), errors.Is(err, ledger.ErrConcurrentUpdate):
		return fmt.Errorf("%w: %w", ErrStateConflict, err)
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
