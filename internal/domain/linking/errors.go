package linking

import (
	"errors"
	"fmt"
)

// ErrNoAccounts is returned when a token exchange yields a connection with
// zero accounts. The access token is discarded; nothing is persisted.
var ErrNoAccounts = errors.New("bank connection has no accounts")

// ErrEmptyFundingSource is returned when the payment network accepts a
// funding-source request but returns no resource URL.
var ErrEmptyFundingSource = errors.New("payment network returned empty funding source URL")

// StepError records which step of the linking flow failed, so callers and
// logs can tell a token-exchange failure apart from a persistence failure.
type StepError struct {
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("linking failed at %s: %v", e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
