package errors

import (
	"errors"
	"fmt"
	"strings"
)

func InvalidBodyErr(err error) error {
	return E(Invalid, "invalid request body", err)
}

func EmptyParamErr(field string) error {
	ve := ValidationErrs()
	ve.Add(field, "cannot be empty")
	return ve.Err()
}

// MissingColumnsErr rejects a CSV upload whose header row lacks required
// columns. Fatal to the whole upload.
func MissingColumnsErr(columns []string) error {
	return E(Invalid, fmt.Sprintf("csv header missing required columns: %s", strings.Join(columns, ", ")), nil)
}

// EmptyBatchErr rejects aggregation of a batch with zero valid recipients.
func EmptyBatchErr() error {
	return E(Invalid, "batch has no valid recipients", nil)
}

// InvalidTransitionErr rejects an out-of-order lifecycle call. Surfaces as a
// conflict: the batch was already moved past the requested transition.
func InvalidTransitionErr(batchID, from, to string) error {
	return E(Conflict, fmt.Sprintf("batch %s: cannot transition from %s to %s", batchID, from, to), nil)
}

func BatchNotFoundErr(batchID string) error {
	return E(NotFound, fmt.Sprintf("batch %s not found", batchID), nil)
}

// IsStale reports whether err is the repositories' status-precondition
// failure, i.e. a conditional update matched no document.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleStatus)
}

// ErrStaleStatus is returned by repositories when a conditional status
// update finds the batch no longer in the expected state.
var ErrStaleStatus = errors.New("status precondition failed")
