package processor

import (
	"fmt"

	pkgerrors "github.com/fieldsafe/fieldsync/pkg/errors"
)

// Decision is the fate of a queued action after one replay attempt.
type Decision int

const (
	// DecisionRemove drops the action, either because it was delivered or
	// because the retry ceiling was reached.
	DecisionRemove Decision = iota
	// DecisionRequeue keeps the action for the next pass with its retry
	// count incremented.
	DecisionRequeue
	// DecisionRemoveWithNotice drops the action and tells the user. Used
	// for payloads the remote store will reject on every attempt.
	DecisionRemoveWithNotice
)

func (d Decision) String() string {
	switch d {
	case DecisionRemove:
		return "remove"
	case DecisionRequeue:
		return "requeue"
	case DecisionRemoveWithNotice:
		return "remove_with_notice"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Decide maps one replay outcome onto a queue decision. It performs no I/O.
// A nil error means delivered. Non-retryable failures evict immediately
// regardless of retry count; everything else retries until the attempt that
// would push the count to maxRetries.
func Decide(err error, retryCount, maxRetries int) Decision {
	if err == nil {
		return DecisionRemove
	}
	if !pkgerrors.Retryable(err) {
		return DecisionRemoveWithNotice
	}
	if retryCount+1 >= maxRetries {
		return DecisionRemove
	}
	return DecisionRequeue
}
