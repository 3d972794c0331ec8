package blockchainservice

import "github.com/pkg/errors"

// Sentinels named in spec §7's Service (off-chain) taxonomy, plus the
// store/migration errors needed to keep the schema framework total.
var (
	ErrForestRootTxTaken    = errors.New("blockchainservice: forest-root write permit already held")
	ErrWrongProviderType    = errors.New("blockchainservice: operation not valid for this provider kind")
	ErrCapacityQueryFailed  = errors.New("blockchainservice: capacity query failed")
	ErrVolunteerTickQueryFailed = errors.New("blockchainservice: volunteer tick query failed")
	ErrNonceDesync          = errors.New("blockchainservice: on-chain nonce exceeds local counter unexpectedly")

	ErrRootMismatch       = errors.New("blockchainservice: local root diverged from on-chain root after replay")
	ErrUnknownColumnFamily = errors.New("blockchainservice: unknown column family")
	ErrQueueEmpty         = errors.New("blockchainservice: queue is empty")
	ErrMigrationGap       = errors.New("blockchainservice: migrations must be contiguous starting at 1")
	ErrMigrationDowngrade = errors.New("blockchainservice: cannot downgrade schema version")
	ErrMaxRetriesExceeded = errors.New("blockchainservice: queued item exceeded its retry bound")
)

// RetryableError wraps an extrinsic-submission failure that should be
// retried (only on timeout, per spec §9): a transaction included and
// reverted must never be auto-resubmitted, so only timeouts are wrapped
// this way by callers.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return "retryable: " + e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err (or something it wraps) is a
// RetryableError.
func IsRetryable(err error) bool {
	_, ok := err.(*RetryableError)
	if ok {
		return true
	}
	type causer interface{ Cause() error }
	for {
		c, ok := err.(causer)
		if !ok {
			return false
		}
		err = c.Cause()
		if _, ok := err.(*RetryableError); ok {
			return true
		}
	}
}
