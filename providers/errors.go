package providers

import "github.com/pkg/errors"

// Sentinel errors named in spec §7's Registry taxonomy. The list there is
// explicitly non-exhaustive; a handful of additional sentinels below (noted
// inline) exist only to keep every operation total without inventing new
// balances/payment-stream subsystems this module doesn't own.
var (
	ErrAlreadyRegistered                   = errors.New("providers: account already registered")
	ErrSignUpRequestPending                = errors.New("providers: a sign-up request is already pending for this account")
	ErrRandomnessNotValidYet               = errors.New("providers: randomness source has not matured yet")
	ErrSignUpRequestExpired                = errors.New("providers: sign-up request's randomness window has closed")
	ErrNotEnoughBalance                    = errors.New("providers: insufficient available balance for requested hold")
	ErrStorageTooLow                       = errors.New("providers: capacity below minimum")
	ErrNewCapacityLessThanUsedStorage      = errors.New("providers: new capacity would be less than used capacity")
	ErrNotEnoughTimePassed                 = errors.New("providers: operation attempted before its minimum tick delay elapsed")
	ErrDepositTooLow                       = errors.New("providers: held deposit insufficient for requested capacity")
	ErrOperationNotAllowedForInsolventProvider = errors.New("providers: operation not allowed for an insolvent provider")

	// Not named in spec §7's list, added to keep operations total.
	ErrUnknownProvider        = errors.New("providers: no provider with that id")
	ErrNoPendingSignUpRequest = errors.New("providers: no pending sign-up request for that account")
	ErrProviderStillInUse     = errors.New("providers: provider has nonzero used capacity")
	ErrNotAwaitingTopUp       = errors.New("providers: provider is not in the awaiting-top-up state")
	ErrProviderNotInsolvent   = errors.New("providers: delete_provider requires the insolvent status")
	ErrActivePaymentStreamsRemain = errors.New("providers: provider still has active payment streams")
)
