package payments

import "github.com/pkg/errors"

var (
	ErrStreamAlreadyExists = errors.New("payments: a stream already exists for this (provider, user) pair")
	ErrStreamNotFound      = errors.New("payments: no stream for this (provider, user) pair")
	ErrRateZero            = errors.New("payments: stream rate must be nonzero")
	ErrNothingToCharge     = errors.New("payments: delta_ticks is zero, nothing to charge")
)
