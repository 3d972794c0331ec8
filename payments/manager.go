package payments

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
)

var log = logrus.WithField("prefix", "payments")

// ProviderAccounts is the narrow lookup this package needs from the
// provider registry: where to actually deposit a provider's earnings.
// Implemented by *providers.Registry; kept as an interface so this package
// never needs to know about the registry's full surface.
type ProviderAccounts interface {
	GetProvider(id providers.ProviderId) (*providers.Provider, bool)
}

// ChargeResult reports the outcome of a single Charge call.
type ChargeResult struct {
	DeltaTicks      config.Tick
	GrossAmount     uint64
	TreasuryCut     uint64
	NetToProvider   uint64
	FlaggedInsolvent bool
}

// Manager owns every payment stream and the WithoutFunds flag table. It
// takes a *providers.Ledger to move funds, the same ledger the provider
// registry holds deposits against, since payment streams and sign-up
// deposits are drawn from the same per-account balance.
type Manager struct {
	mu sync.Mutex

	params    *config.Params
	ledger    *providers.Ledger
	directory ProviderAccounts

	streams      map[StreamId]*Stream
	withoutFunds map[providers.AccountId]*withoutFundsRecord

	treasury providers.AccountId
}

// NewManager returns an empty stream manager. treasury is the account
// credited with the treasury cut on every charge; directory resolves a
// provider's payment account at charge time.
func NewManager(ledger *providers.Ledger, directory ProviderAccounts, params *config.Params, treasury providers.AccountId) *Manager {
	if params == nil {
		params = config.Current()
	}
	return &Manager{
		params:       params,
		ledger:       ledger,
		directory:    directory,
		streams:      make(map[StreamId]*Stream),
		withoutFunds: make(map[providers.AccountId]*withoutFundsRecord),
		treasury:     treasury,
	}
}

// CreateStream opens a new payment stream at the given per-tick rate.
func (m *Manager) CreateStream(id StreamId, ratePerTick uint64, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ratePerTick == 0 {
		return ErrRateZero
	}
	if _, ok := m.streams[id]; ok {
		return ErrStreamAlreadyExists
	}
	m.streams[id] = &Stream{ID: id, RatePerTick: ratePerTick, LastChargedTick: currentTick}
	return nil
}

// UpdateRate changes a stream's accrual rate, effective from currentTick
// (any pending charge up to now should be applied first by the caller).
func (m *Manager) UpdateRate(id StreamId, newRate uint64, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	if !ok {
		return ErrStreamNotFound
	}
	if newRate == 0 {
		return ErrRateZero
	}
	s.RatePerTick = newRate
	s.LastChargedTick = currentTick
	return nil
}

// DeleteStream removes a stream outright (used when a provider or user
// leaves the relationship entirely, e.g. stop-storing-for-insolvent-user).
func (m *Manager) DeleteStream(id StreamId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.streams, id)
}

// GetStream returns the stream record for inspection.
func (m *Manager) GetStream(id StreamId) (*Stream, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.streams[id]
	return s, ok
}

// Charge transfers delta_ticks × rate from the user to the provider,
// net of the treasury cut computed against utilisation. If the user's
// available balance can't cover the gross amount, the user is flagged
// WithoutFunds instead of charged, and the stream's LastChargedTick is left
// untouched so the shortfall is retried (and grows) on a later charge.
func (m *Manager) Charge(id StreamId, currentTick config.Tick, utilisation SystemUtilisation) (*ChargeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.streams[id]
	if !ok {
		return nil, ErrStreamNotFound
	}
	if currentTick <= s.LastChargedTick {
		return nil, ErrNothingToCharge
	}

	delta := currentTick - s.LastChargedTick
	gross := uint64(delta) * s.RatePerTick

	provider, ok := m.directory.GetProvider(id.Provider)
	if !ok {
		return nil, providers.ErrUnknownProvider
	}

	if m.ledger.Available(id.User) < gross {
		rec, already := m.withoutFunds[id.User]
		if !already {
			m.withoutFunds[id.User] = &withoutFundsRecord{FlaggedAtTick: currentTick}
			log.WithFields(logrus.Fields{"user": id.User, "tick": currentTick}).Warn("user flagged without funds")
		} else {
			rec.FlaggedAtTick = currentTick
		}
		return &ChargeResult{DeltaTicks: delta, GrossAmount: gross, FlaggedInsolvent: true}, nil
	}

	cutFraction := LinearThenPowerOfTwoTreasuryCut(utilisation.Ratio(), m.params)
	cut := uint64(float64(gross) * cutFraction)
	net := gross - cut

	// Ledger exposes hold/release/burn, not a direct transfer; a charge is
	// modeled as holding the gross amount out of the user's available
	// balance and immediately burning it out of held, then crediting the
	// recipients, which nets to the same balance movement as a transfer.
	if err := m.ledger.Hold(id.User, gross); err != nil {
		return nil, err
	}
	m.ledger.Burn(id.User, gross)
	m.ledger.Credit(provider.PaymentAccount, net)
	m.ledger.Credit(m.treasury, cut)

	s.LastChargedTick = currentTick
	delete(m.withoutFunds, id.User)

	return &ChargeResult{DeltaTicks: delta, GrossAmount: gross, TreasuryCut: cut, NetToProvider: net}, nil
}

// IsWithoutFunds reports whether a user is currently inside its
// UserWithoutFundsCooldown window.
func (m *Manager) IsWithoutFunds(user providers.AccountId, currentTick config.Tick) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.withoutFunds[user]
	if !ok {
		return false
	}
	return currentTick-rec.FlaggedAtTick < config.Tick(m.params.UserWithoutFundsCooldown)
}

// ClearWithoutFunds removes the flag, e.g. once the user tops up.
func (m *Manager) ClearWithoutFunds(user providers.AccountId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.withoutFunds, user)
}
