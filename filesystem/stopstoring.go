package filesystem

import (
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/providers"
)

// RequestStopStoring lets a BSP flag its intent to stop storing key for
// user while user is flagged without funds, i.e. within
// UserWithoutFundsCooldown ticks of the flag being set. The provider must wait
// MinWaitForStopStoring before confirming, giving the user a window to
// top up.
func (m *Manager) RequestStopStoring(provider providers.ProviderId, key FileKey, user providers.AccountId, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.funds.IsWithoutFunds(user, currentTick) {
		return ErrUserNotWithoutFunds
	}
	if _, exists := m.stopStoring[key]; exists {
		return nil
	}
	m.stopStoring[key] = &StopStoringRequest{
		Provider:    provider,
		FileKey:     key,
		User:        user,
		RequestedAt: currentTick,
	}
	log.WithFields(map[string]interface{}{"provider": provider, "file_key": key}).Info("stop storing requested")
	return nil
}

// ConfirmStopStoring finalizes a stop-storing request once
// MinWaitForStopStoring has elapsed, freeing the provider's used capacity
// and compelling removal from its forest via a priority checkpoint
// challenge (the same should_remove_key path used for normal deletions).
func (m *Manager) ConfirmStopStoring(provider providers.ProviderId, key FileKey, size uint64, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.stopStoring[key]
	if !ok {
		return ErrNoPendingStopStoring
	}
	if req.Provider != provider {
		return providers.ErrUnknownProvider
	}
	if currentTick < req.RequestedAt+m.params.MinWaitForStopStoring {
		return ErrStopStoringTooSoon
	}

	if err := m.directory.DecreaseUsedCapacity(provider, size); err != nil {
		return err
	}
	m.challenges.EnqueuePriorityChallenge(key[:])
	delete(m.stopStoring, key)
	log.WithFields(map[string]interface{}{"provider": provider, "file_key": key}).Info("stop storing confirmed")
	return nil
}
