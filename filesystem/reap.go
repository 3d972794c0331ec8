package filesystem

import "github.com/storagehub/core/config"

// ReapExpiredRequest closes an unfilled storage request once its TTL has
// elapsed, refunding the owner's deposit in proportion to the unmet share
// of the replication target (spec §4.E step 5). The portion corresponding
// to already-confirmed BSPs stays held rather than refunded. Neither
// confirmation nor reaping creates payment streams or moves that held
// share into one; streams are created explicitly through the payments
// package.
func (m *Manager) ReapExpiredRequest(key FileKey, currentTick config.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[key]
	if !ok {
		return ErrStorageRequestNotFound
	}
	if req.Closed {
		return ErrStorageRequestClosed
	}
	if currentTick < req.ExpiresAt {
		return ErrRequestNotExpired
	}

	confirmed := uint32(len(req.ConfirmedBsps))
	if confirmed >= req.ReplicationTarget {
		req.Closed = true
		return m.deposits.Release(req.Owner, req.Deposit)
	}

	unmet := req.ReplicationTarget - confirmed
	refund := req.Deposit * uint64(unmet) / uint64(req.ReplicationTarget)

	req.Closed = true
	if refund == 0 {
		return nil
	}
	return m.deposits.Release(req.Owner, refund)
}

// GetStorageRequest returns a request's current state for inspection.
func (m *Manager) GetStorageRequest(key FileKey) (*StorageRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[key]
	return r, ok
}
