package blockchainservice

import "sync"

// writePermit is the single-slot exclusive token described in spec §9:
// "replace any ambient-lock pattern with a single-permit actor token
// passed by value across task boundaries; reclamation is explicit via a
// oneshot signal." The actor grants it from processPendingWorkLocked and
// releases it from the spawned process/processSubmitProof goroutines, in
// both cases with Service.mu held; the mutex here guards held, holder and
// release so Held can also be queried without Service.mu (e.g. by tests).
type writePermit struct {
	mu      sync.Mutex
	held    bool
	holder  RequestKind
	release chan struct{} // handed to the holder by TryAcquire; closed by Release
}

func newWritePermit() *writePermit {
	return &writePermit{}
}

// TryAcquire grants the permit to kind if it is free, returning a channel
// that Release closes when the permit is freed; closing that channel does
// not by itself free the permit. Spec §8 invariant 3: the service's
// persisted "ongoing" key is non-empty iff the write permit is held —
// callers pair a successful TryAcquire for a persisted queue kind with
// Store.SetOngoing and its release with Store.ClearOngoing. KindSubmitProof
// has no persisted queue, and no ongoing marker is written while it holds
// the permit.
func (p *writePermit) TryAcquire(kind RequestKind) (chan struct{}, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.held {
		return nil, false
	}
	p.held = true
	p.holder = kind
	p.release = make(chan struct{})
	return p.release, true
}

// Release frees the permit. Safe to call even if the release channel has
// already been closed by the holder directly; Release is idempotent.
func (p *writePermit) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.held {
		return
	}
	select {
	case <-p.release:
	default:
		close(p.release)
	}
	p.held = false
}

// Held reports whether the permit is currently taken, and by which kind.
func (p *writePermit) Held() (RequestKind, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holder, p.held
}

// bspPriority and mspPriority encode spec §4.F's granting order: BSP
// SubmitProofRequest > ConfirmStoringRequest > StopStoringForInsolventUserRequest;
// MSP FileDeletionRequest > RespondStorageRequest > StopStoringForInsolventUserRequest.
var bspPriority = []RequestKind{KindSubmitProof, KindConfirmStoring, KindStopStoringForInsolventUser}
var mspPriority = []RequestKind{KindFileDeletionRequest, KindMspRespondStorageRequest, KindStopStoringForInsolventUser}
