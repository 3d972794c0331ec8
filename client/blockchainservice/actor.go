package blockchainservice

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/storagehub/core/async"
	"github.com/storagehub/core/config"
	"github.com/storagehub/core/proofs"
	"github.com/storagehub/core/providers"
)

var log = logrus.WithField("prefix", "blockchainservice")

// Service is the single-threaded off-chain actor described in spec §4.F.
// Its exported Handle* methods are the message-loop's per-event handlers;
// a caller (cmd/storagehubd, or a test) owns the actual select loop over
// its three input streams (external commands, block-import, finality) and
// calls these in order, matching §5's "events within a block are
// processed in block order" guarantee.
type Service struct {
	mu sync.Mutex

	params  *config.Params
	self    providers.ProviderId
	kind    providers.Kind
	account providers.AccountId

	chain     ChainClient
	submitter ExtrinsicSubmitter
	store     *Store
	engine    *proofs.Engine
	proofGen  ProofGenerator

	local        *localTries
	waiters      *waiters
	permit       *writePermit
	submitProofs *submitProofSet

	localNonce uint64
}

// NewService wires a blockchain-service actor for a single registered
// provider (one actor per provider client, matching the teacher's
// one-beacon-node-per-validator-set style rather than a multi-tenant
// daemon).
func NewService(params *config.Params, self providers.ProviderId, kind providers.Kind, account providers.AccountId, chain ChainClient, submitter ExtrinsicSubmitter, store *Store, engine *proofs.Engine, proofGen ProofGenerator) *Service {
	if params == nil {
		params = config.Current()
	}
	return &Service{
		params:       params,
		self:         self,
		kind:         kind,
		account:      account,
		chain:        chain,
		submitter:    submitter,
		store:        store,
		engine:       engine,
		proofGen:     proofGen,
		local:        newLocalTries(),
		waiters:      newWaiters(),
		permit:       newWritePermit(),
		submitProofs: newSubmitProofSet(),
	}
}

// WaitForBlock and WaitForTick expose the actor's waiter registry to
// external callers (spec §4.F step 5 / §9).
func (s *Service) WaitForBlock(n uint64) <-chan struct{}      { return s.waiters.WaitForBlock(n) }
func (s *Service) WaitForTick(t config.Tick) <-chan struct{} { return s.waiters.WaitForTick(t) }

// HandleBlockImport runs the per-block-import pipeline of spec §4.F.
// seedEvent, if non-nil, is this block's NewChallengeSeed event; it
// triggers catch-up challenge emission even outside the periodic check
// when it matches this provider's next challenge tick.
func (s *Service) HandleBlockImport(ev BlockImportEvent, eventsByBlock map[BlockHash][]ForestMutationEvent, nonceAccount providers.AccountId, seedEvent *NewChallengeSeedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.Kind == NewNonBestBlock {
		return nil
	}

	route := ev.Route
	if route == nil {
		r, err := s.reconstructRoute(ev.Block)
		if err != nil {
			return err
		}
		route = &r
	}

	if keys := routeLockKeys(*route, eventsByBlock); len(keys) > 0 {
		lock := async.NewMultilock(keys...)
		lock.Lock()
		defer lock.Unlock()
	}
	if err := s.local.ApplyTreeRoute(*route, eventsByBlock); err != nil {
		log.WithError(err).Error("forest root mismatch during tree-route replay; aborting this block import")
		return err
	}

	if err := s.reconcileNonce(nonceAccount); err != nil {
		return err
	}

	if s.kind == providers.KindBSP {
		s.emitCatchUpChallenges(ev.Block.Tick, seedEvent)
	}

	if err := s.store.SetLastProcessedBlock(ev.Block.Number); err != nil {
		return err
	}
	s.waiters.notify(ev.Block.Number, ev.Block.Tick)

	s.processPendingWorkLocked()
	return nil
}

func (s *Service) reconstructRoute(tip BlockHeader) (TreeRoute, error) {
	last, ok, err := s.store.LastProcessedBlock()
	if err != nil {
		return TreeRoute{}, err
	}
	if !ok {
		return TreeRoute{Common: tip, Enacted: nil}, nil
	}
	oldBest, ok, err := s.chain.HeaderByHash(tip.ParentHash)
	if err != nil {
		return TreeRoute{}, err
	}
	if !ok {
		oldBest = BlockHeader{Number: last}
	}
	return buildRouteFromParentWalk(s.chain, tip, oldBest, s.params.MaxBlocksBehindToCatchUpRootChanges)
}

// reconcileNonce re-syncs the local nonce counter with the chain's
// observed value, taking max(local, on_chain) per spec §5's ordering
// guarantees, and counts an unexpected forward jump as a desync.
func (s *Service) reconcileNonce(account providers.AccountId) error {
	onChain, err := s.chain.OnChainNonce(account)
	if err != nil {
		return err
	}
	if onChain > s.localNonce {
		if s.localNonce != 0 {
			nonceDesyncTotal.Inc()
			log.WithFields(logrus.Fields{"local": s.localNonce, "on_chain": onChain}).Warn("nonce desync detected")
		}
		s.localNonce = onChain
	}
	return nil
}

// nextNonceLocked returns the nonce to use for the next outbound
// extrinsic and advances the local counter. Must be called with s.mu
// held: it is the single point that mutates localNonce on behalf of a
// request about to be handed to a spawned goroutine, so that
// reconcileNonce (which also mutates it under s.mu, on the actor's own
// goroutine) never races it, per spec §5's strictly-monotonic
// single-writer nonce guarantee.
func (s *Service) nextNonceLocked() uint64 {
	n := s.localNonce
	s.localNonce++
	return n
}

// emitCatchUpChallenges implements spec §4.F step 4: on the configured
// period, or when a NewChallengeSeed event lands for this provider's next
// challenge tick, emit every missed challenge tick from
// next_tick_to_submit_proof_for up to current_tick, inclusive.
func (s *Service) emitCatchUpChallenges(currentTick config.Tick, seedEvent *NewChallengeSeedEvent) {
	rec, ok := s.engine.Record(s.self)
	if !ok {
		return
	}
	periodic := currentTick%s.params.CheckForPendingProofsPeriod == 0
	seedMatches := seedEvent != nil && seedEvent.Tick == rec.NextTickToSubmitProofFor
	if !periodic && !seedMatches {
		return
	}
	challengePeriod := proofs.Period(rec.Stake, s.params)
	for t := rec.NextTickToSubmitProofFor; t <= currentTick; t += challengePeriod {
		if err := s.Enqueue(KindSubmitProof, QueuedRequest{Kind: KindSubmitProof, Payload: encodeTickPayload(t)}); err != nil {
			log.WithError(err).Warn("failed to enqueue catch-up challenge")
		}
	}
}

func encodeTickPayload(t config.Tick) []byte {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(t >> (8 * uint(i)))
	}
	return buf
}

// HandleFinality implements spec §4.F's finality handling: permanent
// side-effects (e.g. freeing file storage) run only once a block is
// finalized, since pre-finality mutations are applied to the forest trie
// alone and a reorg could still restore pre-image bytes.
func (s *Service) HandleFinality(ev FinalityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mut := range ev.Mutations {
		for _, m := range mut.Mutations {
			if m.Kind == MutationRemove {
				log.WithField("key", m.Key).Debug("finalized removal; safe to release retained file bytes")
			}
		}
	}
	return nil
}

// Enqueue persists req at the back of its queue (or, for SubmitProof,
// which spec §4.F keeps purely in-memory since next_tick_to_submit_proof_for
// is dynamic, adds it to the in-memory submit set instead).
func (s *Service) Enqueue(kind RequestKind, req QueuedRequest) error {
	if kind == KindSubmitProof {
		s.submitProofs.Add(decodeTickPayload(req.Payload))
		queueDepth.WithLabelValues(kind.String()).Set(float64(s.submitProofs.Len()))
		return nil
	}
	if err := s.store.PushBack(kind, req); err != nil {
		return err
	}
	n, err := s.store.Len(kind)
	if err == nil {
		queueDepth.WithLabelValues(kind.String()).Set(float64(n))
	}
	return nil
}

// processPendingWorkLocked attempts to acquire the write permit and, if
// granted, emits exactly one "process X" unit of work per spec §4.F's
// "Forest-root write permit" paragraph. Must be called with s.mu held.
func (s *Service) processPendingWorkLocked() {
	if _, held := s.permit.Held(); held {
		return
	}
	priority := mspPriority
	if s.kind == providers.KindBSP {
		priority = bspPriority
	}
	for _, kind := range priority {
		if kind == KindSubmitProof {
			entry, ok := s.submitProofs.PopEarliest()
			if !ok {
				continue
			}
			release, granted := s.permit.TryAcquire(kind)
			if !granted {
				s.submitProofs.Requeue(entry)
				return
			}
			nonce := s.nextNonceLocked()
			go s.processSubmitProof(entry, nonce, release)
			return
		}
		n, err := s.store.Len(kind)
		if err != nil || n == 0 {
			continue
		}
		req, ok, err := s.store.PopFront(kind)
		if err != nil || !ok {
			continue
		}
		release, granted := s.permit.TryAcquire(kind)
		if !granted {
			return
		}
		if err := s.store.SetOngoing(kind, req); err != nil {
			log.WithError(err).Error("failed to persist ongoing marker")
		}
		nonce := s.nextNonceLocked()
		go s.process(kind, req, nonce, release)
		return
	}
}

// process runs one spawned unit of queued work: submit it, then clear the
// ongoing marker, release the permit and start the next pending item. It
// does not touch the local forest replica, which changes only through
// block-import replay. Errors classified as retryable (timeout only, per
// spec §9) requeue the item at the back with an incremented try count;
// once that count exceeds MaxQueueItemRetries the item is dropped with a
// critical log, and any other error drops the item as well.
func (s *Service) process(kind RequestKind, req QueuedRequest, nonce uint64, release chan struct{}) {
	defer func() {
		s.mu.Lock()
		_ = s.store.ClearOngoing(kind)
		s.permit.Release() // also closes release, the channel TryAcquire handed back
		s.processPendingWorkLocked()
		s.mu.Unlock()
	}()

	err := s.submitter.Submit(kind, nonce, req.Payload)
	if err == nil {
		return
	}
	if IsRetryable(err) {
		req.TryCount++
		if req.TryCount > s.params.MaxQueueItemRetries {
			itemsDroppedTotal.WithLabelValues(kind.String()).Inc()
			log.WithFields(logrus.Fields{"kind": kind, "tries": req.TryCount}).Error("queued item exceeded retry bound, dropping")
			return
		}
		if pushErr := s.store.PushBack(kind, req); pushErr != nil {
			log.WithError(pushErr).Error("failed to requeue retryable item")
		}
		return
	}
	log.WithError(err).WithField("kind", kind).Error("extrinsic submission failed (non-retryable)")
}

// Close releases the underlying persistent store.
func (s *Service) Close() error { return s.store.Close() }
