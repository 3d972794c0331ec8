package blockchainservice

import (
	"github.com/storagehub/core/providers"
)

// ChainClient is the narrow read surface the actor needs from the node it
// is attached to: header lookup for reorg-route reconstruction (spec §4.F
// step 1) and nonce observation for reconciliation (step 3).
type ChainClient interface {
	HeaderByHash(hash BlockHash) (BlockHeader, bool, error)
	OnChainNonce(account providers.AccountId) (uint64, error)
}

// ExtrinsicSubmitter abstracts signing and submitting a transaction.
// Implementations should return a *RetryableError for a timeout (no
// inclusion within the deadline) and a plain error for anything else
// (spec §9: never auto-resubmit an included-and-reverted transaction).
type ExtrinsicSubmitter interface {
	Submit(kind RequestKind, nonce uint64, payload []byte) error
}

// buildRouteFromParentWalk reconstructs a TreeRoute for a plain new-best
// block whose route wasn't supplied by the notification, by walking
// parent hashes back from the new tip until it reaches the previously-known
// best block, bounded by maxDepth (spec §4.F step 1:
// MaxBlocksBehindToCatchUpRootChanges). oldBest's own ancestry is not
// walked: oldBest is always returned as the common ancestor, and the route
// never has retracted blocks.
func buildRouteFromParentWalk(chain ChainClient, newTip, oldBest BlockHeader, maxDepth uint64) (TreeRoute, error) {
	var enacted []BlockHeader
	cur := newTip
	seen := map[BlockHash]bool{oldBest.Hash: true}
	for i := uint64(0); i < maxDepth; i++ {
		if cur.Hash == oldBest.Hash {
			reverse(enacted)
			return TreeRoute{Common: oldBest, Enacted: enacted}, nil
		}
		enacted = append(enacted, cur)
		if seen[cur.ParentHash] {
			break
		}
		parent, ok, err := chain.HeaderByHash(cur.ParentHash)
		if err != nil {
			return TreeRoute{}, err
		}
		if !ok {
			break
		}
		cur = parent
	}
	// Reached when the loop stops without cur itself being oldBest: usually
	// because cur's parent is oldBest (the seen check above), otherwise
	// because a header was missing or maxDepth ran out. In every case
	// oldBest is returned as the common ancestor of an all-enacted route.
	reverse(enacted)
	return TreeRoute{Common: oldBest, Enacted: enacted}, nil
}

func reverse(h []BlockHeader) {
	for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
		h[i], h[j] = h[j], h[i]
	}
}
