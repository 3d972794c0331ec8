package proofs

import "github.com/pkg/errors"

// Sentinels named in spec §7's Engine taxonomy.
var (
	ErrNotProvider                      = errors.New("proofs: no challenge-cycle record for this provider")
	ErrProviderRootNotFound              = errors.New("proofs: provider root not found")
	ErrZeroRoot                          = errors.New("proofs: provider root is the default (empty) root")
	ErrZeroStake                         = errors.New("proofs: provider has zero stake")
	ErrNoRecordOfLastSubmittedProof      = errors.New("proofs: no record of a prior submitted proof")
	ErrChallengesTickNotReached          = errors.New("proofs: challenge tick not yet reached")
	ErrChallengesTickTooOld              = errors.New("proofs: challenge tick older than challenge history length")
	ErrChallengesTickTooLate             = errors.New("proofs: challenge tick outside the tolerance window")
	ErrSeedNotFound                      = errors.New("proofs: no challenge seed recorded for that tick")
	ErrCheckpointChallengesNotFound      = errors.New("proofs: no checkpoint challenges recorded for that tick")
	ErrForestProofVerificationFailed     = errors.New("proofs: forest proof verification failed")
	ErrFailedToApplyDelta                = errors.New("proofs: failed to apply checkpoint-removal delta")
	ErrIncorrectNumberOfKeyProofs        = errors.New("proofs: key proof count does not match forest-keys-proven minus removed")
	ErrKeyProofNotFound                  = errors.New("proofs: missing key proof for a proven forest key")
	ErrKeyProofVerificationFailed        = errors.New("proofs: key proof verification failed")
	ErrUnexpectedNumberOfRemoveMutations = errors.New("proofs: unexpected number of remove mutations in checkpoint delta")
)
