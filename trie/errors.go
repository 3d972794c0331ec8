package trie

import "github.com/pkg/errors"

// Sentinel errors returned by proof verification and delta application. A
// caller distinguishes them with errors.Is; wrapping with additional
// context (which key, which offset) is done at the call site via
// errors.Wrapf.
var (
	// ErrProofDecode is returned when a CompactProof's node list contains
	// an entry that doesn't decode.
	ErrProofDecode = errors.New("trie: malformed proof node")

	// ErrRootMismatch is returned when a reconstructed proof's computed
	// root doesn't match the root it was checked against.
	ErrRootMismatch = errors.New("trie: proof root does not match claimed root")

	// ErrChallengeUnseekable is returned when walking the proof toward a
	// challenged key runs off the edge of the supplied node set before
	// reaching either the key itself or a definitive bracketing pair,
	// i.e. the proof doesn't cover the challenge at all.
	ErrChallengeUnseekable = errors.New("trie: challenge key not covered by proof")

	// ErrMutationIncomplete is returned by ApplyForestDelta and
	// ApplyKeyDelta when the supplied
	// proof doesn't include every node along the path to a mutated key,
	// so the new root can't be computed.
	ErrMutationIncomplete = errors.New("trie: proof incomplete for requested mutation")

	// ErrRevertMissingValue is returned when a mutation claims to remove
	// or update a key but the proof shows no value present at that key.
	ErrRevertMissingValue = errors.New("trie: mutation target has no existing value")
)
