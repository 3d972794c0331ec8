package filesystem

import "github.com/pkg/errors"

// Sentinels named in spec §7's File-System taxonomy, plus a handful of
// additions (noted inline) needed to keep every operation total.
var (
	ErrStorageRequestClosed      = errors.New("filesystem: storage request is closed")
	ErrInsufficientCapacity      = errors.New("filesystem: provider lacks capacity for this file")
	ErrFingerprintMismatch       = errors.New("filesystem: fingerprint does not match the storage request")
	ErrInvalidChunkSize          = errors.New("filesystem: invalid chunk size")
	ErrBatchSizeExceeded         = errors.New("filesystem: batch size exceeded")
	ErrFileNotFound              = errors.New("filesystem: file not found")
	ErrBucketNotEmpty            = errors.New("filesystem: bucket is not empty")
	ErrMspAlreadyAssignedToBucket = errors.New("filesystem: msp already assigned to bucket")
	ErrBucketSizeExceedsLimit    = errors.New("filesystem: bucket size would exceed its value proposition's limit")

	// Not named in spec §7's (non-exhaustive) list.
	ErrStorageRequestNotFound   = errors.New("filesystem: no storage request for that file key")
	ErrVolunteerTickNotReached  = errors.New("filesystem: earliest volunteer tick not reached yet")
	ErrAlreadyVolunteered       = errors.New("filesystem: bsp has already volunteered for this file")
	ErrProofGenerationFailed    = errors.New("filesystem: non-inclusion or mutation proof verification failed")
	ErrRequestNotExpired        = errors.New("filesystem: storage request has not expired yet")
	ErrNoPendingDeletion        = errors.New("filesystem: no pending deletion for that file key")
	ErrNoPendingBucketMove      = errors.New("filesystem: no pending bucket move for that bucket")
	ErrBucketMoveExpired        = errors.New("filesystem: bucket move request has expired")
	ErrUserNotWithoutFunds      = errors.New("filesystem: user is not currently flagged without funds")
	ErrStopStoringTooSoon       = errors.New("filesystem: minimum wait for stop-storing has not elapsed")
	ErrNoPendingStopStoring     = errors.New("filesystem: no pending stop-storing request for that file key")
	ErrBspNotVolunteered        = errors.New("filesystem: bsp must volunteer before confirm-storing")
)
