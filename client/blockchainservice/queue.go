package blockchainservice

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"
)

// boundsKey is the single key each *_left_index / *_right_index bucket
// holds: the deque's current front (inclusive) and back (exclusive)
// sequence numbers.
var boundsKey = []byte("bounds")

func getBound(tx *bolt.Tx, bucket []byte) uint64 {
	raw := tx.Bucket(bucket).Get(boundsKey)
	if raw == nil {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}

func putBound(tx *bolt.Tx, bucket []byte, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return tx.Bucket(bucket).Put(boundsKey, b[:])
}

func seqKey(i uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], i)
	return k[:]
}

// PushBack appends req to the back of the persisted deque kind, batched
// into a single bbolt transaction per spec §5's "Shared resources" note
// on keeping invariants consistent across commits.
func (s *Store) PushBack(kind RequestKind, req QueuedRequest) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		items, right := dequeBucket(kind), dequeRightBucket(kind)
		back := getBound(tx, right)
		if err := tx.Bucket(items).Put(seqKey(back), encodeRequest(req)); err != nil {
			return err
		}
		return putBound(tx, right, back+1)
	})
}

// PushFront re-enqueues req at the front, used to restore the
// "currently in flight" item to the head of its queue on restart. Only
// valid when the item was itself just popped from this queue's front
// (the normal restart path); pushing to the front of a never-touched
// empty queue would underflow the front bound.
func (s *Store) PushFront(kind RequestKind, req QueuedRequest) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		items, left := dequeBucket(kind), dequeLeftBucket(kind)
		front := getBound(tx, left)
		newFront := front - 1
		if err := tx.Bucket(items).Put(seqKey(newFront), encodeRequest(req)); err != nil {
			return err
		}
		return putBound(tx, left, newFront)
	})
}

// PopFront removes and returns the item at the front of kind's queue.
func (s *Store) PopFront(kind RequestKind) (QueuedRequest, bool, error) {
	var req QueuedRequest
	var ok bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		items, left, right := dequeBucket(kind), dequeLeftBucket(kind), dequeRightBucket(kind)
		front, back := getBound(tx, left), getBound(tx, right)
		if front >= back {
			return nil
		}
		raw := tx.Bucket(items).Get(seqKey(front))
		if raw == nil {
			return ErrQueueEmpty
		}
		req = decodeRequest(raw)
		ok = true
		if err := tx.Bucket(items).Delete(seqKey(front)); err != nil {
			return err
		}
		return putBound(tx, left, front+1)
	})
	return req, ok, err
}

// Len reports how many items are currently queued under kind.
func (s *Store) Len(kind RequestKind) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		left, right := dequeLeftBucket(kind), dequeRightBucket(kind)
		n = int(getBound(tx, right) - getBound(tx, left))
		return nil
	})
	return n, err
}

// SetOngoing persists req as the in-flight item for kind, so a restart can
// re-enqueue it at the front rather than losing it mid-flight.
func (s *Store) SetOngoing(kind RequestKind, req QueuedRequest) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ongoingBucket).Put([]byte(kind.String()), encodeRequest(req))
	})
}

// ClearOngoing removes the in-flight marker for kind once its work
// completes (successfully or by exhausting retries).
func (s *Store) ClearOngoing(kind RequestKind) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ongoingBucket).Delete([]byte(kind.String()))
	})
}

// Ongoing returns the in-flight item for kind, if any — called on startup
// to restore interrupted work.
func (s *Store) Ongoing(kind RequestKind) (QueuedRequest, bool, error) {
	var req QueuedRequest
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(ongoingBucket).Get([]byte(kind.String()))
		if raw == nil {
			return nil
		}
		req = decodeRequest(raw)
		ok = true
		return nil
	})
	return req, ok, err
}

// encodeRequest/decodeRequest use a minimal fixed layout: 1 byte kind,
// 4 bytes try_count, then the raw payload — the payload itself is already
// caller-encoded (spec leaves wire encoding of extrinsic payloads to the
// runtime, not this store).
func encodeRequest(r QueuedRequest) []byte {
	buf := make([]byte, 5+len(r.Payload))
	buf[0] = byte(r.Kind)
	binary.BigEndian.PutUint32(buf[1:5], uint32(r.TryCount))
	copy(buf[5:], r.Payload)
	return buf
}

func decodeRequest(raw []byte) QueuedRequest {
	payload := append([]byte(nil), raw[5:]...)
	return QueuedRequest{
		Kind:     RequestKind(raw[0]),
		TryCount: int(binary.BigEndian.Uint32(raw[1:5])),
		Payload:  payload,
	}
}
