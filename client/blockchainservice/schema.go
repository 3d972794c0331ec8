package blockchainservice

import (
	"encoding/binary"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Column-family names, grounded on beacon-chain/db/kv's one-bucket-per-CF
// layout and beacon-chain/db/slasherkv's migration-bucket convention
// (migrationsBucket holding one key per applied migration number).
var (
	metaBucket       = []byte("meta")
	schemaVersionKey = []byte("schema_version")
	lastBlockKey     = []byte("last_processed_block_number")

	migrationsBucket   = []byte("migrations")
	migrationCompleted = []byte{1}

	ongoingBucket = []byte("ongoing_process_requests")

	deques = []RequestKind{
		KindConfirmStoring,
		KindMspRespondStorageRequest,
		KindStopStoringForInsolventUser,
		KindFileDeletionRequest,
	}
)

func dequeBucket(k RequestKind) []byte      { return []byte(k.String()) }
func dequeLeftBucket(k RequestKind) []byte  { return []byte(k.String() + "_left_index") }
func dequeRightBucket(k RequestKind) []byte { return []byte(k.String() + "_right_index") }

var topLevelBuckets = [][]byte{metaBucket, migrationsBucket, ongoingBucket}

// Migration mutates the store from version-1 to version. Deprecated
// column-family names must never be reused even after their bucket is
// dropped, per spec §6.
type Migration struct {
	Version uint32
	Apply   func(tx *bolt.Tx) error
}

// Store wraps the actor's persistent bbolt database: schema/migrations,
// the "ongoing" singleton bucket, and four persisted deques.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (creating if absent) the bbolt file at path, creates the
// base buckets, and applies any pending migrations in migrations (which
// must be ordered, start at 1, and contain no gaps). A store whose schema
// version is past the last listed migration is rejected.
func OpenStore(path string, migrations []Migration) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open bbolt store")
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(migrations); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range topLevelBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		for _, k := range deques {
			if _, err := tx.CreateBucketIfNotExists(dequeBucket(k)); err != nil {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists(dequeLeftBucket(k)); err != nil {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists(dequeRightBucket(k)); err != nil {
				return err
			}
		}
		meta := tx.Bucket(metaBucket)
		if meta.Get(schemaVersionKey) == nil {
			var v [4]byte
			return meta.Put(schemaVersionKey, v[:])
		}
		return nil
	})
}

// SchemaVersion returns the currently-applied schema version.
func (s *Store) SchemaVersion() (uint32, error) {
	var v uint32
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(schemaVersionKey)
		v = binary.LittleEndian.Uint32(raw)
		return nil
	})
	return v, err
}

func (s *Store) migrate(migrations []Migration) error {
	current, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	if current > uint32(len(migrations)) {
		return errors.Wrapf(ErrMigrationDowngrade, "store is at schema version %d, migrations only reach %d", current, len(migrations))
	}
	for i, m := range migrations {
		want := uint32(i + 1)
		if m.Version != want {
			return errors.Wrapf(ErrMigrationGap, "migration at index %d declares version %d, want %d", i, m.Version, want)
		}
		if m.Version <= current {
			continue // already applied; migrationsBucket still records it was run
		}
		if err := s.db.Update(func(tx *bolt.Tx) error {
			if err := m.Apply(tx); err != nil {
				return err
			}
			mb := tx.Bucket(migrationsBucket)
			var key [4]byte
			binary.BigEndian.PutUint32(key[:], m.Version)
			if err := mb.Put(key[:], migrationCompleted); err != nil {
				return err
			}
			var v [4]byte
			binary.LittleEndian.PutUint32(v[:], m.Version)
			return tx.Bucket(metaBucket).Put(schemaVersionKey, v[:])
		}); err != nil {
			return errors.Wrapf(err, "apply migration %d", m.Version)
		}
	}
	return nil
}

// Close releases the underlying bbolt handle.
func (s *Store) Close() error { return s.db.Close() }

// LastProcessedBlock returns the last block number fully handled, or
// (0, false) if the service has never processed one.
func (s *Store) LastProcessedBlock() (uint64, bool, error) {
	var n uint64
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get(lastBlockKey)
		if raw == nil {
			return nil
		}
		ok = true
		n = binary.BigEndian.Uint64(raw)
		return nil
	})
	return n, ok, err
}

// SetLastProcessedBlock persists n as the last fully-handled block number.
func (s *Store) SetLastProcessedBlock(n uint64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		var v [8]byte
		binary.BigEndian.PutUint64(v[:], n)
		return tx.Bucket(metaBucket).Put(lastBlockKey, v[:])
	})
}
