// Package badger implements a persistent node store on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	"github.com/marmos91/kobject/internal/logger"
	"github.com/marmos91/kobject/pkg/store/metadata"
)

// BadgerMetadataStore implements metadata.Store using BadgerDB for persistence.
//
// Key Features:
//   - Persistent tree that survives restarts (WAL-based crash recovery)
//   - ACID transactions: create and remove touch node and child keys atomically
//   - Efficient prefix scans for directory listings
//
// Thread Safety:
// Mutating operations are serialized by mu so concurrent creates in the same
// directory never race into a transaction conflict. Reads rely on Badger's MVCC.
type BadgerMetadataStore struct {
	db     *badger.DB
	rootID uuid.UUID
	mu     sync.Mutex
}

// BadgerMetadataStoreConfig contains configuration for the BadgerDB store.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory holding the database files
	DBPath string

	// InMemory keeps the database in RAM (DBPath is ignored)
	InMemory bool

	// BlockCacheSizeMB is the block cache size (default: 64MB)
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is the index cache size (default: 32MB)
	IndexCacheSizeMB int64

	// BadgerOptions overrides every other option when set
	BadgerOptions *badger.Options
}

// NewBadgerMetadataStore opens (or creates) the database and ensures a root
// directory exists.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - config: Store configuration
//
// Returns:
//   - *BadgerMetadataStore: The opened store
//   - error: Error if the database cannot be opened or initialized
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	// Check context before database operations
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Prepare BadgerDB options
	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			opts = badger.DefaultOptions(config.DBPath)
		}

		// Nodes are small and frequently read; compression isn't worth it
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	store := &BadgerMetadataStore{db: db}

	if err := store.initializeRoot(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize root: %w", err)
	}

	logger.Debug("Badger node store opened: path=%s in_memory=%t root=%s",
		config.DBPath, config.InMemory, store.rootID)

	return store, nil
}

// initializeRoot loads the root pointer, creating the root directory on a
// fresh database.
func (s *BadgerMetadataStore) initializeRoot() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRoot())
		if err == nil {
			return item.Value(func(val []byte) error {
				id, err := decodeUUID(val)
				if err != nil {
					return err
				}
				s.rootID = id
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		root := metadata.NewNode(uuid.Nil, "", metadata.NodeDirectory)
		root.Parent = root.ID

		if err := putNode(txn, root); err != nil {
			return err
		}
		if err := txn.Set(keyRoot(), root.ID[:]); err != nil {
			return err
		}
		s.rootID = root.ID
		return nil
	})
}

// Close closes the underlying database.
func (s *BadgerMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// ioError wraps infrastructure failures into a StoreError.
func ioError(op string, err error) error {
	var storeErr *metadata.StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, badger.ErrDBClosed) {
		return metadata.ErrStoreClosed
	}
	return &metadata.StoreError{
		Code:    metadata.ErrIOError,
		Message: fmt.Sprintf("%s failed: %v", op, err),
	}
}
