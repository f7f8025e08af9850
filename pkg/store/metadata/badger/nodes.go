package badger

import (
	"context"
	"errors"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/marmos91/kobject/pkg/store/metadata"
)

func (s *BadgerMetadataStore) Root(ctx context.Context) (*metadata.Node, error) {
	return s.Get(ctx, s.rootID)
}

func (s *BadgerMetadataStore) Get(ctx context.Context, id uuid.UUID) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var node *metadata.Node
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		node, err = getNode(txn, id)
		return err
	})
	if err != nil {
		return nil, ioError("get", err)
	}
	return node, nil
}

func (s *BadgerMetadataStore) Lookup(ctx context.Context, parent uuid.UUID, name string) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var node *metadata.Node
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getDir(txn, parent); err != nil {
			return err
		}

		childID, err := getChild(txn, parent, name)
		if err != nil {
			return err
		}

		node, err = getNode(txn, childID)
		return err
	})
	if err != nil {
		return nil, ioError("lookup", err)
	}
	return node, nil
}

func (s *BadgerMetadataStore) Create(ctx context.Context, parent uuid.UUID, name string, typ metadata.NodeType) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var node *metadata.Node
	err := s.db.Update(func(txn *badger.Txn) error {
		// ====================================================================
		// Step 1: Verify parent and name
		// ====================================================================

		dir, err := getDir(txn, parent)
		if err != nil {
			return err
		}

		if _, err := txn.Get(keyChild(parent, name)); err == nil {
			return metadata.AlreadyExistsError(name)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		// ====================================================================
		// Step 2: Write node, child entry and parent mtime atomically
		// ====================================================================

		node = metadata.NewNode(parent, name, typ)
		if err := putNode(txn, node); err != nil {
			return err
		}
		if err := txn.Set(keyChild(parent, name), node.ID[:]); err != nil {
			return err
		}

		dir.Mtime = node.Mtime
		return putNode(txn, dir)
	})
	if err != nil {
		return nil, ioError("create", err)
	}
	return node, nil
}

func (s *BadgerMetadataStore) List(ctx context.Context, parent uuid.UUID) ([]*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var nodes []*metadata.Node
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getDir(txn, parent); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyChildPrefix(parent)

		it := txn.NewIterator(opts)
		defer it.Close()

		// Keys sort bytewise, so the scan yields children ordered by name
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var childID uuid.UUID
			err := it.Item().Value(func(val []byte) error {
				var err error
				childID, err = decodeUUID(val)
				return err
			})
			if err != nil {
				return err
			}

			child, err := getNode(txn, childID)
			if err != nil {
				return err
			}
			nodes = append(nodes, child)
		}
		return nil
	})
	if err != nil {
		return nil, ioError("list", err)
	}
	if nodes == nil {
		nodes = []*metadata.Node{}
	}
	return nodes, nil
}

func (s *BadgerMetadataStore) Remove(ctx context.Context, parent uuid.UUID, name string) (*metadata.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed *metadata.Node
	err := s.db.Update(func(txn *badger.Txn) error {
		dir, err := getDir(txn, parent)
		if err != nil {
			return err
		}

		childID, err := getChild(txn, parent, name)
		if err != nil {
			return err
		}

		child, err := getNode(txn, childID)
		if err != nil {
			return err
		}

		if child.IsDir() && hasChildren(txn, childID) {
			return metadata.NotEmptyError(name)
		}

		if err := txn.Delete(keyChild(parent, name)); err != nil {
			return err
		}
		if err := txn.Delete(keyNode(childID)); err != nil {
			return err
		}

		dir.Mtime = time.Now()
		if err := putNode(txn, dir); err != nil {
			return err
		}

		removed = child
		return nil
	})
	if err != nil {
		return nil, ioError("remove", err)
	}
	return removed, nil
}

func (s *BadgerMetadataStore) SetSize(ctx context.Context, id uuid.UUID, size uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		node, err := getNode(txn, id)
		if err != nil {
			return err
		}
		node.Size = size
		node.Mtime = time.Now()
		return putNode(txn, node)
	})
	if err != nil {
		return ioError("set size", err)
	}
	return nil
}

// ============================================================================
// Transaction helpers
// ============================================================================

func getNode(txn *badger.Txn, id uuid.UUID) (*metadata.Node, error) {
	item, err := txn.Get(keyNode(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, metadata.NotFoundError(id.String())
	}
	if err != nil {
		return nil, err
	}

	var node *metadata.Node
	err = item.Value(func(val []byte) error {
		node, err = decodeNode(val)
		return err
	})
	return node, err
}

func putNode(txn *badger.Txn, node *metadata.Node) error {
	data, err := encodeNode(node)
	if err != nil {
		return err
	}
	return txn.Set(keyNode(node.ID), data)
}

func getDir(txn *badger.Txn, id uuid.UUID) (*metadata.Node, error) {
	node, err := getNode(txn, id)
	if err != nil {
		return nil, err
	}
	if !node.IsDir() {
		return nil, metadata.NotDirectoryError(node.Name)
	}
	return node, nil
}

func getChild(txn *badger.Txn, parent uuid.UUID, name string) (uuid.UUID, error) {
	item, err := txn.Get(keyChild(parent, name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return uuid.Nil, metadata.NotFoundError(name)
	}
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = item.Value(func(val []byte) error {
		id, err = decodeUUID(val)
		return err
	})
	return id, err
}

func hasChildren(txn *badger.Txn, id uuid.UUID) bool {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = keyChildPrefix(id)

	it := txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return it.Valid()
}
