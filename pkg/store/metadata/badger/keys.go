package badger

import (
	"github.com/google/uuid"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize the tree into
// namespaces:
//
// Data Type        Prefix   Key Format                      Value Type
// =====================================================================
// Node Data        "n:"     n:<uuid>                        Node (JSON)
// Children Map     "c:"     c:<parentUUID>:<childName>      childUUID (16 bytes)
// Root Pointer     "root"   root                            rootUUID (16 bytes)
//
// The children map is denormalized (one entry per child) so listing a
// directory is a prefix scan over "c:<parentUUID>:".

const (
	// prefixNode is the key prefix for node data
	prefixNode = "n:"

	// prefixChild is the key prefix for children mappings (parentUUID:name → childUUID)
	prefixChild = "c:"

	// keyRootName stores the root directory's UUID
	keyRootName = "root"
)

// keyNode generates a key for node data.
//
// Format: "n:<uuid>"
func keyNode(id uuid.UUID) []byte {
	return []byte(prefixNode + id.String())
}

// keyChild generates a key for a child entry in a directory.
//
// Format: "c:<parentUUID>:<childName>"
func keyChild(parentID uuid.UUID, childName string) []byte {
	return []byte(prefixChild + parentID.String() + ":" + childName)
}

// keyChildPrefix generates a key prefix for scanning the children of a directory.
//
// Format: "c:<parentUUID>:"
func keyChildPrefix(parentID uuid.UUID) []byte {
	return []byte(prefixChild + parentID.String() + ":")
}

func keyRoot() []byte {
	return []byte(keyRootName)
}
