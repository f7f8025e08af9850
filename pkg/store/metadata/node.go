package metadata

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NodeType distinguishes files from directories.
type NodeType int

const (
	NodeFile NodeType = iota
	NodeDirectory
)

func (t NodeType) String() string {
	switch t {
	case NodeFile:
		return "file"
	case NodeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// MaxNameLen bounds a single name component.
const MaxNameLen = 255

// Node is one entry of the directory tree.
//
// The root is its own parent. ContentID is empty for directories and names the
// file's bytes in the content store otherwise.
type Node struct {
	ID        uuid.UUID `json:"id"`
	Parent    uuid.UUID `json:"parent"`
	Name      string    `json:"name"`
	Type      NodeType  `json:"type"`
	Size      uint64    `json:"size"`
	ContentID string    `json:"content_id,omitempty"`
	Mtime     time.Time `json:"mtime"`
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Type == NodeDirectory
}

// Clone returns a copy safe to hand to callers.
func (n *Node) Clone() *Node {
	c := *n
	return &c
}

// NewNode builds a node with a fresh random ID.
//
// Files get a ContentID derived from the node ID.
func NewNode(parent uuid.UUID, name string, typ NodeType) *Node {
	id := uuid.New()
	node := &Node{
		ID:     id,
		Parent: parent,
		Name:   name,
		Type:   typ,
		Mtime:  time.Now(),
	}
	if typ == NodeFile {
		node.ContentID = id.String()
	}
	return node
}

// ValidateName rejects names that cannot be stored as a single component.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return &StoreError{Code: ErrInvalidArgument, Message: "invalid name", Path: name}
	case len(name) > MaxNameLen:
		return &StoreError{Code: ErrInvalidArgument, Message: "name too long", Path: name}
	case strings.ContainsAny(name, "/\x00"):
		return &StoreError{Code: ErrInvalidArgument, Message: "name contains reserved character", Path: name}
	}
	return nil
}
