package badger

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/marmos91/kobject/pkg/store/metadata"
)

// Nodes are stored as JSON for debuggability; UUID values (children map,
// root pointer) as their raw 16 bytes.

func encodeNode(node *metadata.Node) ([]byte, error) {
	data, err := json.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node: %w", err)
	}
	return data, nil
}

func decodeNode(data []byte) (*metadata.Node, error) {
	var node metadata.Node
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to decode node: %w", err)
	}
	return &node, nil
}

func decodeUUID(val []byte) (uuid.UUID, error) {
	id, err := uuid.FromBytes(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID value: %w", err)
	}
	return id, nil
}
