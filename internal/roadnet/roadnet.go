// Package roadnet holds the street-network model: the serialisable input
// graph and its discretisation into per-edge cell arrays used by the
// simulation engine.
package roadnet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// NodeID and EdgeID are the external string identifiers carried by the
// input data. Internally the grid works with dense integer indices.
type (
	NodeID = string
	EdgeID = string
)

// Node is a junction in the street network. X/Y are kept for callers that
// want to render vehicle positions; the engine itself never reads them.
type Node struct {
	ID NodeID  `json:"node_id"`
	X  float64 `json:"x,omitempty"`
	Y  float64 `json:"y,omitempty"`
}

// Edge is a directed road section between two nodes.
type Edge struct {
	ID     EdgeID  `json:"edge_id"`
	From   NodeID  `json:"from"`
	To     NodeID  `json:"to"`
	Length float64 `json:"length_m"` // metres
}

// NetworkData is the JSON input representation of a street network, as
// produced by an external map loader.
type NetworkData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Sentinel errors for network construction and routing.
var (
	// ErrCellLength reports a non-positive cell length.
	ErrCellLength = errors.New("cell length must be positive")
	// ErrIntegrity reports a malformed input graph (dangling edge
	// references, non-positive lengths, duplicate identifiers).
	ErrIntegrity = errors.New("network integrity")
	// ErrUnreachable reports that no directed path exists between two
	// nodes. Callers treat this as a recoverable, per-pair condition.
	ErrUnreachable = errors.New("no path between nodes")
	// ErrUnknownNode reports a node identifier absent from the network.
	ErrUnknownNode = errors.New("unknown node")
)

// ReadFile loads a NetworkData JSON document from disk.
func ReadFile(path string) (NetworkData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NetworkData{}, fmt.Errorf("read network %s: %w", path, err)
	}
	var data NetworkData
	if err := json.Unmarshal(raw, &data); err != nil {
		return NetworkData{}, fmt.Errorf("parse network %s: %w", path, err)
	}
	return data, nil
}
