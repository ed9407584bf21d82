// Package od models origin-destination travel demand between externally
// defined zones. The matrix itself comes from an outside generator (e.g. a
// gravity model); this package only loads and validates it.
package od

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrDemand reports a negative demand value in the matrix.
var ErrDemand = errors.New("demand must be non-negative")

// Matrix is the nested origin zone → destination zone → demand mapping.
type Matrix map[string]map[string]float64

// Zone carries the externally resolved representative graph node for a
// polygonal zone.
type Zone struct {
	Node string `json:"node"`
}

// ZoneNodes maps zone identifiers to their representative nodes.
type ZoneNodes map[string]Zone

// Origins returns the origin zones in sorted order, so iteration over the
// matrix is deterministic.
func (m Matrix) Origins() []string {
	out := make([]string, 0, len(m))
	for o := range m {
		out = append(out, o)
	}
	sort.Strings(out)
	return out
}

// Destinations returns the destination zones for origin, sorted.
func (m Matrix) Destinations(origin string) []string {
	row := m[origin]
	out := make([]string, 0, len(row))
	for d := range row {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Validate rejects negative demand values.
func (m Matrix) Validate() error {
	for _, o := range m.Origins() {
		for _, d := range m.Destinations(o) {
			if v := m[o][d]; v < 0 {
				return fmt.Errorf("%w: %s -> %s is %g", ErrDemand, o, d, v)
			}
		}
	}
	return nil
}

// ReadMatrixFile loads and validates a demand matrix JSON document.
func ReadMatrixFile(path string) (Matrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read od matrix %s: %w", path, err)
	}
	var m Matrix
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse od matrix %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadZonesFile loads the zone → representative node mapping.
func ReadZonesFile(path string) (ZoneNodes, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones %s: %w", path, err)
	}
	var z ZoneNodes
	if err := json.Unmarshal(raw, &z); err != nil {
		return nil, fmt.Errorf("parse zones %s: %w", path, err)
	}
	return z, nil
}
