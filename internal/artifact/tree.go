package artifact

import (
	"encoding/gob"
	"fmt"
	"io"

	"LinkSight/internal/domain/service"
)

const (
	FamilyTree   = "DecisionTreeRegressor"
	FamilyForest = "RandomForestRegressor"
)

func init() {
	Register(FamilyTree, func(r io.Reader) (service.Artifact, error) {
		var m TreeModel
		if err := gob.NewDecoder(r).Decode(&m); err != nil {
			return nil, err
		}
		if err := m.check(); err != nil {
			return nil, err
		}
		return &m, nil
	})
	Register(FamilyForest, func(r io.Reader) (service.Artifact, error) {
		var m ForestModel
		if err := gob.NewDecoder(r).Decode(&m); err != nil {
			return nil, err
		}
		if len(m.Trees) == 0 {
			return nil, fmt.Errorf("forest has no trees")
		}
		for i := range m.Trees {
			if err := m.Trees[i].check(); err != nil {
				return nil, fmt.Errorf("tree %d: %w", i, err)
			}
		}
		return &m, nil
	})
}

// TreeModel is a regression tree in flattened node-array form. Node i splits
// on Feature[i] at Threshold[i]; Left/Right hold child indices, -1 marks a
// leaf whose prediction is Value[i].
type TreeModel struct {
	NFeatures int
	Feature   []int
	Threshold []float64
	Left      []int
	Right     []int
	Value     []float64
}

func (m *TreeModel) check() error {
	n := len(m.Feature)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(m.Threshold) != n || len(m.Left) != n || len(m.Right) != n || len(m.Value) != n {
		return fmt.Errorf("tree node arrays have mismatched lengths")
	}
	return nil
}

func (m *TreeModel) Family() string   { return FamilyTree }
func (m *TreeModel) NumFeatures() int { return m.NFeatures }

func (m *TreeModel) Predict(x []float64) (float64, error) {
	if m.NFeatures > 0 && len(x) != m.NFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", m.NFeatures, len(x))
	}
	node := 0
	// A well-formed tree terminates in at most one visit per node; the bound
	// protects against cyclic child links in a corrupt artifact.
	for steps := 0; steps <= len(m.Feature); steps++ {
		if node < 0 || node >= len(m.Feature) {
			return 0, fmt.Errorf("node index %d out of range", node)
		}
		if m.Left[node] < 0 {
			return m.Value[node], nil
		}
		f := m.Feature[node]
		if f < 0 || f >= len(x) {
			return 0, fmt.Errorf("split feature %d out of range", f)
		}
		if x[f] <= m.Threshold[node] {
			node = m.Left[node]
		} else {
			node = m.Right[node]
		}
	}
	return 0, fmt.Errorf("tree traversal did not terminate")
}

// ForestModel averages the votes of its member trees.
type ForestModel struct {
	Trees []TreeModel
}

func (m *ForestModel) Family() string { return FamilyForest }

func (m *ForestModel) NumFeatures() int {
	if len(m.Trees) == 0 {
		return 0
	}
	return m.Trees[0].NFeatures
}

func (m *ForestModel) Predict(x []float64) (float64, error) {
	var sum float64
	for i := range m.Trees {
		y, err := m.Trees[i].Predict(x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += y
	}
	return sum / float64(len(m.Trees)), nil
}

var (
	_ service.Artifact = (*TreeModel)(nil)
	_ service.Artifact = (*ForestModel)(nil)
)
