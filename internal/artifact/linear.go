package artifact

import (
	"encoding/gob"
	"fmt"
	"io"

	"LinkSight/internal/domain/service"
)

const FamilyLinear = "LinearRegression"

func init() {
	Register(FamilyLinear, func(r io.Reader) (service.Artifact, error) {
		var m LinearModel
		if err := gob.NewDecoder(r).Decode(&m); err != nil {
			return nil, err
		}
		if len(m.Coefficients) == 0 {
			return nil, fmt.Errorf("linear model has no coefficients")
		}
		return &m, nil
	})
}

// LinearModel is an ordinary least squares regressor: y = x·coef + intercept.
type LinearModel struct {
	Coefficients []float64
	Intercept    float64
}

func (m *LinearModel) Family() string   { return FamilyLinear }
func (m *LinearModel) NumFeatures() int { return len(m.Coefficients) }

func (m *LinearModel) Predict(x []float64) (float64, error) {
	if len(x) != len(m.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(x))
	}
	y := m.Intercept
	for i, c := range m.Coefficients {
		y += c * x[i]
	}
	return y, nil
}

var _ service.Artifact = (*LinearModel)(nil)
