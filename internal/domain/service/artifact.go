package service

// Artifact is a loaded, immutable regression model. Implementations live in
// internal/artifact, one per supported weights format; the registry and the
// pipeline only ever see this interface.
type Artifact interface {
	// Family returns the model class name, e.g. "RandomForestRegressor".
	Family() string

	// NumFeatures returns the input vector width the model was trained on,
	// or 0 when the format cannot recover it.
	NumFeatures() int

	// Predict runs inference on one ordered feature vector. It must be pure
	// and safe for concurrent use.
	Predict(x []float64) (float64, error)
}
