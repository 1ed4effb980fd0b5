package models

// Requests and responses for the REST layer. Defined in domain for
// consistency and reuse.

// PredictRequest carries an optional model tag plus the flat feature map.
// Feature values stay untyped here: the pipeline decides numeric-ness per
// declared name and reports every offender at once.
type PredictRequest struct {
	Model    string                 `json:"model"`
	Features map[string]interface{} `json:"features" validate:"required,min=1"`
}

// ModelInfoResponse is the detail view for one loaded model.
type ModelInfoResponse struct {
	ModelTag string         `json:"model_tag"`
	Metadata *ModelMetadata `json:"model_info"`
}

// ModelListResponse wraps the /models listing.
type ModelListResponse struct {
	Models []ModelSummary `json:"models"`
}

// ReloadResponse reports the outcome of a registry rebuild.
type ReloadResponse struct {
	Models int `json:"models"`
}

// HealthResponse reports service liveness and the loaded model count.
type HealthResponse struct {
	Status string `json:"status"`
	Models int    `json:"models"`
}
