package api

// HealthResponse represents the liveness check response
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}
