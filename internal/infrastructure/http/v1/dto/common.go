// Package dto defines request and response shapes for the v1 API.
package dto

// IDResponse is a response containing just an ID.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a generic success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}
