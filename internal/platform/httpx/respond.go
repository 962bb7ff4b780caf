// Package httpx provides the uniform JSON envelope used by every API endpoint.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Pagination describes the page window returned alongside list payloads.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Envelope is the response shape shared by all endpoints:
// {success, data?, message?, pagination?}.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// OK sends a successful envelope with the given payload.
func OK(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// OKMessage sends a successful envelope carrying only a message.
func OKMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: true, Message: message})
}

// OKPage sends a successful envelope with pagination metadata.
func OKPage(w http.ResponseWriter, data any, p Pagination) {
	write(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &p})
}

// Fail sends a failure envelope with a human-readable message.
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Success: false, Message: message})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
