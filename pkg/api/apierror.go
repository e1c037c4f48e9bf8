// Package api serves the governance engine and the mint pipeline over HTTP.
// Every error response is an RFC 7807 problem detail.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Kind is the governance failure kind, e.g. "ActionInFlight".
	Kind    string `json:"kind,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

func problemType(status int) string {
	return fmt.Sprintf("https://mintgov.dev/errors/%d", status)
}

func write(w http.ResponseWriter, p *ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	write(w, &ProblemDetail{
		Type:   problemType(status),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// WriteErrorR writes a problem enriched with the request path and the
// X-Request-ID already set on the response.
func WriteErrorR(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	write(w, &ProblemDetail{
		Type:     problemType(status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
		TraceID:  w.Header().Get("X-Request-ID"),
	})
}

func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail)
}

func WriteUnauthorized(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "Authentication required"
	}
	WriteError(w, http.StatusUnauthorized, "Unauthorized", detail)
}

func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, "Not Found", detail)
}

// WriteTooManyRequests writes a 429 error response with Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded. Retry after the specified interval.")
}

// WriteInternal writes a 500 error response. err is logged, never sent.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred. Please try again later.")
}

var statusByKind = map[string]int{
	"NotAuthorized":           http.StatusForbidden,
	"NotAMember":              http.StatusForbidden,
	"ActionInFlight":          http.StatusConflict,
	"AlreadySigned":           http.StatusConflict,
	"AlreadyVetoed":           http.StatusConflict,
	"ReinitializationAttempt": http.StatusConflict,
	"Reentrant":               http.StatusConflict,
	"NoActionPending":         http.StatusNotFound,
	"MintNotFound":            http.StatusNotFound,
	"MintMismatch":            http.StatusUnprocessableEntity,
	"PoolExhausted":           http.StatusUnprocessableEntity,
	"ThresholdExceeded":       http.StatusUnprocessableEntity,
	"ApprovalsPending":        http.StatusUnprocessableEntity,
	"MintPaused":              http.StatusLocked,
	"MintsPaused":             http.StatusLocked,
	"MintInvalidated":         http.StatusGone,
	"InvalidAmount":           http.StatusBadRequest,
	"InvalidThresholds":       http.StatusBadRequest,
	"InvalidAddress":          http.StatusBadRequest,
	"InvalidArgument":         http.StatusBadRequest,
	"NotInitialized":          http.StatusServiceUnavailable,
	"ExecutionFailed":         http.StatusBadGateway,
}

// WriteGovernanceError maps a governance failure to its status code. Errors
// outside the taxonomy are internal.
func WriteGovernanceError(w http.ResponseWriter, r *http.Request, err error) {
	var problem *ProblemDetail
	if errors.As(err, &problem) {
		write(w, problem)
		return
	}
	kind := contracts.Kind(err)
	status, ok := statusByKind[kind]
	if !ok {
		WriteInternal(w, err)
		return
	}
	write(w, &ProblemDetail{
		Type:     problemType(status),
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   err.Error(),
		Instance: r.URL.Path,
		Kind:     kind,
		TraceID:  w.Header().Get("X-Request-ID"),
	})
}
