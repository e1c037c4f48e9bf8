package api_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mindburn-Labs/mintgov/pkg/api"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

func TestWriteError_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	api.WriteError(w, http.StatusBadRequest, "Bad Request", "field is missing")

	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected Content-Type 'application/problem+json', got %q", ct)
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	var problem api.ProblemDetail
	if err := json.NewDecoder(w.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if problem.Status != 400 {
		t.Errorf("expected problem.status=400, got %d", problem.Status)
	}
	if problem.Title != "Bad Request" {
		t.Errorf("expected title 'Bad Request', got %q", problem.Title)
	}
	if problem.Detail != "field is missing" {
		t.Errorf("expected detail 'field is missing', got %q", problem.Detail)
	}
}

func TestWriteInternal_SanitizesError(t *testing.T) {
	w := httptest.NewRecorder()
	api.WriteInternal(w, errors.New("sqlite: database is locked at /var/lib/mintgov/state.db"))

	var problem api.ProblemDetail
	if err := json.NewDecoder(w.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// Must NOT contain internal error details
	if problem.Detail == "sqlite: database is locked at /var/lib/mintgov/state.db" {
		t.Error("internal error details leaked to client")
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestWriteTooManyRequests_RetryAfterHeader(t *testing.T) {
	w := httptest.NewRecorder()
	api.WriteTooManyRequests(w, 30)

	if ra := w.Header().Get("Retry-After"); ra != "30" {
		t.Errorf("expected Retry-After '30', got %q", ra)
	}
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", w.Code)
	}
}

func TestWriteUnauthorized_DefaultDetail(t *testing.T) {
	w := httptest.NewRecorder()
	api.WriteUnauthorized(w, "")

	var problem api.ProblemDetail
	if err := json.NewDecoder(w.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if problem.Detail != "Authentication required" {
		t.Errorf("expected default detail, got %q", problem.Detail)
	}
}

func TestWriteErrorR_EnrichesWithRequestContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/actions", nil)
	w := httptest.NewRecorder()
	w.Header().Set("X-Request-ID", "req-123")

	api.WriteErrorR(w, req, http.StatusBadRequest, "Bad Request", "bad input")

	var problem api.ProblemDetail
	if err := json.NewDecoder(w.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if problem.Instance != "/v1/actions" {
		t.Fatalf("expected instance %q, got %q", "/v1/actions", problem.Instance)
	}
	if problem.TraceID != "req-123" {
		t.Fatalf("expected trace_id %q, got %q", "req-123", problem.TraceID)
	}
}

func TestWriteGovernanceError_MapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{contracts.ErrNotAuthorized, http.StatusForbidden, "NotAuthorized"},
		{contracts.ErrActionInFlight, http.StatusConflict, "ActionInFlight"},
		{contracts.ErrNoActionPending, http.StatusNotFound, "NoActionPending"},
		{fmt.Errorf("%w: operation 3", contracts.ErrMintMismatch), http.StatusUnprocessableEntity, "MintMismatch"},
		{contracts.ErrMintsPaused, http.StatusLocked, "MintsPaused"},
		{contracts.ErrMintInvalidated, http.StatusGone, "MintInvalidated"},
		{fmt.Errorf("%w: pauseToken: %w", contracts.ErrExecutionFailed, errors.New("boom")), http.StatusBadGateway, "ExecutionFailed"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/actions", nil)
			w := httptest.NewRecorder()
			api.WriteGovernanceError(w, req, tc.err)

			if w.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, w.Code)
			}
			var problem api.ProblemDetail
			if err := json.NewDecoder(w.Body).Decode(&problem); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if problem.Kind != tc.kind {
				t.Errorf("expected kind %q, got %q", tc.kind, problem.Kind)
			}
			if problem.Instance != "/v1/actions" {
				t.Errorf("expected instance /v1/actions, got %q", problem.Instance)
			}
		})
	}
}

func TestWriteGovernanceError_UnknownIsInternal(t *testing.T) {
	req := httptest.NewRequest("GET", "/v1/mint", nil)
	w := httptest.NewRecorder()
	api.WriteGovernanceError(w, req, errors.New("disk full"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}
