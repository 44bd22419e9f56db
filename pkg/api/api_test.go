// pkg/api/api_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/valpere/UIVerifier/pkg/types"
)

func sampleResult() *types.RunResult {
	now := time.Now()
	return &types.RunResult{
		ID:        types.NewRunID(),
		Scenario:  "room-creation-verification",
		TargetURL: "http://localhost:5173",
		Status:    types.RunPassed,
		Steps: []types.StepResult{
			{Index: 0, Name: "navigate_1", Type: types.StepNavigate, Status: types.StepPassed, StartedAt: now},
			{Index: 1, Name: "click_text_2", Type: types.StepClickText, Status: types.StepPassed, StartedAt: now},
		},
		StartedAt:  now,
		FinishedAt: now.Add(2 * time.Second),
		Duration:   2 * time.Second,
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		endpoint    string
		expectError bool
	}{
		{"valid https", "https://collector.example.com/api/v1/results", false},
		{"valid http", "http://localhost:8080/results", false},
		{"empty endpoint", "", true},
		{"missing scheme", "collector.example.com/results", true},
		{"ftp scheme", "ftp://collector.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.endpoint)
			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSubmitResult(t *testing.T) {
	var received ResultEnvelope
	var gotAuth, gotCustom string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		gotAuth = r.Header.Get("Authorization")
		gotCustom = r.Header.Get("X-Team")

		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode envelope: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SubmitResponse{Accepted: true, ID: "col-123"})
	}))
	defer server.Close()

	client, err := NewClient(server.URL,
		WithAuthToken("secret-token"),
		WithHeader("X-Team", "frontend"),
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp, err := client.SubmitResult(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("SubmitResult failed: %v", err)
	}

	if !resp.Accepted {
		t.Error("expected submission to be accepted")
	}
	if resp.ID != "col-123" {
		t.Errorf("expected collector id 'col-123', got %q", resp.ID)
	}

	if received.Tool != "uiverifier" {
		t.Errorf("expected tool 'uiverifier', got %q", received.Tool)
	}
	if received.Run == nil || received.Run.Scenario != "room-creation-verification" {
		t.Errorf("unexpected run payload: %+v", received.Run)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if gotCustom != "frontend" {
		t.Errorf("expected custom header to be sent, got %q", gotCustom)
	}
}

func TestSubmitResultEmptyResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	resp, err := client.SubmitResult(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("SubmitResult failed: %v", err)
	}
	if !resp.Accepted {
		t.Error("empty 2xx response should count as accepted")
	}
}

func TestSubmitResultRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "schema mismatch", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.SubmitResult(context.Background(), sampleResult())
	if err == nil {
		t.Fatal("expected error for rejected submission")
	}

	reqErr, ok := err.(*RequestError)
	if !ok {
		t.Fatalf("expected *RequestError, got %T: %v", err, err)
	}
	if reqErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", reqErr.StatusCode)
	}
	if reqErr.IsRetryable() {
		t.Error("422 should not be retryable")
	}
}

func TestRequestErrorRetryable(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		err := &RequestError{StatusCode: tt.status, Status: http.StatusText(tt.status)}
		if err.IsRetryable() != tt.retryable {
			t.Errorf("status %d: expected retryable=%v", tt.status, tt.retryable)
		}
	}
}

func TestSubmitResultNil(t *testing.T) {
	client, err := NewClient("http://localhost:1/results")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.SubmitResult(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil result")
	}
}

func TestSubmitResultContextCancelled(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.SubmitResult(ctx, sampleResult()); err == nil {
		t.Fatal("expected error when context deadline passes")
	}
}
