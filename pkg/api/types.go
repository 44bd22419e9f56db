// pkg/api/types.go
package api

import (
	"fmt"
	"time"

	"github.com/valpere/UIVerifier/pkg/types"
)

// ResultEnvelope is the wire format posted to result collectors. The run
// payload is wrapped so collectors can identify the producing tool without
// inspecting the result itself.
type ResultEnvelope struct {
	Tool        string           `json:"tool"`
	Version     string           `json:"version"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Run         *types.RunResult `json:"run"`
}

// SubmitResponse is the collector's acknowledgement of a submitted run.
// Collectors that reply with an empty body are treated as accepting.
type SubmitResponse struct {
	Accepted bool   `json:"accepted"`
	ID       string `json:"id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// RequestError describes a submission the collector rejected or that
// failed at the HTTP layer with a response.
type RequestError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("collector returned %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("collector returned %s", e.Status)
}

// IsRetryable reports whether resubmitting the same payload could succeed
func (e *RequestError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
