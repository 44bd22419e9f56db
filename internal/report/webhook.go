// internal/report/webhook.go
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/UIVerifier/internal/utils"
	"github.com/valpere/UIVerifier/pkg/api"
	"github.com/valpere/UIVerifier/pkg/types"
)

// WebhookWriter submits run results to an HTTP collector endpoint.
type WebhookWriter struct {
	client *api.Client
}

// NewWebhookWriter creates a webhook report writer
func NewWebhookWriter(url string, headers map[string]string, authToken string, timeout time.Duration) (*WebhookWriter, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if !utils.IsValidURL(url) {
		return nil, fmt.Errorf("webhook URL %q is not an absolute URL", url)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []api.Option{
		api.WithTimeout(timeout),
	}
	if len(headers) > 0 {
		opts = append(opts, api.WithHeaders(headers))
	}
	if authToken != "" {
		opts = append(opts, api.WithAuthToken(authToken))
	}

	client, err := api.NewClient(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook client: %w", err)
	}

	return &WebhookWriter{client: client}, nil
}

// Write submits one run result to the collector
func (w *WebhookWriter) Write(ctx context.Context, result *types.RunResult) error {
	resp, err := w.client.SubmitResult(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to submit result: %w", err)
	}
	if !resp.Accepted {
		return fmt.Errorf("collector rejected result: %s", resp.Message)
	}
	return nil
}

// Close is a no-op; the webhook writer holds no persistent connection
func (w *WebhookWriter) Close() error {
	return nil
}
