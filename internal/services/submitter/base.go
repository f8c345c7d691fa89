package submitter

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "AleoRisk/pkg/http"
)

// BridgeClient posts JSON to a prover bridge under a fixed base URL.
type BridgeClient struct {
	baseURL string
	client  *xhttp.Client
}

// NewBridgeClient builds a bridge client with timeout and retry budget.
func NewBridgeClient(baseURL string, timeout time.Duration, retries int) *BridgeClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithRetry(retries, 200*time.Millisecond),
			xhttp.WithHeader("Accept", "application/json"),
		),
	}
}

// PostJSON posts payload to path under the base URL and decodes the JSON reply into dest.
func (b *BridgeClient) PostJSON(ctx context.Context, path string, payload, dest interface{}) error {
	if b == nil || b.client == nil || b.baseURL == "" {
		return fmt.Errorf("bridge client not initialized")
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     b.baseURL + path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
