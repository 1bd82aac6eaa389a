package jellyfin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
)

const maxErrorBodyBytes = 4096

// httpRequest sends a HTTP request according to provided method and url,
// decoding the JSON response into V
func httpRequest[V any](ctx context.Context, client *http.Client, method string, url string, headers map[string]string) (*V, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("http status %d for url %s: %s", resp.StatusCode, req.URL.Redacted(), body)
	}

	t, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parse content-type: %w", err)
	}
	if t != "application/json" {
		return nil, fmt.Errorf("unexpected content-type: %s", t)
	}

	var parsed V
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return &parsed, nil
}
