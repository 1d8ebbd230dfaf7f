package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bassista/go_autosave/internal/logger"
)

// ErrRemoteStatus is returned when the upstream API answers with a non-2xx status.
var ErrRemoteStatus = errors.New("remote save rejected")

const defaultRemoteTimeout = 10 * time.Second

// HTTPExecutor saves sections through an upstream profile API:
// PUT {base}/profiles/{id}/sections/{section}.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

func NewHTTPExecutor(baseURL string, timeout time.Duration) (*HTTPExecutor, error) {
	if baseURL == "" {
		return nil, errors.New("http executor requires a base url")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote base url: %q", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (e *HTTPExecutor) Save(ctx context.Context, target Target, payload json.RawMessage) error {
	endpoint := fmt.Sprintf("%s/profiles/%s/sections/%s", e.baseURL, url.PathEscape(target.ProfileID), url.PathEscape(target.Section))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if target.Token != "" {
		req.Header.Set("Authorization", "Bearer "+target.Token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote save: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s", ErrRemoteStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.WithComponent("executor").Debugf("remote saved %s section of profile %s", target.Section, target.ProfileID)
	return nil
}
