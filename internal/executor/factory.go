package executor

import (
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_autosave/internal/cache"
)

const (
	ExecutorTypeStore = "store"
	ExecutorTypeHTTP  = "http"
)

// RemoteOptions configures the HTTP executor.
type RemoteOptions struct {
	BaseURL string
	Timeout time.Duration
}

// NewExecutorFromConfig creates a SaveExecutor based on the executor type.
// "store" (default) writes into the profile cache; "http" forwards to an upstream API.
func NewExecutorFromConfig(executorType string, store cache.SectionStore, remote RemoteOptions) (SaveExecutor, error) {
	switch executorType {
	case ExecutorTypeStore, "":
		if store == nil {
			return nil, errors.New("store executor requires a cache store")
		}
		return NewStoreExecutor(store), nil
	case ExecutorTypeHTTP:
		return NewHTTPExecutor(remote.BaseURL, remote.Timeout)
	default:
		return nil, fmt.Errorf("unknown executor type: %s (supported: %s, %s)", executorType, ExecutorTypeStore, ExecutorTypeHTTP)
	}
}
