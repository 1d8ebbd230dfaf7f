package executor

import (
	"context"
	"encoding/json"
)

// Target identifies the profile section a save applies to.
type Target struct {
	ProfileID string
	Section   string
	// Token is forwarded to upstream APIs as a bearer credential when set.
	Token string
}

// SaveExecutor persists one section value. Implementations return an error on
// failure, are safe to call repeatedly and own their timeout policy.
type SaveExecutor interface {
	Save(ctx context.Context, target Target, payload json.RawMessage) error
}
