// Package ports declares the interfaces through which the cases module
// consumes other modules and external collaborators.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// NotifyParams describes a notification to deliver to an agent.
type NotifyParams struct {
	AgentID  uuid.UUID
	Title    string
	Body     string
	URL      string
	Channels []string
}

// Notifier delivers notifications to agents. Implementations must be safe
// for concurrent use; callers treat failures as best-effort side effects.
type Notifier interface {
	Notify(ctx context.Context, p NotifyParams) error
}
