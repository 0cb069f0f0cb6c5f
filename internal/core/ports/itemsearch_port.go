package ports

import (
	"context"

	"github.com/vibin/jx3-item-bot/internal/core/domain"
)

// ItemSearchPort defines the interface for the remote item wiki search
type ItemSearchPort interface {
	// SearchItems looks up items matching keyword. Failures are reported
	// through the outcome kind, never as a Go error.
	SearchItems(ctx context.Context, keyword string) domain.SearchOutcome
}

// MessageHandler is what chat transports hand inbound messages to
type MessageHandler interface {
	// HandleMessage returns the reply for msg and whether one should be sent
	HandleMessage(ctx context.Context, msg domain.IncomingMessage) (domain.Reply, bool)
}
