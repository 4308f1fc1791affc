package connectors

import (
	"context"
	"fmt"

	"woboard/internal"
	"woboard/internal/config"
	"woboard/internal/connectors/gmail"
	"woboard/internal/connectors/imap"
)

type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}

// NewMailConnector builds the connector for a provider name.
func NewMailConnector(ctx context.Context, cfg config.Config, provider string) (MailConnector, error) {
	switch provider {
	case "gmail":
		return gmail.NewConnector(ctx, cfg)
	case "imap":
		return imap.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
