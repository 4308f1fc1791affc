package connectors

import (
	"context"

	"github.com/rs/zerolog"

	"woboard/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *MailStoreService
	log       zerolog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
	New     int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, log zerolog.Logger) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewMailStoreService(db, rawMailDir),
		log:       log.With().Str("component", "mail").Logger(),
	}
}

func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		row, isNew, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}
		res.Stored++
		if isNew {
			res.New++
			s.log.Debug().Int("document_id", row.ID).Str("provider", row.Provider).Str("subject", row.Subject).Msg("stored message")
		}
	}
	return res, nil
}
