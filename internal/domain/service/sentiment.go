package service

import (
	"context"

	"opinionpointer/internal/domain/models"
)

// SentimentProvider is the external market-sentiment service.
type SentimentProvider interface {
	Fetch(ctx context.Context) (*models.MarketSentimentData, error)
	Health(ctx context.Context) (*models.ProviderHealth, error)
}

// SentimentStream is an optional live update feed from the provider.
type SentimentStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.MarketSentimentData, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// ChannelFetcher pulls the current payload of a tracked channel.
type ChannelFetcher interface {
	FetchChannel(ctx context.Context, ch models.Channel) (items int, err error)
}
