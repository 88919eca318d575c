package usecase

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Subscriber is a streaming price source that can add symbols on the fly.
type Subscriber interface {
	Subscribe(symbols []string) error
}

// FeedSync keeps a Subscriber subscribed to every symbol with an active order.
type FeedSync struct {
	feed       Subscriber
	coord      *TradeCoordinator
	logger     *zap.Logger
	subscribed map[string]bool
}

func NewFeedSync(feed Subscriber, coord *TradeCoordinator, logger *zap.Logger) *FeedSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedSync{
		feed:       feed,
		coord:      coord,
		logger:     logger,
		subscribed: make(map[string]bool),
	}
}

// Sync subscribes to active symbols not yet subscribed. It returns the
// newly subscribed symbols in sorted order. Not safe for concurrent use.
func (s *FeedSync) Sync() ([]string, error) {
	var toSubscribe []string
	for symbol := range s.coord.ListActive() {
		if !s.subscribed[symbol] {
			toSubscribe = append(toSubscribe, symbol)
		}
	}
	if len(toSubscribe) == 0 {
		return nil, nil
	}
	sort.Strings(toSubscribe)

	s.logger.Info("Subscribing to new symbols", zap.Strings("symbols", toSubscribe))
	if err := s.feed.Subscribe(toSubscribe); err != nil {
		return nil, err
	}
	for _, symbol := range toSubscribe {
		s.subscribed[symbol] = true
	}
	return toSubscribe, nil
}

// Run calls Sync every interval until ctx is done.
func (s *FeedSync) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sync(); err != nil {
			s.logger.Error("Failed to subscribe", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
