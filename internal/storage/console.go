package storage

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by logging accepted bids. Default when
// no database is configured.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreBid logs an accepted bid.
func (c *ConsoleStorage) StoreBid(ctx context.Context, rec *AcceptedBid) error {
	c.logger.Info("bid-accepted",
		zap.String("auction-id", rec.Bid.AuctionID),
		zap.String("maker", rec.Bid.Maker),
		zap.String("maker-wager", rec.Bid.MakerWager),
		zap.Int64("maker-deadline", rec.Bid.MakerDeadline),
		zap.Time("accepted-at", rec.AcceptedAt))
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
