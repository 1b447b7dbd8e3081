package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreBid inserts one accepted bid into the audit table.
func (p *PostgresStorage) StoreBid(ctx context.Context, rec *AcceptedBid) error {
	query := `
		INSERT INTO accepted_bids (
			auction_id, maker, maker_wager, maker_deadline,
			maker_signature, maker_nonce, accepted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.Bid.AuctionID,
		rec.Bid.Maker,
		rec.Bid.MakerWager,
		rec.Bid.MakerDeadline,
		rec.Bid.MakerSignature,
		rec.Bid.MakerNonce,
		rec.AcceptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert accepted bid: %w", err)
	}

	p.logger.Debug("accepted-bid-stored",
		zap.String("auction-id", rec.Bid.AuctionID),
		zap.String("maker", rec.Bid.Maker))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
