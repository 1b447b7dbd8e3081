package cmd

import (
	"fmt"

	"github.com/mselser95/parlay-relay/pkg/config"
	"github.com/mselser95/parlay-relay/pkg/relayclient"
	"go.uber.org/zap"
)

// newRelayClient builds and connects a relay client from environment
// configuration. Shared by the taker/maker commands.
func newRelayClient(cfg *config.Config, logger *zap.Logger) (*relayclient.Client, error) {
	client := relayclient.New(relayclient.Config{
		URL:                   cfg.RelayWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		AckTimeout:            cfg.RelayAckTimeout,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		UpdateBufferSize:      cfg.WSMessageBufferSize,
		Logger:                logger,
	})

	err := client.Start()
	if err != nil {
		return nil, fmt.Errorf("connect to relay: %w", err)
	}

	return client, nil
}

func loadClientDeps() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}
