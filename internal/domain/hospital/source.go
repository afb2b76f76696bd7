package hospital

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Source supplies the operational tables the analytics engine reads. Both
// implementations return the same shapes so analyses never branch on origin.
type Source interface {
	Rooms(ctx context.Context) ([]Room, error)
	Occupancy(ctx context.Context, daysBack int) ([]Occupancy, error)
	Users(ctx context.Context) ([]Staff, error)
	Tools(ctx context.Context) ([]Tool, error)
	Inventory(ctx context.Context) ([]InventoryItem, error)

	// Name identifies the source in logs and result metadata.
	Name() string
}

// SelectSourceConfig carries the startup selection inputs.
type SelectSourceConfig struct {
	Mode          string // "auto", "live", or "synthetic"
	Pool          *pgxpool.Pool
	SyntheticSeed int64
}

// SelectSource picks the data source exactly once at startup. "live" requires
// a reachable database; "auto" probes it and falls back to the synthetic
// source; "synthetic" never touches the database. The decision is logged
// either way so operators can tell which data the dashboard is serving.
func SelectSource(ctx context.Context, cfg SelectSourceConfig, logger zerolog.Logger) (Source, error) {
	switch cfg.Mode {
	case "synthetic":
		logger.Info().Str("source", "synthetic").Msg("data source selected by configuration")
		return NewSyntheticSource(cfg.SyntheticSeed), nil

	case "live":
		if cfg.Pool == nil {
			return nil, fmt.Errorf("live data source requires a database pool")
		}
		if err := cfg.Pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("live data source unreachable: %w", err)
		}
		logger.Info().Str("source", "live").Msg("data source selected by configuration")
		return NewLiveSource(cfg.Pool), nil

	case "auto":
		if cfg.Pool != nil {
			if err := cfg.Pool.Ping(ctx); err == nil {
				logger.Info().Str("source", "live").Msg("database reachable, using live data")
				return NewLiveSource(cfg.Pool), nil
			} else {
				logger.Warn().Err(err).Str("source", "synthetic").Msg("database unreachable, falling back to synthetic data")
			}
		} else {
			logger.Warn().Str("source", "synthetic").Msg("no database configured, using synthetic data")
		}
		return NewSyntheticSource(cfg.SyntheticSeed), nil

	default:
		return nil, fmt.Errorf("unknown data source mode %q", cfg.Mode)
	}
}
