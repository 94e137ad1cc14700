package main

import (
	"github.com/lox/pokertable/cmd/pokertable/shared"
	"github.com/lox/pokertable/internal/config"
	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/history"
	"github.com/lox/pokertable/internal/registry"
	"github.com/lox/pokertable/internal/server"
)

// ServeCmd runs the tables from an HCL config file.
type ServeCmd struct {
	Config string `short:"c" type:"path" default:"pokertable.hcl" help:"HCL config file; defaults are used when it does not exist"`
	Addr   string `help:"Override the listen address from the config"`
	Debug  bool   `help:"Enable debug logging"`
	JSON   bool   `help:"Log JSON instead of console output"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}

	logger, err := shared.SetupLogger(shared.LevelFor(c.Debug, cfg.Server.LogLevel), c.JSON)
	if err != nil {
		return err
	}

	addr := cfg.Server.Address
	if c.Addr != "" {
		addr = c.Addr
	}

	opts := []game.Option{game.WithLogger(logger)}
	if h := cfg.History; h != nil {
		sinks, err := history.OpenSinks(h.Dir, h.Driver, h.DSN)
		if err != nil {
			return err
		}
		if len(sinks) > 0 {
			rec := history.NewAsyncRecorder(logger, sinks, history.WithBuffer(h.Buffer))
			defer func() {
				if err := rec.Close(); err != nil {
					logger.Error().Err(err).Msg("Failed to close hand history")
				}
				stats := rec.Stats()
				logger.Info().
					Int64("written", stats.Written).
					Int64("dropped", stats.Dropped).
					Int64("failed", stats.Failed).
					Msg("Hand history closed")
			}()
			opts = append(opts, game.WithRecorder(rec))
		}
	}

	reg := registry.New(logger)
	entries, err := server.CreateTables(reg, cfg.Tables, opts...)
	if err != nil {
		return err
	}
	for _, e := range entries {
		small, big := e.Table.Blinds()
		logger.Info().
			Str("table_id", e.ID).
			Str("label", e.Label).
			Int("seats", e.Table.NumSeats()).
			Int("small_blind", small).
			Int("big_blind", big).
			Msg("Table created")
	}

	srv, err := server.New(reg,
		server.WithLogger(logger),
		server.WithTimeouts(cfg.Server.Timeout, cfg.Server.Delay),
	)
	if err != nil {
		return err
	}

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	logger.Info().
		Str("address", addr).
		Str("config", c.Config).
		Dur("turn_timeout", cfg.Server.Timeout).
		Int("tables", len(entries)).
		Msg("Starting pokertable server")
	return srv.ListenAndServe(ctx, addr)
}
