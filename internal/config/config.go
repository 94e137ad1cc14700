// Package config loads the HCL configuration for the table server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/pokertable/internal/ai"
	"github.com/lox/pokertable/internal/game"
)

// Config is the complete configuration file.
type Config struct {
	Server  *Server  `hcl:"server,block"`
	History *History `hcl:"history,block"`
	Tables  []Table  `hcl:"table,block"`
}

// Server configures the HTTP listener.
type Server struct {
	Address     string `hcl:"address,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	TurnTimeout string `hcl:"turn_timeout,optional"`
	AIDelay     string `hcl:"ai_delay,optional"`

	// Parsed from TurnTimeout and AIDelay by Validate.
	Timeout time.Duration
	Delay   time.Duration
}

// History configures where completed hands are written. Either or both of
// Dir and DSN may be set.
type History struct {
	Dir    string `hcl:"dir,optional"`
	Driver string `hcl:"driver,optional"`
	DSN    string `hcl:"dsn,optional"`
	Buffer int    `hcl:"buffer,optional"`
}

// Table describes one table to create at startup.
type Table struct {
	Name                string           `hcl:"name,label"`
	SmallBlind          int              `hcl:"small_blind"`
	BigBlind            int              `hcl:"big_blind"`
	StartingStack       int              `hcl:"starting_stack,optional"`
	ButtonSeat          int              `hcl:"button_seat,optional"`
	Seed                int64            `hcl:"seed,optional"`
	Trials              int              `hcl:"trials,optional"`
	SkipInvariantChecks bool             `hcl:"skip_invariant_checks,optional"`
	Escalation          *BlindEscalation `hcl:"blind_escalation,block"`
	Seats               []Seat           `hcl:"seat,block"`
}

// BlindEscalation multiplies the blinds every HandsPerLevel hands.
type BlindEscalation struct {
	HandsPerLevel int     `hcl:"hands_per_level"`
	Multiplier    float64 `hcl:"multiplier,optional"`
}

// Seat is a player at a configured table.
type Seat struct {
	Name        string `hcl:"name,label"`
	Kind        string `hcl:"kind,optional"`
	Personality string `hcl:"personality,optional"`
	Stack       int    `hcl:"stack,optional"`
}

const (
	DefaultAddress     = ":8080"
	DefaultLogLevel    = "info"
	DefaultTurnTimeout = "30s"
	DefaultPersonality = ai.Tight
)

// Default returns the configuration used when no file exists: one table with
// a human seat and three computer opponents.
func Default() *Config {
	cfg := &Config{
		Tables: []Table{{
			Name:       "main",
			SmallBlind: 5,
			BigBlind:   10,
			Seats: []Seat{
				{Name: "player", Kind: "human"},
				{Name: "tight", Personality: string(ai.Tight)},
				{Name: "loose", Personality: string(ai.Loose)},
				{Name: "station", Personality: string(ai.CallingStation)},
			},
			Escalation: &BlindEscalation{HandsPerLevel: 10, Multiplier: 1.5},
		}},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads an HCL file. A missing file yields Default().
func Load(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(src, filename)
}

// Parse decodes HCL source, applies defaults and validates the result.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &Server{}
	}
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = DefaultLogLevel
	}
	if c.Server.TurnTimeout == "" {
		c.Server.TurnTimeout = DefaultTurnTimeout
	}
	c.Server.Timeout, _ = time.ParseDuration(c.Server.TurnTimeout)
	if c.Server.AIDelay != "" {
		c.Server.Delay, _ = time.ParseDuration(c.Server.AIDelay)
	}

	if c.History != nil {
		if c.History.DSN != "" && c.History.Driver == "" {
			c.History.Driver = "sqlite"
		}
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.StartingStack == 0 {
			t.StartingStack = t.BigBlind * 100
		}
		if t.Escalation != nil && t.Escalation.Multiplier == 0 {
			t.Escalation.Multiplier = 1.5
		}
		for j := range t.Seats {
			s := &t.Seats[j]
			if s.Kind == "" {
				s.Kind = game.AI.String()
			}
			if s.Kind == game.AI.String() && s.Personality == "" {
				s.Personality = string(DefaultPersonality)
			}
		}
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Server != nil {
		if _, err := time.ParseDuration(c.Server.TurnTimeout); err != nil {
			errs = append(errs, fmt.Errorf("server: turn_timeout: %w", err))
		} else if c.Server.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("server: turn_timeout must be positive"))
		}
		if c.Server.AIDelay != "" {
			if _, err := time.ParseDuration(c.Server.AIDelay); err != nil {
				errs = append(errs, fmt.Errorf("server: ai_delay: %w", err))
			}
		}
	}

	if h := c.History; h != nil {
		switch strings.ToLower(h.Driver) {
		case "", "sqlite", "sqlite3", "mysql":
		default:
			errs = append(errs, fmt.Errorf("history: unsupported driver %q", h.Driver))
		}
		if h.Buffer < 0 {
			errs = append(errs, fmt.Errorf("history: buffer cannot be negative"))
		}
	}

	if len(c.Tables) == 0 {
		errs = append(errs, errors.New("at least one table block is required"))
	}
	names := make(map[string]bool)
	for _, t := range c.Tables {
		if names[t.Name] {
			errs = append(errs, fmt.Errorf("table %q defined twice", t.Name))
		}
		names[t.Name] = true
		if err := t.validate(); err != nil {
			errs = append(errs, fmt.Errorf("table %q: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (t Table) validate() error {
	var errs []error
	if err := t.GameConfig().Validate(len(t.Seats)); err != nil {
		errs = append(errs, err)
	}
	if t.Trials < 0 {
		errs = append(errs, fmt.Errorf("trials cannot be negative"))
	}

	seen := make(map[string]bool)
	for _, s := range t.Seats {
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("seat %q defined twice", s.Name))
		}
		seen[s.Name] = true

		var kind game.Kind
		if err := kind.UnmarshalText([]byte(s.Kind)); err != nil {
			errs = append(errs, fmt.Errorf("seat %q: %w", s.Name, err))
			continue
		}
		if kind == game.AI {
			if _, err := ai.ParsePersonality(s.Personality); err != nil {
				errs = append(errs, fmt.Errorf("seat %q: %w", s.Name, err))
			}
		}
		if s.Stack < 0 {
			errs = append(errs, fmt.Errorf("seat %q: stack cannot be negative", s.Name))
		}
	}
	return errors.Join(errs...)
}

// GameConfig converts the table block to engine rules.
func (t Table) GameConfig() game.Config {
	cfg := game.Config{
		SmallBlind:          t.SmallBlind,
		BigBlind:            t.BigBlind,
		StartingStack:       t.StartingStack,
		ButtonSeat:          t.ButtonSeat,
		SkipInvariantChecks: t.SkipInvariantChecks,
	}
	if t.Escalation != nil {
		cfg.HandsPerLevel = t.Escalation.HandsPerLevel
		cfg.BlindMultiplier = t.Escalation.Multiplier
	}
	return cfg
}

// GameSeats converts the seat blocks. Providers are left for the caller to
// attach.
func (t Table) GameSeats() []game.Seat {
	seats := make([]game.Seat, len(t.Seats))
	for i, s := range t.Seats {
		var kind game.Kind
		_ = kind.UnmarshalText([]byte(s.Kind))
		seats[i] = game.Seat{
			Name:        s.Name,
			Kind:        kind,
			Personality: s.Personality,
			Stack:       s.Stack,
		}
		if kind == game.Human {
			seats[i].Personality = ""
		}
	}
	return seats
}

// Table returns the table block with the given name.
func (c *Config) Table(name string) (Table, bool) {
	for _, t := range c.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
