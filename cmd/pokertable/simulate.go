package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/pokertable/cmd/pokertable/shared"
	"github.com/lox/pokertable/internal/ai"
	"github.com/lox/pokertable/internal/game"
	"github.com/lox/pokertable/internal/history"
	"github.com/lox/pokertable/internal/simulator"
)

// SimulateCmd plays computer-only tables in parallel.
type SimulateCmd struct {
	Tables        int      `default:"10" help:"Number of tables"`
	Hands         int      `default:"100" help:"Most hands per table"`
	Seats         int      `default:"6" help:"Seats per table"`
	Personalities []string `default:"tight,loose,aggressive,calling-station,random" sep:"," help:"Personalities dealt to seats in rotation"`
	Seed          int64    `help:"Deterministic RNG seed (0 uses the clock)"`

	SmallBlind      int     `default:"5" help:"Small blind"`
	BigBlind        int     `default:"10" help:"Big blind"`
	StartingStack   int     `default:"1000" help:"Starting stack"`
	HandsPerLevel   int     `default:"10" help:"Hands between blind increases, 0 disables"`
	BlindMultiplier float64 `default:"1.5" help:"Blind multiplier per level"`

	Trials       int  `default:"50" help:"Monte Carlo trials per strength estimate"`
	Concurrency  int  `help:"Tables played at once (default GOMAXPROCS)"`
	NoInvariants bool `help:"Skip invariant checks"`

	HistoryDir string `type:"path" help:"Write a TOML file per hand to this directory"`
	DB         string `name:"db" help:"Store hands in this database (sqlite file or mysql DSN)"`
	DBDriver   string `name:"db-driver" default:"sqlite" enum:"sqlite,mysql" help:"Database driver"`

	Debug bool `help:"Enable debug logging"`
	JSON  bool `help:"Log JSON instead of console output"`
}

const maxHistoryBuffer = 1 << 16

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	badStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))
)

func (c *SimulateCmd) Run() error {
	logger, err := shared.SetupLogger(shared.LevelFor(c.Debug, "warn"), c.JSON)
	if err != nil {
		return err
	}

	personalities := make([]ai.Personality, 0, len(c.Personalities))
	for _, name := range c.Personalities {
		p, err := ai.ParsePersonality(name)
		if err != nil {
			return err
		}
		personalities = append(personalities, p)
	}

	cfg := simulator.Config{
		Tables:        c.Tables,
		Hands:         c.Hands,
		Seats:         c.Seats,
		Personalities: personalities,
		Seed:          c.Seed,
		Trials:        c.Trials,
		Concurrency:   c.Concurrency,
		Logger:        logger,
		Game: game.Config{
			SmallBlind:          c.SmallBlind,
			BigBlind:            c.BigBlind,
			StartingStack:       c.StartingStack,
			HandsPerLevel:       c.HandsPerLevel,
			BlindMultiplier:     c.BlindMultiplier,
			SkipInvariantChecks: c.NoInvariants,
		},
	}

	sinks, err := history.OpenSinks(c.HistoryDir, c.DBDriver, c.DB)
	if err != nil {
		return err
	}
	var rec *history.AsyncRecorder
	if len(sinks) > 0 {
		// Size the queue for the whole run, up to a limit; drops are reported below.
		rec = history.NewAsyncRecorder(logger, sinks, history.WithBuffer(min(c.Tables*c.Hands, maxHistoryBuffer)))
		cfg.Recorder = rec
	}

	sim, err := simulator.New(cfg)
	if err != nil {
		if rec != nil {
			_ = rec.Close()
		}
		return err
	}

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	report, err := sim.Run(ctx)
	if rec != nil {
		if cerr := rec.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("Failed to close hand history")
		}
	}
	if err != nil {
		return err
	}

	printReport(os.Stdout, report)
	if rec != nil {
		stats := rec.Stats()
		fmt.Printf("%s %d written, %d dropped, %d failed\n",
			labelStyle.Render("history"), stats.Written, stats.Dropped, stats.Failed)
	}

	if report.Broken > 0 || !report.Conserved {
		return fmt.Errorf("%d of %d tables broken, chips conserved: %t", report.Broken, len(report.Tables), report.Conserved)
	}
	return nil
}

func printReport(out io.Writer, r *simulator.Report) {
	fmt.Fprintln(out, titleStyle.Render("simulation"))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%d\n", labelStyle.Render("seed"), r.Seed)
	fmt.Fprintf(w, "%s\t%d (%d finished)\n", labelStyle.Render("tables"), len(r.Tables), r.Finished)
	fmt.Fprintf(w, "%s\t%d\n", labelStyle.Render("hands"), r.Hands)
	fmt.Fprintf(w, "%s\t%d\n", labelStyle.Render("showdowns"), r.Showdowns)
	fmt.Fprintf(w, "%s\t%d\n", labelStyle.Render("eliminations"), r.Eliminations)
	fmt.Fprintf(w, "%s\t%s\n", labelStyle.Render("broken"), status(r.Broken == 0, fmt.Sprint(r.Broken)))
	fmt.Fprintf(w, "%s\t%s\n", labelStyle.Render("conserved"), status(r.Conserved, fmt.Sprint(r.Conserved)))
	fmt.Fprintf(w, "%s\t%s\n", labelStyle.Render("duration"), r.Duration.Round(time.Millisecond))
	_ = w.Flush()

	if len(r.Personalities) == 0 {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render("personalities (bb/hand)"))
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		labelStyle.Render("personality"),
		labelStyle.Render("hands"),
		labelStyle.Render("mean"),
		labelStyle.Render("95% ci"),
		labelStyle.Render("showdown wins"))

	names := make([]ai.Personality, 0, len(r.Personalities))
	for p := range r.Personalities {
		names = append(names, p)
	}
	slices.Sort(names)
	for _, p := range names {
		st := r.Personalities[p]
		low, high := st.ConfidenceInterval95()
		fmt.Fprintf(w, "%s\t%d\t%+.3f\t[%+.3f, %+.3f]\t%d\n",
			p, st.Hands, st.Mean(), low, high, st.ShowdownWins)
	}
	_ = w.Flush()

	for _, tr := range r.Tables {
		if tr.Err != nil {
			fmt.Fprintf(out, "%s %s (seed %d): %v\n", badStyle.Render("broken"), tr.ID, tr.Seed, tr.Err)
		}
	}
}

func status(ok bool, text string) string {
	if ok {
		return goodStyle.Render(text)
	}
	return badStyle.Render(text)
}
