// Command graphbuild converts an OpenStreetMap extract into a road graph
// snapshot loadable by the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/bikenavi/bikenavi/internal/geo"
	"github.com/bikenavi/bikenavi/internal/graph"
	"github.com/bikenavi/bikenavi/internal/graph/osmimport"
	"github.com/bikenavi/bikenavi/internal/weight"
)

func main() {
	in := flag.String("in", "", "OSM extract (.osm or .osm.pbf)")
	out := flag.String("out", "graph.json.zst", "snapshot path; a .zst suffix enables compression")
	clip := flag.Bool("clip", true, "drop nodes outside the Kyoto service area")
	quiet := flag.Bool("quiet", false, "disable the progress bar")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *in, *out, *clip, *quiet, logger); err != nil {
		logger.Fatal().Err(err).Msg("graph build failed")
	}
}

func run(ctx context.Context, in, out string, clip, quiet bool, logger zerolog.Logger) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := osmimport.Options{}
	if clip {
		opts.Area = &geo.KyotoServiceArea
	}
	if !quiet {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("scanning osm objects"),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100_000_000),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		opts.Progress = func() { _ = bar.Add(1) }
	}

	snap, stats, err := osmimport.Import(ctx, f, osmimport.FormatFromPath(in), opts)
	if err != nil {
		return err
	}
	if stats.Nodes == 0 {
		return fmt.Errorf("%s: %w", in, graph.ErrEmptyGraph)
	}

	// Build once to validate the snapshot the server will load.
	if _, err := snap.Build(weight.Default()); err != nil {
		return fmt.Errorf("validate snapshot: %w", err)
	}

	if err := graph.Save(out, snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	logger.Info().
		Str("out", out).
		Int("scanned_nodes", stats.ScannedNodes).
		Int("scanned_ways", stats.ScannedWays).
		Int("kept_ways", stats.KeptWays).
		Int("nodes", stats.Nodes).
		Int("edges", stats.Edges).
		Int("safe_edges", stats.SafeEdges).
		Msg("graph snapshot written")
	return nil
}
