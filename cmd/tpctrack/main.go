// Command tpctrack reconstructs the tracks of one event from a cluster file
// and prints a summary. Results can optionally be recorded in a SQLite
// track store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"

	"github.com/banshee-data/tpctrack/internal/config"
	"github.com/banshee-data/tpctrack/internal/tpc"
	"github.com/banshee-data/tpctrack/internal/tpc/debug"
	"github.com/banshee-data/tpctrack/internal/tpc/l1clusters"
	"github.com/banshee-data/tpctrack/internal/tpc/l6session"
	"github.com/banshee-data/tpctrack/internal/tpc/storage/sqlite"
	"github.com/banshee-data/tpctrack/internal/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// options are the parsed command-line flags.
type options struct {
	clusters  string
	config    string
	event     string
	workers   int
	db        string
	debugOut  string
	maxTracks int
}

func main() {
	var opts options
	flag.StringVar(&opts.clusters, "clusters", "", "Cluster JSON file to reconstruct ('-' reads stdin)")
	flag.StringVar(&opts.config, "config", "", "Tuning config (.json, .yaml or .yml); built-in defaults when empty")
	flag.StringVar(&opts.event, "event", "", "Event identifier (defaults to the cluster file name)")
	flag.IntVar(&opts.workers, "workers", 0, "Override the worker count (0 keeps the config value)")
	flag.StringVar(&opts.db, "db", "", "SQLite track store to record the event in")
	flag.StringVar(&opts.debugOut, "debug-out", "", "Write association debug records as JSON to this file")
	flag.IntVar(&opts.maxTracks, "show", 20, "Number of tracks listed in the summary")
	verbose := flag.Bool("v", false, "Enable diagnostic logging")
	trace := flag.Bool("trace", false, "Enable per-track trace logging (implies -v)")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tpctrack %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if opts.clusters == "" {
		log.Fatal("-clusters is required")
	}

	w := tpc.LogWriters{Ops: os.Stderr}
	if *verbose || *trace {
		w.Diag = os.Stderr
	}
	if *trace {
		w.Trace = os.Stderr
	}
	tpc.SetLogWriters(w)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("tpctrack: %v", err)
	}
}

// run reconstructs the event described by opts and writes the summary to
// out.
func run(ctx context.Context, opts options, stdin io.Reader, out io.Writer) error {
	tuning := config.EmptyTuningConfig()
	if opts.config != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(opts.config); err != nil {
			return err
		}
	}

	event := opts.event
	if event == "" {
		event = eventName(opts.clusters)
	}
	s := l6session.NewFromTuning(tuning, event)
	if opts.workers > 0 {
		s.Config.Workers = opts.workers
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}

	clusters, err := readClusters(opts.clusters, stdin)
	if err != nil {
		return err
	}
	var collector *debug.DebugCollector
	if opts.debugOut != "" {
		collector = debug.NewDebugCollector()
		collector.SetEnabled(true)
		collector.BeginEvent(event)
		s.Debug = collector
	}

	res, err := s.Run(ctx, l1clusters.SliceSupply(clusters))
	if err != nil {
		return err
	}
	if err := printSummary(out, s, res, opts.maxTracks); err != nil {
		return err
	}

	if collector != nil {
		if err := writeDebug(opts.debugOut, collector.Emit()); err != nil {
			return err
		}
	}
	if opts.db != "" {
		store, err := sqlite.Open(opts.db)
		if err != nil {
			return fmt.Errorf("failed to open track store: %w", err)
		}
		defer store.Close()
		if err := store.SaveEvent(ctx, event, res); err != nil {
			return fmt.Errorf("failed to record event: %w", err)
		}
	}
	return nil
}

func readClusters(path string, stdin io.Reader) ([]l1clusters.Cluster, error) {
	if path == "-" {
		return l1clusters.ReadJSON(stdin)
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open cluster file: %w", err)
	}
	defer f.Close()
	return l1clusters.ReadJSON(f)
}

func eventName(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printSummary(out io.Writer, s *l6session.Session, res *l6session.Result, maxTracks int) error {
	m := res.Metrics
	fmt.Fprintf(out, "event %s: %s clusters (%s skipped), %s seeds, %s tracks accepted in %v\n",
		s.EventID,
		humanize.Comma(int64(m.Clusters)),
		humanize.Comma(int64(res.Ingest.Skipped)),
		humanize.Comma(int64(m.Seeds)),
		humanize.Comma(int64(m.Accepted)),
		res.Elapsed.Round(time.Microsecond),
	)
	fmt.Fprintf(out, "claimed %s of %s clusters; dropped %d seeds, rejected %d (geometry) + %d (clusters), %d early stops, %d fakes\n",
		humanize.Comma(int64(m.ClaimedClusters)), humanize.Comma(int64(m.Clusters)),
		m.SeedsDropped, m.RejectedGeometry, m.RejectedInsufficient, m.EarlyStops, m.Fakes)
	fmt.Fprintf(out, "fingerprint %016x\n", l6session.Fingerprint(res.Tracks))

	if maxTracks <= 0 || len(res.Tracks) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tCLUSTERS\tCHI2/NDF\tPT (GeV/c)\tTGL\tDE/DX")
	ph := s.Config.Physics()
	for i, t := range res.Tracks {
		if i == maxTracks {
			fmt.Fprintf(tw, "... %d more\n", len(res.Tracks)-maxTracks)
			break
		}
		ndf := 2*t.NClusters - 5
		chi2 := 0.0
		if ndf > 0 {
			chi2 = t.RefitChi2 / float64(ndf)
		}
		label := fmt.Sprint(t.Label)
		if t.Fake {
			label += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%.2f\t%s\t%.3f\t%.1f\n",
			t.ID, label, t.NClusters, t.RowsTraversed, chi2,
			humanize.FtoaWithDigits(t.Pt(ph), 3), t.Outer.Tgl(), t.DEdx)
	}
	return tw.Flush()
}

func writeDebug(path string, ev *debug.DebugEvent) error {
	if ev == nil {
		return errors.New("debug collector produced no event")
	}
	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode debug records: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
