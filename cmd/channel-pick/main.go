// Command channel-pick: batch pipeline turning M3U manifests into a
// deduplicated, liveness-verified channel table.
//
//	parse    Fetch configured manifests, parse, merge into the entry store file
//	check    Probe every stored entry, keep the reachable ones
//	arrange  Group reachable entries by name, pick best endpoint per group
//	recheck  Re-probe grouped channels, promote/demote/remove, checkpointed
//	sync     Upsert a final grouped mapping into SQLite
//	run      Whole pipeline end to end (parse → check → arrange → recheck → sync)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/channelpick/channel-pick/internal/config"
	"github.com/channelpick/channel-pick/internal/group"
	"github.com/channelpick/channel-pick/internal/httpclient"
	"github.com/channelpick/channel-pick/internal/manifest"
	"github.com/channelpick/channel-pick/internal/metrics"
	"github.com/channelpick/channel-pick/internal/probe"
	"github.com/channelpick/channel-pick/internal/repair"
	"github.com/channelpick/channel-pick/internal/sink"
	"github.com/channelpick/channel-pick/internal/store"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Printf("env file: %v", err)
	}
	cfg := config.Load()

	flag.Usage = usage
	flag.Parse()
	cmd := flag.Arg(0)
	if cmd == "" {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "parse":
		err = runParse(ctx, cfg)
	case "check":
		err = runCheck(ctx, cfg)
	case "arrange":
		err = runArrange(cfg)
	case "recheck":
		err = runRecheck(ctx, cfg)
	case "sync":
		err = runSync(ctx, cfg)
	case "run":
		err = runAll(ctx, cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: channel-pick <parse|check|arrange|recheck|sync|run>\n")
	fmt.Fprintf(os.Stderr, "configuration via CHANNELPICK_* env vars or .env\n")
}

// ingest fetches and parses every configured manifest into st. A manifest
// with a bad header (or a failed fetch) is logged and skipped; the run
// continues with the others.
func ingest(ctx context.Context, cfg *config.Config, st *store.Store) error {
	if len(cfg.ManifestURLs) == 0 {
		return errors.New("no manifests configured (CHANNELPICK_MANIFEST_URLS)")
	}
	client := httpclient.WithTimeout(cfg.FetchTimeout)
	ok := 0
	for _, u := range cfg.ManifestURLs {
		entries, err := manifest.Fetch(ctx, u, client)
		if err != nil {
			if errors.Is(err, manifest.ErrFormat) {
				log.Printf("parse: skipping %s: %v", u, err)
				continue
			}
			log.Printf("parse: fetch %s failed: %v", u, err)
			continue
		}
		st.Merge(u, entries)
		ok++
		log.Printf("parse: %s: %d entries", u, len(entries))
	}
	if ok == 0 {
		return errors.New("no manifest parsed successfully")
	}
	return nil
}

func runParse(ctx context.Context, cfg *config.Config) error {
	st := store.New()
	if err := ingest(ctx, cfg, st); err != nil {
		return err
	}
	if err := st.Save(cfg.StorePath); err != nil {
		return err
	}
	log.Printf("parse: %d entries saved to %s", st.Len(), cfg.StorePath)
	return nil
}

func newProber(cfg *config.Config) probe.Prober {
	limiter := httpclient.NewHostLimiter(cfg.HostConcurrency, cfg.HostRate)
	return probe.NewHTTPProber(cfg.ProbeTimeout, limiter)
}

func runCheck(ctx context.Context, cfg *config.Config) error {
	st := store.New()
	if err := st.Load(cfg.StorePath); err != nil {
		return err
	}
	entries := st.All()
	passed := probe.FilterReachable(ctx, entries, newProber(cfg), cfg.ProbeConcurrency)
	log.Printf("check: %d/%d reachable", len(passed), len(entries))
	bySource := make(map[string][]manifest.Entry)
	for _, e := range passed {
		bySource[e.SourceManifest] = append(bySource[e.SourceManifest], e)
	}
	out := store.New()
	for src, es := range bySource {
		out.Merge(src, es)
	}
	return out.Save(cfg.PlayablePath)
}

func runArrange(cfg *config.Config) error {
	st := store.New()
	if err := st.Load(cfg.PlayablePath); err != nil {
		return err
	}
	groups := group.Build(st.All())
	log.Printf("arrange: %d entries merged into %d groups", st.Len(), len(groups))
	return sink.SaveGrouped(cfg.ArrangePath, groups)
}

func runRecheck(ctx context.Context, cfg *config.Config) error {
	groups, err := sink.LoadGrouped(cfg.ArrangePath)
	if err != nil {
		return err
	}
	checkpoint := sink.WithRetry(sink.NewJSONFile(cfg.CheckpointPath), cfg.SinkAttempts, cfg.SinkBackoff)
	repaired, err := repair.Run(ctx, groups, newProber(cfg), checkpoint, repair.Options{
		Concurrency: cfg.ProbeConcurrency,
		BatchSize:   cfg.BatchSize,
		Deadline:    cfg.RunDeadline,
	})
	if err != nil {
		return err
	}
	log.Printf("recheck: %d/%d groups verified live, saved to %s", len(repaired), len(groups), cfg.CheckpointPath)
	return nil
}

func runSync(ctx context.Context, cfg *config.Config) error {
	groups, err := sink.LoadGrouped(cfg.CheckpointPath)
	if err != nil {
		return err
	}
	db, err := sink.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return upsertAll(ctx, cfg, sink.WithRetry(db, cfg.SinkAttempts, cfg.SinkBackoff), groups)
}

// upsertAll writes groups to s in sorted-name batches of cfg.BatchSize.
func upsertAll(ctx context.Context, cfg *config.Config, s sink.Sink, groups map[string]group.Group) error {
	names := group.Names(groups)
	var batch []group.Group
	for _, name := range names {
		batch = append(batch, groups[name])
		if len(batch) >= cfg.BatchSize {
			if err := s.WriteBatch(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.WriteBatch(ctx, batch); err != nil {
			return err
		}
	}
	log.Printf("sync: %d channels upserted", len(groups))
	return nil
}

// runAll executes the whole pipeline in memory, persisting each stage's
// output so an interrupted run can resume from the last completed stage.
func runAll(ctx context.Context, cfg *config.Config) error {
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			log.Printf("metrics on %s/metrics", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	st := store.New()
	if err := ingest(ctx, cfg, st); err != nil {
		return err
	}
	if err := st.Save(cfg.StorePath); err != nil {
		return err
	}

	prober := newProber(cfg)
	entries := st.All()
	passed := probe.FilterReachable(ctx, entries, prober, cfg.ProbeConcurrency)
	log.Printf("run: %d/%d entries reachable", len(passed), len(entries))

	groups := group.Build(passed)
	log.Printf("run: %d groups", len(groups))
	if err := sink.SaveGrouped(cfg.ArrangePath, groups); err != nil {
		return err
	}

	checkpoint := sink.WithRetry(sink.NewJSONFile(cfg.CheckpointPath), cfg.SinkAttempts, cfg.SinkBackoff)
	repaired, err := repair.Run(ctx, groups, prober, checkpoint, repair.Options{
		Concurrency: cfg.ProbeConcurrency,
		BatchSize:   cfg.BatchSize,
		Deadline:    cfg.RunDeadline,
	})
	if err != nil {
		return err
	}
	log.Printf("run: %d groups verified live", len(repaired))

	db, err := sink.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return upsertAll(ctx, cfg, sink.WithRetry(db, cfg.SinkAttempts, cfg.SinkBackoff), repaired)
}
