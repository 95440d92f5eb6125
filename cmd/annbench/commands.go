package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/annidx"
)

// ErrRecallBelowThreshold is returned by recall when an index misses --min-recall.
var ErrRecallBelowThreshold = errors.New("recall below threshold")

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "annbench",
		Short: "Approximate nearest neighbor index benchmark",
		Long: `annbench indexes seeded random vectors with HNSW and IVF.

Settings come from ANNBENCH_* environment variables (optionally loaded from a
.env file) and can be overridden with flags, for example:

  ANNBENCH_VECTORS=5000 annbench recall --k 20 --ef-search 128`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default is .env if present)")

	f := rootCmd.PersistentFlags()
	f.String("index", "", "index to run: hnsw, ivf or both")
	f.Int("vectors", 0, "number of base vectors")
	f.Int("queries", 0, "number of queries")
	f.Int("dim", 0, "vector dimension")
	f.Int("k", 0, "neighbors per query")
	f.Int("m", 0, "HNSW neighbors per node")
	f.Int("ef-construction", 0, "HNSW insertion search breadth")
	f.Int("ef-search", 0, "HNSW query search breadth, 0 uses k")
	f.Int("nlist", 0, "IVF number of clusters")
	f.Int("nprobe", 0, "IVF clusters scanned per query")
	f.Int64("seed", 0, "random seed")
	f.Int("workers", 0, "parallel workers")
	f.String("log-level", "", "log level: debug, info, warn or error")
	f.String("log-format", "", "log format: json or text")

	load := func(cmd *cobra.Command) (Config, error) {
		cfg, err := LoadConfig(envFile)
		if err != nil {
			return Config{}, err
		}
		if err := applyFlags(cmd, &cfg); err != nil {
			return Config{}, err
		}
		if err := ValidateConfig(&cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newDemoCmd(load), newRecallCmd(load))

	return rootCmd
}

// applyFlags copies every flag set on the command line into cfg.
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()

	ints := map[string]*int{
		"vectors":         &cfg.Vectors,
		"queries":         &cfg.Queries,
		"dim":             &cfg.Dimension,
		"k":               &cfg.K,
		"m":               &cfg.M,
		"ef-construction": &cfg.EFConstruction,
		"ef-search":       &cfg.EFSearch,
		"nlist":           &cfg.NList,
		"nprobe":          &cfg.NProbe,
		"workers":         &cfg.Workers,
	}
	for name, dst := range ints {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	strs := map[string]*string{
		"index":      &cfg.Index,
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Changed("seed") {
		v, err := flags.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = v
	}

	if flags.Lookup("min-recall") != nil && flags.Changed("min-recall") {
		v, err := flags.GetFloat64("min-recall")
		if err != nil {
			return err
		}
		cfg.MinRecall = v
	}

	return nil
}

func newDemoCmd(load func(*cobra.Command) (Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Index random vectors and print the neighbors of one query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			data := NewDataset(&cfg)
			query := data.Queries[0]
			runner := NewRunner(cfg, data, cfg.NewLogger(), nil)
			out := cmd.OutOrStdout()

			h, _, err := runner.BuildHNSW(ctx)
			if err != nil {
				return err
			}

			res, err := h.SearchWithEF(ctx, query, cfg.K, cfg.EFSearch)
			if err != nil {
				return err
			}

			printNeighbors(cmd, "HNSW Results:", res)

			i, _, err := runner.BuildIVF(ctx)
			if err != nil {
				return err
			}

			res, err = i.Search(ctx, query, cfg.K)
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			printNeighbors(cmd, "IVF Results:", res)

			return nil
		},
	}
}

func printNeighbors(cmd *cobra.Command, title string, res []annidx.SearchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, title)
	for _, r := range res {
		fmt.Fprintf(out, "  Index: %d, Distance: %f\n", r.ID, r.Distance)
	}
}

func newRecallCmd(load func(*cobra.Command) (Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Measure mean recall@k against exact search",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := cfg.NewLogger()

			basic := map[string]*annidx.BasicMetricsCollector{
				"hnsw": {},
				"ivf":  {},
			}
			metrics := map[string]annidx.MetricsCollector{
				"hnsw": basic["hnsw"],
				"ivf":  basic["ivf"],
			}

			if cfg.MetricsAddr != "" {
				reg := prometheus.NewRegistry()
				for kind := range metrics {
					pc, err := annidx.NewPrometheusCollector(reg, kind)
					if err != nil {
						return err
					}
					metrics[kind] = annidx.MultiMetricsCollector{basic[kind], pc}
				}

				srv := &http.Server{
					Addr:    cfg.MetricsAddr,
					Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				}
				go func() {
					logger.Info("starting metrics server", "address", cfg.MetricsAddr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server failed", "error", err)
					}
				}()
				defer srv.Close()
			}

			results, err := NewRunner(cfg, NewDataset(&cfg), logger, metrics).Recall(ctx)
			if err != nil {
				return err
			}

			PrintResults(cmd.OutOrStdout(), results, cfg.Queries, cfg.K)

			for _, r := range results {
				stats := basic[r.Index].GetStats()
				logger.Debug("operation counts",
					"index", r.Index,
					"inserts", stats.InsertCount,
					"searches", stats.SearchCount,
					"avg_search_ns", stats.SearchAvgNanos,
				)

				if r.Recall < cfg.MinRecall {
					return fmt.Errorf("%w: %s recall %.4f < %.4f", ErrRecallBelowThreshold, r.Index, r.Recall, cfg.MinRecall)
				}
			}

			return nil
		},
	}

	cmd.Flags().Float64("min-recall", 0, "fail if any index scores below this recall")

	return cmd
}
