package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/traceflow/callgraph/cliconfig"
	"github.com/traceflow/callgraph/gwlog"
	"github.com/traceflow/callgraph/graphsink"
	"github.com/traceflow/callgraph/intern"
	"github.com/traceflow/callgraph/logsrc"
	"github.com/traceflow/callgraph/metrics"
	"github.com/traceflow/callgraph/pathgraph"
	"github.com/traceflow/callgraph/scan"
	"github.com/traceflow/callgraph/schema"
	"github.com/traceflow/callgraph/session"
	"github.com/traceflow/callgraph/truncate"
)

// version is stamped at build time via -ldflags, matching the teacher's
// own build-info convention; "dev" is the unstamped default.
var version = "dev"

func newRootCmd() *cobra.Command {
	var (
		indexFlag    string
		sessionFlag  string
		truncateFlag string
		formatFlag   string
		outputFlag   string
		concurrency  int
		metricsAddr  string
		logLevelFlag string
	)

	cmd := &cobra.Command{
		Use:          "callgraph <access-log-path>",
		Short:        "Build a weighted request call graph from an HTTP access log",
		Version:      version,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cliconfig.Options{
				LogPath:          args[0],
				Concurrency:      concurrency,
				TruncatePatterns: truncateFlag,
				Format:           formatFlag,
				Output:           outputFlag,
				MetricsAddr:      metricsAddr,
				LogLevel:         logLevelFlag,
			}

			overrides, err := schema.ParseIndexOverrides(indexFlag)
			if err != nil {
				return err
			}
			opts.IndexOverrides = overrides

			sessionFields, err := schema.ParseSessionFields(sessionFlag)
			if err != nil {
				return err
			}
			opts.SessionFields = sessionFields

			if err := cliconfig.ApplyEnvOverlay(&opts); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}

			return runScan(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "C", 0, "worker thread count, 1..4096 (default: logical CPU count)")
	cmd.Flags().StringVarP(&indexFlag, "index", "i", "", "column index overrides, kind=col,kind=col,...")
	cmd.Flags().StringVarP(&sessionFlag, "session", "S", "", "session key fields, comma list among ipaddr,useragent (default ipaddr,useragent)")
	cmd.Flags().StringVarP(&truncateFlag, "truncate-patterns", "T", "", "truncation pattern file path")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "output format (default dot)")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "-", "output destination path, - for stdout")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "optional host:port to expose Prometheus metrics on")
	cmd.Flags().StringVar(&logLevelFlag, "log-level", "", "diagnostic log level: OFF,DEBUG,INFO,WARN,ERROR,FATAL")
	cmd.Flags().BoolP("version", "V", false, "print the version and exit")

	return cmd
}

func runScan(ctx context.Context, opts cliconfig.Options) error {
	log := gwlog.NewStderr()
	defer log.Close()
	lvl, err := gwlog.LevelFromString(opts.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	var rec *metrics.Recorder
	if opts.MetricsAddr != "" {
		rec = metrics.New()
		go func() {
			if err := rec.ListenAndServe(opts.MetricsAddr); err != nil {
				log.Warnf("metrics server stopped: %v", err)
			}
		}()
	}

	src, err := logsrc.Open(opts.LogPath)
	if err != nil {
		return fmt.Errorf("%s: %w", gwlog.CallLoc(1), err)
	}
	defer src.Close()

	line0, ok := firstLine(src.Bytes)
	if !ok {
		log.Infof("%s is empty, emitting empty graph", opts.LogPath)
		return writeGraph(pathgraph.Build(session.New()), intern.New().Table(), opts)
	}

	plan, warnings, err := schema.Infer(line0, schema.Options{
		IndexOverrides: opts.IndexOverrides,
		SessionFields:  opts.SessionFields,
	})
	if err != nil {
		return fmt.Errorf("callgraph: schema inference failed: %w", err)
	}
	for _, w := range warnings {
		log.Warnf("%s", w.Message)
	}

	var tbl *truncate.Table
	if opts.TruncatePatterns != "" {
		f, err := os.Open(opts.TruncatePatterns)
		if err != nil {
			return fmt.Errorf("callgraph: opening truncate patterns: %w", err)
		}
		tbl, err = truncate.Load(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("callgraph: loading truncate patterns: %w", err)
		}
	}

	nthreads := scan.Resolve(len(src.Bytes), opts.Concurrency)
	result, err := scan.Run(ctx, src.Bytes, plan, tbl, nthreads, log, rec)
	if err != nil {
		return fmt.Errorf("callgraph: scan failed: %w", err)
	}

	return writeGraph(pathgraph.Build(result.Sessions), result.Interner.Table(), opts)
}

// writeGraph renders graph and its request table through the configured
// sink, to stdout or a file depending on opts.Output.
func writeGraph(graph *pathgraph.Graph, requests []intern.RequestRecord, opts cliconfig.Options) error {
	sink, err := graphsink.Lookup(opts.Format)
	if err != nil {
		return err
	}

	if opts.Output == "-" {
		return sink.Write(os.Stdout, graph, requests)
	}
	return graphsink.WriteToFile(opts.Output, sink, graph, requests)
}

// firstLine extracts line 0 from buf without pulling in the tokenize
// package's field-splitting, since schema.Infer only needs the raw line.
func firstLine(buf []byte) (line []byte, ok bool) {
	for i, c := range buf {
		if c == '\n' {
			return buf[:i], true
		}
	}
	return buf, len(buf) > 0
}
