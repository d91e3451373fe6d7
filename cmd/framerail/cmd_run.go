package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ib-77/framerail/internal/logging"
	"github.com/ib-77/framerail/pkg/buffer"
	"github.com/ib-77/framerail/pkg/config"
	"github.com/ib-77/framerail/pkg/nodes"
	"github.com/ib-77/framerail/pkg/rail"
)

var runFlags struct {
	params      []string
	queueDepth  int
	noDrain     bool
	metricsAddr string
}

var runCmd = &cobra.Command{
	Use:   "run <pipeline>",
	Short: "Run a pipeline file until its source ends or SIGINT",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	bindRunFlags(runCmd.Flags())
}

func bindRunFlags(f *pflag.FlagSet) {
	f.StringArrayVarP(&runFlags.params, "param", "p", nil, "override a parameter: <node|index>.<key>=<value> (repeatable)")
	f.IntVar(&runFlags.queueDepth, "queue-depth", 0, "frames buffered between stages (0 keeps the pipeline file's value)")
	f.BoolVar(&runFlags.noDrain, "no-drain", false, "discard queued frames on shutdown instead of finishing them")
	f.StringVar(&runFlags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logging.New("run")

	p, err := config.Load(args[0])
	if err != nil {
		return err
	}
	for _, override := range runFlags.params {
		ref, key, value, err := splitOverride(override)
		if err != nil {
			return err
		}
		if err := p.Set(ref, key, value); err != nil {
			return err
		}
	}

	chain, err := p.Build(nodes.NewContext())
	if err != nil {
		return err
	}

	opts := append(p.Options(), rail.WithLogger(logging.New("rail")))
	if runFlags.queueDepth > 0 {
		opts = append(opts, rail.WithQueueDepth(runFlags.queueDepth))
	}
	if runFlags.noDrain {
		opts = append(opts, rail.WithDrain(false))
	}
	if runFlags.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, rail.WithRegisterer(reg))
		srv := serveMetrics(runFlags.metricsAddr, reg, log)
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	began := time.Now()
	pipe, err := start(context.WithoutCancel(ctx), chain, opts...)
	if err != nil {
		return err
	}
	log.Info("pipeline started", "name", p.Name, "run", pipe.RunID(), "nodes", len(chain))

	for {
		if _, err := pipe.Admit(ctx, buffer.Empty()); err != nil {
			break
		}
	}
	pipe.Stop()
	err = pipe.Wait()

	printStats(cmd.OutOrStdout(), pipe.Stats(), time.Since(began))
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		log.Info("interrupted, queued frames drained")
	}
	return nil
}

// start launches chain. Nodes are closed when the engine refuses it, since
// only a started pipeline closes them.
func start(ctx context.Context, chain []rail.Node, opts ...rail.Option) (*rail.Pipeline, error) {
	pipe, err := rail.Start(ctx, chain, opts...)
	if err != nil {
		return nil, errors.Join(err, config.CloseNodes(chain))
	}
	return pipe, nil
}

// splitOverride parses "<node>.<key>=<value>".
func splitOverride(s string) (ref, key, value string, err error) {
	lhs, value, ok := strings.Cut(s, "=")
	if ok {
		ref, key, ok = strings.Cut(lhs, ".")
	}
	if !ok || ref == "" || key == "" {
		return "", "", "", fmt.Errorf("invalid --param %q: want <node>.<key>=<value>", s)
	}
	return ref, key, value, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}

func printStats(out io.Writer, st rail.Stats, elapsed time.Duration) {
	fps := 0.0
	if elapsed > 0 {
		fps = float64(st.Admitted) / elapsed.Seconds()
	}
	fmt.Fprintf(out, "run %s: %s frames admitted in %s (%s fps)\n",
		st.RunID, humanize.Comma(int64(st.Admitted)), elapsed.Round(time.Millisecond), humanize.FormatFloat("#,###.#", fps))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  #\tnode\tlines\tprocessed\trecoverable\tterminated\tdiscarded")
	for _, s := range st.Stages {
		fmt.Fprintf(w, "  %d\t%s\t%d\t%s\t%s\t%s\t%s\n", s.Index, s.Name, s.Lines,
			humanize.Comma(int64(s.Processed)), humanize.Comma(int64(s.Recoverable)),
			humanize.Comma(int64(s.Terminated)), humanize.Comma(int64(s.Discarded)))
	}
	w.Flush()
}
