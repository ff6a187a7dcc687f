package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/qaindex/internal/app"
	"github.com/kailas-cloud/qaindex/internal/cli"
	"github.com/kailas-cloud/qaindex/internal/config"
	"github.com/kailas-cloud/qaindex/internal/domain"
	logpkg "github.com/kailas-cloud/qaindex/internal/logger"
	"github.com/kailas-cloud/qaindex/internal/watch"
)

func main() {
	os.Exit(run())
}

func run() int {
	watchMode := flag.Bool("watch", false, "reload the dataset whenever the file changes")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return cli.Fail(os.Stdout, domain.WithKind(domain.KindInput, err))
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return cli.Fail(os.Stdout, domain.WithKind(domain.KindInput, err))
	}
	defer func() { _ = logger.Sync() }()

	path := cfg.Dataset.Path
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		cli.PrintFailure(os.Stderr, err)
		return cli.Fail(os.Stdout, err)
	}
	defer a.Close()

	load := func(ctx context.Context) error {
		summary, err := a.Ingest.Load(ctx, path)
		if err != nil {
			cli.PrintFailure(os.Stderr, err)
			cli.Fail(os.Stdout, err)
			return err
		}
		if err := cli.WriteJSON(os.Stdout, summary); err != nil {
			return err
		}
		cli.PrintLoadSummary(os.Stderr, summary)
		return nil
	}

	err = load(ctx)
	if !*watchMode {
		if err != nil {
			return 1
		}
		return 0
	}

	w, err := watch.New(path, watch.DefaultDebounce, logger)
	if err != nil {
		return cli.Fail(os.Stdout, domain.WithKind(domain.KindInput, err))
	}
	if err := w.Run(ctx, load); err != nil {
		return cli.Fail(os.Stdout, domain.WithKind(domain.KindInput, err))
	}
	return 0
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
