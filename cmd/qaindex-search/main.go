package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kailas-cloud/qaindex/internal/app"
	"github.com/kailas-cloud/qaindex/internal/cli"
	"github.com/kailas-cloud/qaindex/internal/config"
	"github.com/kailas-cloud/qaindex/internal/domain"
	logpkg "github.com/kailas-cloud/qaindex/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	raw, err := cli.ReadRequest(args, cli.PipedStdin())
	if err != nil {
		return cli.Fail(os.Stdout, err)
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return cli.Fail(os.Stdout, err)
	}
	defer a.Close()

	out, err := a.Search.Handle(ctx, raw)
	if err != nil {
		return cli.Fail(os.Stdout, err)
	}
	if err := cli.WriteJSON(os.Stdout, out); err != nil {
		return cli.Fail(os.Stdout, err)
	}
	return 0
}
