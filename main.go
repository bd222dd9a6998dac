package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"github.com/utilitywarehouse/git-push-mirror/mirror"
)

var (
	loggerLevel = new(slog.LevelVar)
	logger      *slog.Logger

	levelStrings = map[string]slog.Level{
		"trace": slog.Level(-8),
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

// appFlags returns fresh flag instances, cli flags hold parsed state so
// they cannot be shared between command runs.
func appFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Sources: cli.EnvVars("GIT_PUSH_MIRROR_CONFIG"),
			Usage:   "Absolute path to the optional config file.",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Sources: cli.EnvVars("LOG_LEVEL"),
			Value:   "info",
			Usage:   "Log level",
		},
		&cli.DurationFlag{
			Name:    "interval",
			Sources: cli.EnvVars("MIRROR_INTERVAL"),
			Usage:   "Wait between mirror runs. When zero the mirror runs once and exits.",
		},
		&cli.DurationFlag{
			Name:    "mirror-timeout",
			Sources: cli.EnvVars("MIRROR_TIMEOUT"),
			Usage:   "Total time allowed for a single mirror run.",
		},
		&cli.StringFlag{
			Name:    "http-addr",
			Sources: cli.EnvVars("HTTP_ADDR"),
			Usage:   "Listen address for webhook, metrics and health endpoints (loop mode only).",
		},
		&cli.BoolFlag{
			Name:  "skip-target-check",
			Usage: "Skip the GitHub API check that the target repository exists before pushing.",
		},
	}
}

func init() {
	loggerLevel.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: loggerLevel,
	}))
}

func main() {
	cmd := &cli.Command{
		Name:   "git-push-mirror",
		Usage:  "git-push-mirror force-pushes a full mirror of a source git repository to a target GitHub repository.",
		Flags:  appFlags(),
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	// set log level according to argument
	if v, ok := levelStrings[strings.ToLower(c.String("log-level"))]; ok {
		loggerLevel.Set(v)
	}

	conf, fileConf, err := resolveConfig(c)
	if err != nil {
		return err
	}

	logger.Info("starting git-push-mirror", "actor", actor(),
		"source", conf.Source, "target", conf.Target, "branch", conf.Branch)

	// path to resolve git and the askpass shell
	gitENV := []string{fmt.Sprintf("PATH=%s", os.Getenv("PATH"))}

	pm, err := mirror.New(*conf, gitENV, logger.With("logger", "mirror"))
	if err != nil {
		return fmt.Errorf("could not create push mirror: %w", err)
	}

	// one-shot is the default mode
	if conf.Interval == 0 {
		runCtx, cancel := context.WithTimeout(ctx, conf.Timeout)
		defer cancel()

		if err := pm.Run(runCtx); err != nil {
			return err
		}
		logger.Info("mirror successful", "source", conf.Source, "target", conf.Target, "branch", conf.Branch)
		return nil
	}

	return runLoop(ctx, c, pm, fileConf.WebhookSecret)
}

func runLoop(ctx context.Context, c *cli.Command, pm *mirror.PushMirror, webhookSecret string) error {
	mirror.EnableMetrics("", prometheus.DefaultRegisterer)

	// best effort clean up of run dirs leaked by crashed processes
	mirror.SweepStaleRunDirs(ctx, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := c.String("http-addr"); addr != "" {
		if webhookSecret == "" {
			return fmt.Errorf("webhook secret is required to start the http listener")
		}
		wh := &GithubWebhookHandler{
			mirror: pm,
			secret: webhookSecret,
			log:    logger.With("logger", "webhook"),
		}
		go serveHTTP(addr, wh, logger)
	}

	pm.StartLoop(ctx)
	logger.Info("shutting down")
	return nil
}
