package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/config"
	"github.com/sprite-ai/adreview/internal/logging"
	"github.com/sprite-ai/adreview/internal/review"
)

// app is the object graph shared by the commands.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	closeLog func() error
	api      *backend.Client
	ctrl     *review.Controller
	client   *review.Client
	notices  review.Notices
}

// newApp loads configuration and builds the review stack. Interactive
// commands keep logs off the terminal unless --log-file is set.
func newApp(ctx context.Context, interactive bool) (*app, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(vcfg, cfgFile)
	if err != nil {
		return nil, err
	}

	var fallback io.Writer = os.Stderr
	if interactive {
		fallback = nil
	}
	log, closeLog, err := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		JSON:     cfg.LogFormat == "json",
		File:     cfg.LogFile,
		Fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	creds := backend.NewCredentials(cfg.Token)
	creds.Subscribe(func(string) {
		log.Info("backend credentials updated")
	})
	if cfg.TokenFile != "" {
		if err := backend.WatchTokenFile(ctx, cfg.TokenFile, creds, log); err != nil {
			closeLog()
			return nil, err
		}
	}
	if creds.Expired(time.Now()) {
		exp, _ := creds.Expiry()
		log.WithField("expired_at", exp).Warn("backend token has expired")
	}

	api := backend.New(cfg.BaseURL, creds, cfg.Timeout, backend.WithLogger(log))

	notices := make(review.Notices, 64)
	notify := review.Multi(notices, review.LogNotifier(log))
	ctrl := review.NewController(api, cfg.ListParams(), notify, log)
	client := review.NewClient(api, ctrl, cfg.ClientConfig(), notify, log)

	return &app{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		api:      api,
		ctrl:     ctrl,
		client:   client,
		notices:  notices,
	}, nil
}

func (a *app) Close() {
	a.client.Close()
	a.ctrl.Close()
	a.closeLog()
}

// load fetches the collection, failing the command when it cannot.
func (a *app) load(ctx context.Context) error {
	if err := a.ctrl.Refresh(ctx); err != nil {
		return fmt.Errorf("loading materials: %w", err)
	}
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid material id %q", arg)
	}
	return id, nil
}
