package app

import (
	"context"
	"fmt"

	igcfg "igbridge/internal/config"
	"igbridge/internal/logger"
	webhookhttp "igbridge/internal/transport/http/webhook"

	"golang.org/x/sync/errgroup"
)

// App owns application-level orchestration: load config, build dependencies,
// run the webhook server.
type App struct {
	cfg     *igcfg.Config
	httpSrv *webhookhttp.Server
	startup []startupTask
}

// startupTask runs once after the server is up. Failures are logged, not
// fatal; account preference sync must not keep signals from flowing.
type startupTask struct {
	name string
	run  func(context.Context) error
}

// NewApp builds the application from config without starting it.
func NewApp(cfg *igcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.httpSrv == nil {
		return fmt.Errorf("webhook server not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("webhook http server error: %w", err)
		}
		return nil
	})

	for _, task := range a.startup {
		task := task
		group.Go(func() error {
			if err := task.run(ctx); err != nil {
				logger.Warnf("startup task %s failed: %v", task.name, err)
			}
			return nil
		})
	}

	logger.Infof("igbridge listening on %s (live=%v)", a.httpSrv.Addr(), a.cfg.IG.Live)
	return group.Wait()
}
