package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/plantkeep/application"
	domainconfig "github.com/felixgeelhaar/plantkeep/domain/config"
	infraconfig "github.com/felixgeelhaar/plantkeep/infrastructure/config"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
	"github.com/felixgeelhaar/plantkeep/infrastructure/observability"
	"github.com/felixgeelhaar/plantkeep/infrastructure/telemetry"
)

// session holds the services opened for one command.
type session struct {
	config    *domainconfig.AppConfig
	build     *infraconfig.BuildResult
	tracing   *observability.Provider
	cache     *application.CacheStore
	limiter   *application.ScanLimiter
	favorites *application.Favorites
	history   *application.ScanHistory
	profiles  *application.Profiles
	flags     *application.Flags
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (a *App) loadConfig() (*domainconfig.AppConfig, error) {
	cfg := domainconfig.Default()
	if a.opts.configPath != "" {
		loaded, err := infraconfig.NewLoader().LoadFile(a.opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if a.opts.driver != "" {
		cfg.Storage.Driver = a.opts.driver
	}
	if a.opts.dir != "" {
		cfg.Storage.Dir = a.opts.dir
	}
	if a.opts.dsn != "" {
		cfg.Storage.DSN = a.opts.dsn
	}
	if a.opts.user != "" {
		cfg.User.ID = a.opts.user
	}
	if a.opts.logLevel != "" {
		cfg.Logging.Level = a.opts.logLevel
	}
	if a.opts.logFormat != "" {
		cfg.Logging.Format = a.opts.logFormat
	}

	if errs := domainconfig.NewValidator().Validate(cfg); errs.HasErrors() {
		return nil, fmt.Errorf("%w: %v", domainconfig.ErrValidationFailed, errs)
	}
	return cfg, nil
}

// open builds the services on first use.
func (a *App) open(ctx context.Context) (*session, error) {
	if a.session != nil {
		return a.session, nil
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	build, err := infraconfig.NewBuilder(cfg).Build(ctx)
	if err != nil {
		return nil, err
	}

	logCfg := build.Logging
	logCfg.Output = a.stderr
	logging.Init(logCfg)

	metrics := telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())
	if err := metrics.Error(); err != nil {
		_ = build.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	tracing, err := a.openTracing(ctx)
	if err != nil {
		_ = build.Close()
		return nil, err
	}

	opts := []application.Option{
		application.WithLocker(build.Locker),
		application.WithMetrics(metrics),
		application.WithCapacity(build.HistoryCapacity),
		application.WithUsers(build.User),
	}

	a.session = &session{
		config:    cfg,
		build:     build,
		tracing:   tracing,
		cache:     application.NewCacheStore(build.Store, opts...),
		limiter:   application.NewScanLimiter(build.Store, opts...),
		favorites: application.NewFavorites(build.Store, opts...),
		history:   application.NewScanHistory(build.Store, opts...),
		profiles:  application.NewProfiles(build.Store, opts...),
		flags:     application.NewFlags(build.Store, opts...),
	}
	return a.session, nil
}

// userID returns the session's user or an error for guest sessions.
func (s *session) userID() (string, error) {
	u, ok := s.build.User.CurrentUser()
	if !ok {
		return "", fmt.Errorf("this command needs a user (--user or user.id in config)")
	}
	return u.ID, nil
}

// openTracing installs the tracer provider selected by --trace.
func (a *App) openTracing(ctx context.Context) (*observability.Provider, error) {
	opts := []observability.Option{observability.WithServiceVersion(Version)}
	switch observability.ExporterType(a.opts.trace) {
	case observability.ExporterStdout:
		opts = append(opts, observability.WithStdout(a.stderr))
	case observability.ExporterOTLP:
		opts = append(opts, observability.WithOTLP(a.opts.traceAddr, true))
	case observability.ExporterNoop, "":
	default:
		return nil, fmt.Errorf("%w: %s", observability.ErrUnknownExporter, a.opts.trace)
	}

	p, err := observability.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	p.Install()
	return p, nil
}

func (a *App) closeSession() error {
	if a.session == nil {
		return nil
	}
	s := a.session
	a.session = nil

	// The command context may already be cancelled.
	tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(s.tracing.Shutdown(tctx), s.build.Close())
}
