package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/examquest/internal/appstate"
	"github.com/abhisek/examquest/internal/backend"
	"github.com/abhisek/examquest/internal/config"
	"github.com/abhisek/examquest/internal/identity"
	"github.com/abhisek/examquest/internal/logger"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/store"
)

// offlineUserID is the learner id used against the built-in backend.
const offlineUserID = "offline-learner"

// env holds everything a command needs, built from flags and config.
type env struct {
	cfg      config.Config
	log      *zap.Logger
	store    *store.Store
	writer   *store.Writer
	ident    identity.Provider
	backend  backend.Backend
	session  *session.Client
	state    *appstate.Container
	registry *prometheus.Registry
}

// loadConfig reads configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dataDir, err := store.DataDir()
	if err != nil {
		return config.Config{}, err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, DataDir: dataDir, EnvFile: envFile})
	if err != nil {
		return config.Config{}, err
	}

	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Offline = true
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

// setup builds the full dependency graph. The returned env must be closed.
func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	e := &env{
		cfg:      cfg,
		log:      log,
		store:    st,
		writer:   store.NewWriter(st.KV(), log),
		registry: prometheus.NewRegistry(),
	}

	if cfg.Offline {
		ident, err := identity.Local(cfg.DevServer.Secret, offlineUserID)
		if err != nil {
			e.close()
			return nil, err
		}
		e.ident = ident
		e.backend = backend.NewFake(backend.FakeOptions{})
	} else {
		e.ident = identity.FromConfig(cmd.Context(), cfg.Auth)
		client, err := backend.NewClient(backend.Options{
			BaseURL:  cfg.API.BaseURL,
			APIKey:   cfg.API.Key,
			Timeout:  cfg.API.Timeout,
			Identity: e.ident,
			Metrics:  backend.NewMetrics(e.registry),
			Logger:   log,
		})
		if err != nil {
			e.close()
			return nil, err
		}
		e.backend = client
	}

	e.session = session.NewClient(session.Options{
		Backend:     e.backend,
		Identity:    e.ident,
		ExamID:      cfg.ExamID,
		EndAttempts: cfg.API.EndAttempts,
		Logger:      log,
	})
	e.state = appstate.New(appstate.Options{
		KV:         st.KV(),
		Writer:     e.writer,
		SessionLog: st.SessionLog(),
		Session:    e.session,
		Backend:    e.backend,
		Identity:   e.ident,
		Logger:     log,
	})

	log.Info("started",
		zap.String("version", version),
		zap.String("db", dbPath),
		zap.Bool("offline", cfg.Offline))
	return e, nil
}

// close waits briefly for background session ends, flushes pending writes
// and closes the store.
func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if e.session != nil {
		if err := e.session.Wait(ctx); err != nil {
			e.log.Warn("practice-end still pending at exit", zap.Error(err))
		}
	}
	if e.writer != nil {
		if err := e.writer.Close(); err != nil {
			e.log.Error("flush pending writes", zap.Error(err))
		}
	}
	e.logMetrics()
	if err := e.store.Close(); err != nil {
		e.log.Error("close store", zap.Error(err))
	}
	_ = e.log.Sync()
}

// logMetrics writes the backend call counters gathered this run.
func (e *env) logMetrics() {
	families, err := e.registry.Gather()
	if err != nil {
		e.log.Warn("gather metrics", zap.Error(err))
		return
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName())}
			for _, l := range m.GetLabel() {
				fields = append(fields, zap.String(l.GetName(), l.GetValue()))
			}
			switch {
			case m.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				fields = append(fields,
					zap.Uint64("count", m.GetHistogram().GetSampleCount()),
					zap.Float64("sum_seconds", m.GetHistogram().GetSampleSum()))
			}
			e.log.Debug("backend metrics", fields...)
		}
	}
}
