package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pawlive/classmate/internal/adapters/identity/device"
	"github.com/pawlive/classmate/internal/adapters/render/screen"
	statetoml "github.com/pawlive/classmate/internal/adapters/state/toml"
	"github.com/pawlive/classmate/internal/adapters/store/memory"
	mongostore "github.com/pawlive/classmate/internal/adapters/store/mongo"
	"github.com/pawlive/classmate/internal/application"
	"github.com/pawlive/classmate/internal/ports"
)

type app struct {
	cfg            config
	logger         *slog.Logger
	screenRenderer func(application.View, screen.RenderOptions) (string, error)
}

type config struct {
	backend       string
	classroom     string
	mongoURI      string
	mongoDatabase string
	configDir     string
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, ".classmate")

	v := viper.New()
	v.SetDefault("backend", "memory")
	v.SetDefault("classroom", "classroom-1")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "pawlive")
	v.SetDefault("log_level", "warn")

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("CLASSMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("backend")))
	if backend != "memory" && backend != "mongo" {
		return nil, fmt.Errorf("unsupported backend %q (want memory or mongo)", backend)
	}

	return &app{
		cfg: config{
			backend:       backend,
			classroom:     v.GetString("classroom"),
			mongoURI:      v.GetString("mongo.uri"),
			mongoDatabase: v.GetString("mongo.database"),
			configDir:     configDir,
		},
		logger:         newLogger(v.GetString("log_level")),
		screenRenderer: screen.Render,
	}, nil
}

// openSession wires a session for one classroom and starts it. The returned
// cleanup closes the session and disconnects the store.
func (a *app) openSession(ctx context.Context, classroomID string) (*application.Session, func(), error) {
	store, disconnect, err := a.openStore(ctx, classroomID)
	if err != nil {
		return nil, nil, err
	}

	identity := device.NewProvider(filepath.Join(a.cfg.configDir, "identity.toml"), ports.SystemClock{})

	markers, err := statetoml.NewRepository(filepath.Join(a.cfg.configDir, "session_"+classroomID+".toml"))
	if err != nil {
		disconnect()
		return nil, nil, fmt.Errorf("wire session marker store: %w", err)
	}

	session, err := application.NewSession(store, identity, markers, ports.SystemClock{}, a.logger, classroomID)
	if err != nil {
		disconnect()
		return nil, nil, err
	}

	if err := session.Start(ctx); err != nil {
		disconnect()
		return nil, nil, err
	}

	cleanup := func() {
		session.Close()
		disconnect()
	}
	return session, cleanup, nil
}

func (a *app) openStore(ctx context.Context, classroomID string) (ports.RealtimeStore, func(), error) {
	switch a.cfg.backend {
	case "mongo":
		store, disconnect, err := mongostore.Connect(ctx, a.cfg.mongoURI, a.cfg.mongoDatabase, a.logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = disconnect(context.Background()) }, nil
	default:
		// The memory backend is the offline/demo mode: every invocation gets
		// a fresh store seeded with one active classroom.
		store := memory.NewStore()
		if err := store.Set(ctx, "classrooms/"+classroomID, map[string]any{
			"title":    "Demo Classroom",
			"isActive": true,
		}); err != nil {
			return nil, nil, fmt.Errorf("seed demo classroom: %w", err)
		}
		return store, func() {}, nil
	}
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
