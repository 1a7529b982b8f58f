package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudflare/workers-sdk-sub005/internal/db"
	"github.com/cloudflare/workers-sdk-sub005/internal/utils"
	"github.com/gofrs/flock"
)

// ErrDBLocked means another devserver holds the state file
var ErrDBLocked = errors.New("devserver: database is in use by another process")

// Server emulates the control-plane endpoints the deploy tool talks to
type Server struct {
	config  *Config
	store   *Store
	handler http.Handler
	server  *http.Server
	lock    *flock.Flock
}

// lockDB takes an exclusive lock next to a file backed db
func lockDB(path string) (*flock.Flock, error) {
	if path == "" || path == db.MemoryPath {
		return nil, nil
	}
	if err := utils.EnsureParent(path); err != nil {
		return nil, err
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, ErrDBLocked
	}
	return lock, nil
}

func unlockDB(lock *flock.Flock) error {
	if lock == nil || !lock.Locked() {
		return nil
	}
	return lock.Unlock()
}

func New(config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	lock, err := lockDB(config.DBPath)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(config.DBPath)
	if err != nil {
		unlockDB(lock)
		return nil, err
	}

	tokens := newTokenIssuer(config.TokenSecret, config.TokenExpiry)
	handler, err := setupRoutes(config, store, tokens)
	if err != nil {
		store.Close()
		unlockDB(lock)
		return nil, fmt.Errorf("setup routes: %w", err)
	}

	return &Server{
		config:  config,
		store:   store,
		handler: handler,
		lock:    lock,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the routes, mostly for httptest
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Store() *Store {
	return s.store
}

// Start serves until ctx is canceled
func (s *Server) Start(ctx context.Context) error {
	slog.Info("devserver start", "addr", s.config.Addr, "db", s.config.DBPath)
	defer slog.Info("devserver stop")

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Join(err, s.store.Close(), unlockDB(s.lock))
	case <-ctx.Done():
	}

	return s.Stop(context.Background())
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	return errors.Join(err, s.store.Close(), unlockDB(s.lock))
}
