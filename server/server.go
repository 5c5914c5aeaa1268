package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cyclopcam/leafscan/pkg/perfstats"
	"github.com/cyclopcam/leafscan/server/backend"
	"github.com/cyclopcam/leafscan/server/config"
	"github.com/cyclopcam/leafscan/server/inference"
	"github.com/cyclopcam/leafscan/server/resultdb"
	"github.com/cyclopcam/leafscan/server/stats"
	"github.com/cyclopcam/leafscan/server/storage"
	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
)

type Server struct {
	Log       logs.Log
	Config    *config.Config
	Results   *resultdb.ResultDB
	Inference *inference.Service
	Stats     *stats.Aggregator
	Export    storage.Storage // nil if export is not configured

	latency      perfstats.TimeRegistry // Inference time per category
	signalIn     chan os.Signal
	httpServer   *http.Server
	httpRouter   *httprouter.Router
	shutdownOnce sync.Once
}

// NewServer opens the result DB and the export destination, and takes ownership of backends.
// backends maps each configured category to its backend.
func NewServer(log logs.Log, cfg *config.Config, backends map[string]backend.ModelBackend) (*Server, error) {
	results, err := resultdb.Open(log, cfg.DB, 0)
	if err != nil {
		return nil, err
	}

	count, err := results.Count()
	if err != nil {
		results.Close()
		return nil, err
	}

	export, err := OpenExportStorage(log, cfg)
	if err != nil {
		results.Close()
		return nil, err
	}

	s := &Server{
		Log:       log,
		Config:    cfg,
		Results:   results,
		Inference: inference.NewService(log, results, backends),
		Stats:     stats.NewAggregator(results),
		Export:    export,
	}
	s.setupHttpRoutes()
	log.Infof("Serving %v categories, %v stored results. Maximum image size %v", len(backends), count, cfg.MaxImageBytes)
	return s, nil
}

// OpenExportStorage returns (nil, nil) if no export destination is configured
func OpenExportStorage(log logs.Log, cfg *config.Config) (storage.Storage, error) {
	var export storage.Storage
	var err error
	if cfg.Export.GCS != nil {
		export, err = storage.NewStorageGCS(log, cfg.Export.GCS.Bucket, cfg.Export.GCS.Public)
	} else if cfg.Export.Filesystem != nil {
		export, err = storage.NewStorageFS(log, cfg.Export.Filesystem.Root)
	}
	if err != nil {
		return nil, fmt.Errorf("Failed to open export storage: %w", err)
	}
	return export, nil
}

// The HTTP handler of the API
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// ListenHTTP blocks until the server is shut down, in which case it returns http.ErrServerClosed.
// addr example: ":8080"
func (s *Server) ListenHTTP(addr string) error {
	s.Log.Infof("Listening on %v", addr)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.httpRouter,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) ListenForKillSignals() {
	s.Log.Infof("ListenForKillSignals starting")
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v'. ListenForKillSignals will exit after shutdown", sig.String())
			s.Shutdown()
		} else {
			// Shutdown() was called by something other than ourselves, and it closed signalIn
			s.Log.Infof("signalIn closed. ListenForKillSignals will exit now")
		}
	}()
}

// Shutdown stops the HTTP server, and then closes the backends and the result DB.
// It is safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.Log.Infof("Shutdown")
		if s.signalIn != nil {
			signal.Stop(s.signalIn)
			close(s.signalIn)
		}
		if s.httpServer != nil {
			s.Log.Infof("Closing HTTP server")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.Log.Warnf("HTTP server shutdown: %v", err)
			}
		}
		s.Inference.Close()
		if s.Export != nil {
			if err := s.Export.Close(); err != nil {
				s.Log.Warnf("Closing export storage: %v", err)
			}
		}
		s.Results.Close()
		s.Log.Infof("Shutdown complete")
	})
}
