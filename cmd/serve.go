package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hollomancer/sbir-analytics-sub010/internal/analytics"
	"github.com/hollomancer/sbir-analytics-sub010/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve read-only run, transition, and analytics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			runs, err := s.ListRuns(req.Context(), store.RunFilter{Limit: limit})
			if err != nil {
				serveError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, runs)
		})

		r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			run, err := s.GetRun(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, run)
		})

		r.Get("/api/runs/{id}/transitions", func(w http.ResponseWriter, req *http.Request) {
			transitions, err := s.ListTransitions(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				serveError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, transitions)
		})

		r.Get("/api/runs/{id}/evidence/{award}", func(w http.ResponseWriter, req *http.Request) {
			bundle, err := s.GetEvidence(req.Context(), chi.URLParam(req, "id"), chi.URLParam(req, "award"))
			if err != nil {
				serveError(w, err)
				return
			}
			if bundle == nil {
				http.Error(w, `{"error":"no evidence for award"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, bundle)
		})

		r.Get("/api/runs/{id}/analytics", func(w http.ResponseWriter, req *http.Request) {
			minSample, _ := strconv.Atoi(req.URL.Query().Get("min_sample"))
			if minSample <= 0 {
				minSample = 10
			}
			awards, err := s.LoadAwards(req.Context())
			if err != nil {
				serveError(w, err)
				return
			}
			transitions, err := s.ListTransitions(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				serveError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, analytics.Summarize(awards, transitions, minSample))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func serveError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
