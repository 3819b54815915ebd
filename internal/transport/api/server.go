// Package api exposes the workflow over HTTP for web reviewers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blogflow/server/internal/agent/model"
	errx "github.com/blogflow/server/internal/core/error"
	"github.com/blogflow/server/internal/metrics"
	logx "github.com/blogflow/server/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Workflow is the engine surface the API drives.
type Workflow interface {
	Start(ctx context.Context, question string) (*model.WorkflowState, error)
	Resume(ctx context.Context, runID string, input model.ReviewInput) (*model.WorkflowState, error)
	Retry(ctx context.Context, runID string) (*model.WorkflowState, error)
	Get(ctx context.Context, runID string) (*model.WorkflowState, error)
	Delete(ctx context.Context, runID string) error
}

// StartRequest is the payload of POST /runs.
type StartRequest struct {
	Question string `json:"question"`
}

// ErrorResponse carries a failure. Run is set when a phase failed after the
// run was created, so the client can retry it.
type ErrorResponse struct {
	Error string               `json:"error"`
	Run   *model.WorkflowState `json:"run,omitempty"`
}

type Server struct {
	workflow Workflow
}

func NewServer(workflow Workflow) *Server {
	return &Server{workflow: workflow}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(countRequests)

	router.HandleFunc("/runs", s.handleStart).Methods("POST")
	router.HandleFunc("/runs/{id}", s.handleGet).Methods("GET")
	router.HandleFunc("/runs/{id}", s.handleDelete).Methods("DELETE")
	router.HandleFunc("/runs/{id}/review", s.handleReview).Methods("POST")
	router.HandleFunc("/runs/{id}/retry", s.handleRetry).Methods("POST")
	router.HandleFunc("/health", handleHealth).Methods("GET")

	router.Handle("/metrics", promhttp.Handler())
	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logx.Info().Msg("Server exited")
	return nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, errx.BadRequest(err), nil)
		return
	}
	// a dropped client must not abort a run halfway through a phase
	state, err := s.workflow.Start(context.WithoutCancel(r.Context()), req.Question)
	if err != nil {
		writeError(w, err, state)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	state, err := s.workflow.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.workflow.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var input model.ReviewInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, errx.BadRequest(err), nil)
		return
	}
	state, err := s.workflow.Resume(context.WithoutCancel(r.Context()), mux.Vars(r)["id"], input)
	if err != nil {
		writeError(w, err, failedRun(state, err))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	state, err := s.workflow.Retry(context.WithoutCancel(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err, failedRun(state, err))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// failedRun returns state only for phase failures; client errors do not echo
// the run back.
func failedRun(state *model.WorkflowState, err error) *model.WorkflowState {
	if state == nil || errx.StatusOf(err) < http.StatusInternalServerError {
		return nil
	}
	return state
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func writeError(w http.ResponseWriter, err error, state *model.WorkflowState) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Run: state})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

// countRequests records every request against its route template.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequests.WithLabelValues(r.Method+" "+route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
