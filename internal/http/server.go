package http

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"go-process-table-ui/internal/config"
	"go-process-table-ui/internal/connectors/processapi"
	"go-process-table-ui/internal/orchestrator"
	"go-process-table-ui/internal/render"
	"go-process-table-ui/internal/render/dom"
)

const requestIDHeader = "X-Request-ID"

// actionWriteMargin is the write time left after an action cycle ends.
const actionWriteMargin = 5 * time.Second

// Server wraps the viewer HTTP server, its render target and the
// orchestrator driving it.
type Server struct {
	httpServer  *nethttp.Server
	client      *processapi.Client
	doc         *dom.Document
	renderer    *render.Renderer
	orch        *orchestrator.Orchestrator
	feed        *Feed
	logger      *zap.Logger
	unsubscribe func()
}

// NewServer creates a configured viewer server for the backend at
// cfg.APIBaseURL.
func NewServer(cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url required")
	}

	doc, err := dom.ParseString(pageHTML, dom.DefaultElements)
	if err != nil {
		return nil, err
	}
	client := processapi.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	renderer := render.NewRenderer(doc, render.Options{HideWhileLoading: cfg.HideWhileLoading})

	s := &Server{
		client:   client,
		doc:      doc,
		renderer: renderer,
		logger:   logger,
	}
	s.feed = newFeed(logger.Named("feed"), renderer.State)
	s.orch = orchestrator.New(instrumentedFetcher{client: client}, renderer, logger.Named("orchestrator"), orchestrator.Options{
		ResyncDelay:   cfg.ResyncDelay,
		ResyncTimeout: cfg.ActionTimeout,
		SingleFlight:  cfg.SingleFlight,
		OnResync:      s.feed.BroadcastReload,
		OnCycle:       recordCycle,
	})
	s.unsubscribe = renderer.Subscribe(func(st render.State) {
		recordRenderTransition(string(st.Phase))
		s.feed.BroadcastState(st)
	})

	actionTimeout := cfg.ActionTimeout
	if actionTimeout <= 0 {
		actionTimeout = 30 * time.Second
	}
	// A write deadline shorter than the action would drop its response.
	writeTimeout := cfg.WriteTimeout
	if writeTimeout > 0 && writeTimeout < actionTimeout+actionWriteMargin {
		writeTimeout = actionTimeout + actionWriteMargin
	}

	router := mux.NewRouter()
	router.HandleFunc("/", dashboardHandler(doc)).Methods("GET")
	router.HandleFunc("/favicon.ico", faviconHandler).Methods("GET")
	router.HandleFunc("/ui/generate", actionHandler(s.orch.RegenerateAndDisplay, renderer, actionTimeout)).Methods("POST")
	router.HandleFunc("/ui/show", actionHandler(s.orch.DisplayCurrentData, renderer, actionTimeout)).Methods("POST")
	router.HandleFunc("/ws", s.feed.handler()).Methods("GET")
	router.HandleFunc("/api/v1/state", stateHandler(renderer)).Methods("GET")
	router.HandleFunc("/api/v1/input", inputParamsHandler(client)).Methods("GET")
	router.HandleFunc("/api/v1/status/upstream", upstreamStatusHandler(client)).Methods("GET")
	router.HandleFunc("/api/v1/settings", settingsHandler(cfg)).Methods("GET")
	router.HandleFunc("/health", healthHandler).Methods("GET")
	router.HandleFunc("/ready", readyHandler(client)).Methods("GET")
	router.Handle("/metrics", metricsHandler()).Methods("GET")

	s.httpServer = &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(logger.Named("http"), observabilityMiddleware(router, router)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: writeTimeout,
	}
	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() nethttp.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, the re-sync task and the feed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.orch.Close()
	s.unsubscribe()
	s.feed.Close()
	return s.httpServer.Shutdown(ctx)
}

// instrumentedFetcher records backend call metrics for the orchestrator.
type instrumentedFetcher struct {
	client *processapi.Client
}

func (f instrumentedFetcher) FetchProcesses(ctx context.Context) (string, error) {
	start := time.Now()
	body, err := f.client.FetchProcesses(ctx)
	recordUpstreamCall("backend", "FetchProcesses", time.Since(start).Seconds(), err)
	return body, err
}

func (f instrumentedFetcher) TriggerGeneration(ctx context.Context) error {
	start := time.Now()
	err := f.client.TriggerGeneration(ctx)
	recordUpstreamCall("backend", "TriggerGeneration", time.Since(start).Seconds(), err)
	return err
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func loggingMiddleware(logger *zap.Logger, next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", reqID))
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
