package public

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/azn-rates/deploy/config"
	"github.com/langowen/azn-rates/internal/currency_api/converter"
	"github.com/langowen/azn-rates/internal/currency_api/metrics"
	mwLogger "github.com/langowen/azn-rates/internal/currency_api/ports/http/public/middleware/logger"
	"github.com/langowen/azn-rates/internal/entities"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	msgMissingCurrency     = "Missing `from` or `to` query parameter"
	msgInvalidAmount       = "Invalid `amount` query parameter"
	msgUnsupportedCurrency = "Unsupported currency"
	msgNotFound            = "Not found"
)

// Routes is the route list advertised by the 404 response.
var Routes = []string{"/", "/rates", "/convert?from=AZN&to=USD&amount=1", "/refresh"}

type RatesResponse struct {
	Base  string             `json:"base"`
	Rates entities.RateTable `json:"rates"`
}

type RefreshResponse struct {
	OK    bool               `json:"ok"`
	Rates entities.RateTable `json:"rates"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type UnsupportedResponse struct {
	Error     string   `json:"error"`
	Supported []string `json:"supported"`
}

type NotFoundResponse struct {
	Error  string   `json:"error"`
	Routes []string `json:"routes"`
}

type Server struct {
	Server    *http.Server
	store     RateStore
	refresher Refresher
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
}

func NewServer(store RateStore, refresher Refresher, m *metrics.Metrics, gatherer prometheus.Gatherer, cfg config.HTTPServer) *Server {
	s := &Server{
		store:     store,
		refresher: refresher,
		metrics:   m,
		gatherer:  gatherer,
	}

	s.Server = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.Router(),
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mwLogger.New())
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.Health)

	r.Get("/", s.GetRates)
	r.Get("/rates", s.GetRates)
	r.Get("/convert", s.Convert)
	r.Get("/refresh", s.Refresh)

	r.NotFound(s.NotFound)
	r.MethodNotAllowed(s.NotFound)

	return r
}

// Start serves until ctx is cancelled. The returned channel closes once shutdown completes.
func (s *Server) Start(ctx context.Context) <-chan struct{} {
	doneChan := make(chan struct{})

	go func() {
		slog.Info("currency API listening", "addr", s.Server.Addr)
		if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}

func (s *Server) GetRates(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, RatesResponse{
		Base:  entities.BaseCurrency,
		Rates: s.store.Current(),
	})
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	amount, err := converter.ParseAmount(query.Get("amount"), query.Has("amount"))
	if err != nil {
		// Convert reports the amount only after checking from/to.
		amount = math.NaN()
	}

	result, err := converter.Convert(s.store.Current(), query.Get("from"), query.Get("to"), amount)
	if err != nil {
		s.respondConvertError(w, err)
		return
	}

	s.metrics.ConversionsTotal.WithLabelValues("ok").Inc()
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) respondConvertError(w http.ResponseWriter, err error) {
	var unsupported *entities.UnsupportedCurrencyError

	switch {
	case errors.As(err, &unsupported):
		s.metrics.ConversionsTotal.WithLabelValues("unsupported_currency").Inc()
		RespondWithJSON(w, http.StatusBadRequest, UnsupportedResponse{
			Error:     msgUnsupportedCurrency,
			Supported: unsupported.Supported,
		})
	case errors.Is(err, entities.ErrInvalidAmount):
		s.metrics.ConversionsTotal.WithLabelValues("invalid_amount").Inc()
		RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidAmount})
	case errors.Is(err, entities.ErrInvalidRequest):
		s.metrics.ConversionsTotal.WithLabelValues("missing_currency").Inc()
		RespondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgMissingCurrency})
	default:
		slog.Error("unexpected conversion error", "error", err)
		RespondWithJSON(w, http.StatusInternalServerError, ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

// Refresh answers with the cached rates whatever the upstream outcome; failures are logged
// by the scheduler.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	_ = s.refresher.RefreshNow(context.WithoutCancel(r.Context()))

	RespondWithJSON(w, http.StatusOK, RefreshResponse{
		OK:    true,
		Rates: s.store.Current(),
	})
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusNotFound, NotFoundResponse{
		Error:  msgNotFound,
		Routes: Routes,
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		s.metrics.HTTPRequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
		s.metrics.HTTPRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(status)).Inc()
	})
}

func RespondWithJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
