package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vibin/jx3-item-bot/config"
	"github.com/vibin/jx3-item-bot/internal/core/domain"
	"github.com/vibin/jx3-item-bot/internal/core/ports"
	"github.com/vibin/jx3-item-bot/internal/core/services"
	"github.com/vibin/jx3-item-bot/internal/logger"
	"github.com/vibin/jx3-item-bot/internal/metrics"
)

// Handler is the HTTP handler for the item bot
type Handler struct {
	service         *services.ItemService
	logger          logger.Logger
	router          *chi.Mux
	config          *config.Config
	whatsappAdapter ports.WhatsAppPort

	// configMu serializes allowlist updates with saving the config
	configMu sync.Mutex
}

// NewHandler creates a new HTTP handler. whatsappAdapter may be nil.
func NewHandler(service *services.ItemService, cfg *config.Config, whatsappAdapter ports.WhatsAppPort, log logger.Logger) *Handler {
	h := &Handler{
		service:         service,
		logger:          log,
		config:          cfg,
		whatsappAdapter: whatsappAdapter,
	}

	h.setupRouter()
	return h
}

// setupRouter sets up the Chi router with middleware and routes
func (h *Handler) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.HandleMessage)
		r.Get("/items", h.SearchItems)
		r.Get("/plugin", h.PluginInfo)

		if h.config.WhatsApp.Enabled && h.whatsappAdapter != nil {
			h.setupWhatsAppAdminRoutes(r)
		}
	})

	h.router = r
}

// ServeHTTP implements the http.Handler interface
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Health reports that the process is up
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PluginInfo returns the plugin identity
func (h *Handler) PluginInfo(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, services.PluginInfo)
}

type messageResponse struct {
	Replied bool   `json:"replied"`
	Reply   string `json:"reply"`
}

// HandleMessage feeds a chat message through the bot and returns its reply
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.IncomingMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if msg.Channel == "" {
		msg.Channel = domain.ChannelHTTP
	}

	reply, replied := h.service.HandleMessage(r.Context(), msg)
	h.respondWithJSON(w, http.StatusOK, messageResponse{Replied: replied, Reply: reply.Text})
}

type itemsResponse struct {
	Kind    domain.OutcomeKind `json:"kind"`
	Items   []domain.Item      `json:"items"`
	Message string             `json:"message,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// SearchItems returns the raw search outcome for ?keyword=
func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		h.respondWithError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	outcome := h.service.Search(r.Context(), keyword)

	resp := itemsResponse{
		Kind:    outcome.Kind,
		Items:   outcome.Items,
		Message: outcome.Message,
	}
	if resp.Items == nil {
		resp.Items = []domain.Item{}
	}
	if outcome.Err != nil {
		resp.Error = outcome.Err.Error()
	}

	h.respondWithJSON(w, http.StatusOK, resp)
}

// respondWithError sends an error response
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// LoggerMiddleware is a middleware that logs and counts HTTP requests
func LoggerMiddleware(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
				log.Info("HTTP request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
