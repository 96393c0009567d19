package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/koios/webdisplay/pkg/models"
	"go.uber.org/zap"
)

// SnapshotEncoder produces display buffer payloads
type SnapshotEncoder interface {
	Encode() (*models.DisplayBuffer, error)
}

// HealthChecker reports whether a dependency of the service is reachable
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

const healthCheckTimeout = 2 * time.Second

// DisplayHandler handles HTTP requests for the display API
type DisplayHandler struct {
	encoder    SnapshotEncoder
	authorizer Authorizer
	logger     *zap.Logger
	checks     map[string]HealthChecker
}

// NewDisplayHandler creates a new display handler. A nil authorizer allows
// every request.
func NewDisplayHandler(encoder SnapshotEncoder, authorizer Authorizer, logger *zap.Logger) *DisplayHandler {
	if authorizer == nil {
		authorizer = AllowAll{}
	}
	return &DisplayHandler{
		encoder:    encoder,
		authorizer: authorizer,
		logger:     logger,
		checks:     make(map[string]HealthChecker),
	}
}

// AddHealthCheck reports the state of a dependency on /health. Register
// checks before serving requests.
func (h *DisplayHandler) AddHealthCheck(name string, checker HealthChecker) {
	h.checks[name] = checker
}

// RegisterRoutes registers the display routes
func (h *DisplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/display/getbuffer", h.handleGetBuffer)
}

// handleHealth handles GET /health - returns service health status
func (h *DisplayHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, code := "healthy", http.StatusOK
	checks := make(map[string]string, len(h.checks))
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		for name, checker := range h.checks {
			if checker.IsHealthy(ctx) {
				checks[name] = "ok"
				continue
			}
			checks[name] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
			h.logger.Warn("Health check failed", zap.String("check", name))
		}
	}

	response := map[string]interface{}{
		"status":  status,
		"service": "webdisplay",
	}
	if len(checks) > 0 {
		response["checks"] = checks
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

// handleGetBuffer handles GET /api/display/getbuffer - returns the current framebuffer
func (h *DisplayHandler) handleGetBuffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.authorizer.IsAuthorized(r) {
		h.logger.Debug("Rejected unauthorized display buffer request", requestFields(r)...)
		h.authorizer.Challenge(w)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	buffer, err := h.encoder.Encode()
	if err != nil {
		h.logger.Error("Failed to encode display buffer",
			append(requestFields(r), zap.Error(err))...)
		writeError(w, http.StatusInternalServerError, "Failed to read display buffer")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(buffer); err != nil {
		// headers are already sent, nothing left to tell the client
		h.logger.Warn("Failed to send display buffer response",
			append(requestFields(r), zap.Error(err))...)
		return
	}

	h.logger.Debug("Served display buffer",
		zap.Int("display_type", buffer.DisplayType),
		zap.Int("buffer_length", buffer.BufferLength))
}

// ErrorResponse is the JSON body of failed API requests
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Type:    "warning",
		Message: message,
		Code:    status,
	})
}

func requestFields(r *http.Request) []zap.Field {
	return []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_addr", r.RemoteAddr),
	}
}
