package handler

import (
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
	"github.com/vyrodovalexey/cigarro-stock/internal/service"
)

// maxBodyBytes caps request bodies on the cigarro endpoints.
const maxBodyBytes = 1 << 20

// CigarroHandler handles REST API requests for cigarros.
type CigarroHandler struct {
	svc    CigarroService
	logger *zap.Logger
}

// NewCigarroHandler creates a new CigarroHandler instance.
func NewCigarroHandler(svc CigarroService, logger *zap.Logger) *CigarroHandler {
	return &CigarroHandler{
		svc:    svc,
		logger: logger,
	}
}

// RegisterRoutes registers the health, readiness and cigarro routes and
// returns the sub-router holding the cigarro resources.
func (h *CigarroHandler) RegisterRoutes(router *mux.Router) *mux.Router {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)

	api := router.PathPrefix(BasePath).Subrouter()
	for _, root := range []string{"", "/"} {
		api.HandleFunc(root, h.ListCigarros).Methods(http.MethodGet)
		api.HandleFunc(root, h.CreateCigarro).Methods(http.MethodPost)
	}
	api.HandleFunc("/{name}", h.GetCigarro).Methods(http.MethodGet)
	api.HandleFunc("/{id}", h.DeleteCigarro).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/increment", h.IncrementCigarro).Methods(http.MethodPatch)

	return api
}

// HealthCheck handles GET /health requests.
func (h *CigarroHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
	})
}

// ReadyCheck handles GET /ready requests.
func (h *CigarroHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ready(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "not ready"})
		return
	}
	h.writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
}

// ListCigarros handles GET /api/v1/cigarros requests.
func (h *CigarroHandler) ListCigarros(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list cigarros")
		return
	}

	h.writeJSON(w, http.StatusOK, model.ToDTOs(items))
}

// GetCigarro handles GET /api/v1/cigarros/{name} requests.
func (h *CigarroHandler) GetCigarro(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	c, err := h.svc.FindByName(r.Context(), name)
	if err != nil {
		h.handleServiceError(w, err, "get cigarro")
		return
	}

	h.writeJSON(w, http.StatusOK, model.ToDTO(*c))
}

// CreateCigarro handles POST /api/v1/cigarros requests.
func (h *CigarroHandler) CreateCigarro(w http.ResponseWriter, r *http.Request) {
	var input model.CigarroDTO
	if !h.decodeBody(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.svc.Create(r.Context(), model.ToModel(input))
	if err != nil {
		h.handleServiceError(w, err, "create cigarro")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.ToDTO(*c))
}

// DeleteCigarro handles DELETE /api/v1/cigarros/{id} requests.
func (h *CigarroHandler) DeleteCigarro(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteByID(r.Context(), id); err != nil {
		h.handleServiceError(w, err, "delete cigarro")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IncrementCigarro handles PATCH /api/v1/cigarros/{id}/increment requests.
func (h *CigarroHandler) IncrementCigarro(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var input model.QuantityDTO
	if !h.decodeBody(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.svc.Increment(r.Context(), id, *input.Quantity)
	if err != nil {
		h.handleServiceError(w, err, "increment cigarro")
		return
	}

	h.writeJSON(w, http.StatusOK, model.ToDTO(*c))
}

func (h *CigarroHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *CigarroHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.Warn("invalid cigarro id", zap.String("id", raw))
		h.writeError(w, http.StatusBadRequest, "invalid cigarro ID")
		return 0, false
	}
	return id, true
}

// handleServiceError maps service errors to HTTP responses.
func (h *CigarroHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.writeErrorDetails(w, http.StatusNotFound, "cigarro not found", err)
	case errors.Is(err, service.ErrAlreadyRegistered):
		h.writeErrorDetails(w, http.StatusBadRequest, "cigarro already registered", err)
	case errors.Is(err, service.ErrStockExceeded):
		h.writeErrorDetails(w, http.StatusBadRequest, "stock limit exceeded", err)
	case errors.Is(err, service.ErrInsufficientStock):
		h.writeErrorDetails(w, http.StatusBadRequest, "insufficient stock", err)
	case errors.Is(err, service.ErrConcurrentUpdate):
		h.writeErrorDetails(w, http.StatusConflict, "stock changed concurrently, retry", err)
	default:
		h.logger.Error("service operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *CigarroHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *CigarroHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}

func (h *CigarroHandler) writeErrorDetails(w http.ResponseWriter, status int, message string, err error) {
	h.writeJSON(w, status, model.ErrorResponse{
		Code:    status,
		Message: message,
		Details: err.Error(),
	})
}
