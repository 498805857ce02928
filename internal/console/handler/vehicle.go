package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/console/service"
)

type VehicleHandler struct {
	service *service.VehicleService
	logger  *zap.Logger
}

func NewVehicleHandler(s *service.VehicleService, logger *zap.Logger) *VehicleHandler {
	return &VehicleHandler{service: s, logger: logger.Named("vehicle-handler")}
}

type registerVehicleRequest struct {
	Plate string `json:"plate"`
}

func (h *VehicleHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerVehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Plate == "" {
		http.Error(w, "plate is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.RegisterVehicle(r.Context(), req.Plate)
	if err != nil {
		h.logger.Error("vehicle registration failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Дубликат — это не ошибка HTTP, а success=false в теле
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *VehicleHandler) Remove(w http.ResponseWriter, r *http.Request) {
	plate := chi.URLParam(r, "plate")
	if plate == "" {
		http.Error(w, "plate is required", http.StatusBadRequest)
		return
	}

	removed, err := h.service.RemoveVehicle(r.Context(), plate)
	if err != nil {
		h.logger.Error("vehicle removal failed", zap.String("plate", plate), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "vehicle not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.ListVehicles(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicles)
}
