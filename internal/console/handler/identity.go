package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/integra-gate/internal/console/service"
)

type IdentityHandler struct {
	service *service.IdentityService
	logger  *zap.Logger
}

func NewIdentityHandler(s *service.IdentityService, logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{service: s, logger: logger.Named("identity-handler")}
}

type enrollRequest struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
}

func (h *IdentityHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.ExternalID == "" {
		http.Error(w, "name and external_id are required", http.StatusBadRequest)
		return
	}

	report, err := h.service.Enroll(r.Context(), req.Name, req.ExternalID, req.Email)
	if err != nil {
		h.logger.Error("enrollment failed", zap.String("external_id", req.ExternalID), zap.Error(err))
		http.Error(w, "enrollment failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(report)
}

func (h *IdentityHandler) Retrain(w http.ResponseWriter, r *http.Request) {
	faces, err := h.service.Retrain(r.Context())
	if err != nil {
		h.logger.Error("retrain failed", zap.Error(err))
		http.Error(w, "retrain failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"faces_in_model": faces})
}

func (h *IdentityHandler) List(w http.ResponseWriter, r *http.Request) {
	identities, err := h.service.ListIdentities(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(identities)
}
