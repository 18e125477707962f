package ai

import (
	"encoding/json"
	"errors"
	"net/http"

	"clariox/pkg/logger"
)

type GenerateRequest struct {
	Text string `json:"text"`
	Type Mode   `json:"type"`
}

type GenerateResponse struct {
	Result string `json:"result"`
}

type Handler struct {
	Generator Generator
}

func NewHandler(g Generator) *Handler {
	return &Handler{Generator: g}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		req.Type = ModeSummary
	}

	result, err := h.Generator.Generate(r.Context(), req.Text, req.Type)
	switch {
	case errors.Is(err, ErrEmptyText), errors.Is(err, ErrUnknownMode):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		logger.Sugar.Errorf("AI generation (%s) failed: %v", req.Type, err)
		http.Error(w, "AI generation failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GenerateResponse{Result: result})
}
