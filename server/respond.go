package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/export"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/panel"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/translate"
)

const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError writes {"error": "..."}. Only request-shape problems reach
// the client this way; everything else degrades inside the components.
func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return errors.New("request body too large")
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// PanelChange is the body of every POST .../panel route.
type PanelChange struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// changePanel applies one control change and answers with the re-rendered
// panel.
func changePanel(w http.ResponseWriter, r *http.Request, p *panel.Panel) {
	var req PanelChange
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Key == "" {
		respondError(w, http.StatusBadRequest, errors.New("key is required"))
		return
	}
	if err := p.ChangeValue(req.Key, req.Value); err != nil {
		respondError(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, p.Render())
}

// errorStatus maps component errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, panel.ErrUnknownField),
		errors.Is(err, translate.ErrNotFound),
		errors.Is(err, jaat.ErrUnknownPersona):
		return http.StatusNotFound
	case errors.Is(err, panel.ErrInvalidOption),
		errors.Is(err, panel.ErrInvalidValue),
		errors.Is(err, translate.ErrEmptyText),
		errors.Is(err, translate.ErrUnsupportedLanguage),
		errors.Is(err, translate.ErrUnknownType),
		errors.Is(err, translate.ErrInvalidFormality),
		errors.Is(err, translate.ErrNothingToSave),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, errNothingToExport):
		return http.StatusBadRequest
	case errors.Is(err, translate.ErrNoSender):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
