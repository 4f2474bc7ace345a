package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/notifier"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/persona"
)

// ──────────────────────────────────────────────
// Personas
// ──────────────────────────────────────────────

// InputRequest is the body of POST /api/personas/{id}/input.
type InputRequest struct {
	Text   string         `json:"text"`
	Extra  map[string]any `json:"extra,omitempty"`
	Notify bool           `json:"notify,omitempty"` // raise a new-message notification for the reply
}

// PersonaState is returned by GET /api/personas/{id}.
type PersonaState struct {
	Info        jaat.ModeInfo  `json:"info"`
	Greeting    string         `json:"greeting"`
	History     []jaat.Turn    `json:"history"`
	Preferences map[string]any `json:"preferences"`
}

// mode resolves the {id} persona for the request's session, answering 404
// itself when it is unknown.
func (srv *Server) mode(w http.ResponseWriter, r *http.Request) (*session, *jaat.Mode, bool) {
	s := sessionFrom(r.Context())
	m, err := srv.registry.Mode(s.id, chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jaat.ErrUnknownPersona) {
			status = http.StatusNotFound
		}
		respondError(w, status, err)
		return nil, nil, false
	}
	return s, m, true
}

func (srv *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"personas": srv.registry.Infos(s.id),
		"current":  s.persona.Load(),
	})
}

func (srv *Server) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	_, m, ok := srv.mode(w, r)
	if !ok {
		return
	}
	history := m.History()
	if history == nil {
		history = []jaat.Turn{}
	}
	respondJSON(w, http.StatusOK, PersonaState{
		Info:        m.ModeInfo(),
		Greeting:    m.GetGreeting(),
		History:     history,
		Preferences: m.Preferences(),
	})
}

func (srv *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	_, m, ok := srv.mode(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"greeting": m.GetGreeting()})
}

func (srv *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	s, m, ok := srv.mode(w, r)
	if !ok {
		return
	}
	var req InputRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	resp := m.ProcessInput(r.Context(), req.Text, req.Extra)
	s.persona.Store(m.Config().ID)
	if req.Notify {
		s.notifier.NotifyNewMessage(notifier.Message{Sender: m.ModeInfo().Name, Content: resp.Text})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (srv *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	_, m, ok := srv.mode(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": m.ClearHistory()})
}

func (srv *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	_, m, ok := srv.mode(w, r)
	if !ok {
		return
	}
	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	saved := m.SavePreferences(patch)
	respondJSON(w, http.StatusOK, map[string]any{"saved": saved, "preferences": m.Preferences()})
}

// ──────────────────────────────────────────────
// Uploads
// ──────────────────────────────────────────────

// handleUploadPersona accepts a YAML definition, registers it and, when an
// upload store is configured, keeps it as a new version. Re-uploading a
// stored definition unchanged answers 200 without recompiling.
func (srv *Server) handleUploadPersona(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if len(body) > maxBodyBytes {
		respondError(w, http.StatusRequestEntityTooLarge, errors.New("definition too large"))
		return
	}
	def, err := persona.Parse(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	normalized, _, err := persona.Normalize(def)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if srv.protectedPersona(normalized.ID) {
		respondError(w, http.StatusForbidden, fmt.Errorf("%w: %s", persona.ErrProtected, normalized.ID))
		return
	}
	if srv.opts.Uploads != nil {
		hash := normalized.Hash()
		if stored, err := srv.opts.Uploads.GetByHash(hash); err == nil && stored != nil && stored.ID == normalized.ID {
			respondJSON(w, http.StatusOK, map[string]any{
				"id":        stored.ID,
				"version":   stored.Version,
				"hash":      hash,
				"unchanged": true,
			})
			return
		}
		if _, err := srv.opts.Uploads.GetVersion(normalized.ID, normalized.Version); err == nil {
			respondError(w, http.StatusConflict, fmt.Errorf("%w: %s@%s", persona.ErrVersionExists, normalized.ID, normalized.Version))
			return
		}
	}

	p, err := srv.library.Add(normalized)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if srv.opts.Uploads != nil {
		if err := srv.opts.Uploads.Save(p.Definition); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, persona.ErrVersionExists) {
				status = http.StatusConflict
			}
			respondError(w, status, err)
			return
		}
	}

	warnings := make([]string, len(p.Warnings))
	for i, wn := range p.Warnings {
		warnings[i] = wn.String()
	}
	srv.logger.Info("persona uploaded",
		slog.String("persona", p.Config.ID),
		slog.String("version", p.Definition.Version),
		slog.String("hash", p.Hash),
	)
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":       p.Config.ID,
		"version":  p.Definition.Version,
		"hash":     p.Hash,
		"warnings": warnings,
	})
}

// protectedPersona reports whether an upload may not replace id: built-in
// and bound personas, and anything registered outside the library.
func (srv *Server) protectedPersona(id string) bool {
	if srv.library.Protected(id) {
		return true
	}
	if _, ok := srv.registry.Config(id); !ok {
		return false
	}
	_, compiled := srv.library.Get(id)
	return !compiled
}

func (srv *Server) handlePersonaVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := srv.registry.Config(id); !ok {
		respondError(w, http.StatusNotFound, fmt.Errorf("%w: %s", jaat.ErrUnknownPersona, id))
		return
	}
	versions := []string{}
	if srv.opts.Uploads != nil {
		v, err := srv.opts.Uploads.ListVersions(id)
		if err != nil && !errors.Is(err, persona.ErrNotFound) {
			respondError(w, http.StatusInternalServerError, err)
			return
		}
		if v != nil {
			versions = v
		}
	}
	current := ""
	if p, ok := srv.library.Get(id); ok {
		current = p.Definition.Version
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "current": current, "versions": versions})
}
