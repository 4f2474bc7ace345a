package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cyberFlowTech/jaat-agents-sdk-go/translate"
)

// TranslateRequest is the body of POST /api/translate. Empty fields keep
// the session's current choices. Without Send only the prompt is built.
type TranslateRequest struct {
	translate.Request
	Send bool `json:"send"`
}

// TranslateResponse reports the prompt and, when sent, the reply.
type TranslateResponse struct {
	Request    translate.Request `json:"request"`
	Prompt     string            `json:"prompt"`
	Reply      string            `json:"reply,omitempty"`
	TargetText string            `json:"targetText,omitempty"`
	Status     string            `json:"status,omitempty"`
}

func (srv *Server) handleTranslateCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"languages":   translate.Languages,
		"types":       translate.Types,
		"formalities": translate.Formalities,
		"factors":     translate.Factors,
		"tips":        translate.Tips,
		"starters":    translate.Starters,
	})
}

// applyTranslateRequest moves the body's choices into the session.
func applyTranslateRequest(t *translate.Session, req translate.Request) error {
	st := t.Settings()
	source, target := st.SourceLanguage, st.TargetLanguage
	if req.SourceLanguage != "" {
		source = req.SourceLanguage
	}
	if req.TargetLanguage != "" {
		target = req.TargetLanguage
	}
	if source != st.SourceLanguage || target != st.TargetLanguage {
		if err := t.SetLanguages(source, target); err != nil {
			return err
		}
	}
	if req.Type != "" {
		if err := t.SetType(req.Type); err != nil {
			return err
		}
	}
	if req.Formality != "" {
		if err := t.SetFormality(req.Formality); err != nil {
			return err
		}
	}
	if req.Text != "" {
		t.SetSourceText(req.Text)
	}
	return nil
}

func (srv *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	t := sessionFrom(r.Context()).translate
	if err := applyTranslateRequest(t, req.Request); err != nil {
		respondError(w, errorStatus(err), err)
		return
	}

	current := t.Request()
	if !req.Send {
		prompt, err := current.Prompt()
		if err != nil {
			respondError(w, errorStatus(err), err)
			return
		}
		respondJSON(w, http.StatusOK, TranslateResponse{Request: current, Prompt: prompt, Status: t.Status()})
		return
	}

	res, err := t.Translate(r.Context())
	if err != nil {
		status := errorStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		respondError(w, status, err)
		return
	}
	respondJSON(w, http.StatusOK, TranslateResponse{
		Request:    current,
		Prompt:     res.Prompt,
		Reply:      res.Reply,
		TargetText: t.TargetText(),
		Status:     t.Status(),
	})
}

func (srv *Server) handleTranslateSwap(w http.ResponseWriter, r *http.Request) {
	t := sessionFrom(r.Context()).translate
	swapped := t.Swap()
	respondJSON(w, http.StatusOK, map[string]any{
		"swapped":    swapped,
		"settings":   t.Settings(),
		"sourceText": t.SourceText(),
		"targetText": t.TargetText(),
	})
}

func (srv *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	list := sessionFrom(r.Context()).translate.SavedList()
	if list == nil {
		list = []translate.Saved{}
	}
	respondJSON(w, http.StatusOK, list)
}

// SaveRequest optionally records the pair to save before saving it.
type SaveRequest struct {
	SourceText string `json:"sourceText,omitempty"`
	TargetText string `json:"targetText,omitempty"`
}

func (srv *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	t := sessionFrom(r.Context()).translate
	if req.SourceText != "" {
		t.SetSourceText(req.SourceText)
	}
	if req.TargetText != "" {
		t.SetTargetText(req.TargetText)
	}
	item, err := t.Save()
	if err != nil {
		respondError(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func savedID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tid"), 10, 64)
	if err != nil {
		return 0, errors.New("invalid saved translation id")
	}
	return id, nil
}

func (srv *Server) handleLoadSaved(w http.ResponseWriter, r *http.Request) {
	id, err := savedID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	t := sessionFrom(r.Context()).translate
	if err := t.LoadSaved(id); err != nil {
		respondError(w, errorStatus(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"settings":   t.Settings(),
		"sourceText": t.SourceText(),
		"targetText": t.TargetText(),
		"status":     t.Status(),
	})
}

func (srv *Server) handleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	id, err := savedID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if !sessionFrom(r.Context()).translate.DeleteSaved(id) {
		respondError(w, http.StatusNotFound, translate.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleClearSaved(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r.Context()).translate.ClearSaved()
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleTranslatePanel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r.Context()).translate.Panel().Render())
}

func (srv *Server) handleTranslatePanelChange(w http.ResponseWriter, r *http.Request) {
	changePanel(w, r, sessionFrom(r.Context()).translate.Panel())
}
