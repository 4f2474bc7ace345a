package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	jaat "github.com/cyberFlowTech/jaat-agents-sdk-go"
	"github.com/cyberFlowTech/jaat-agents-sdk-go/export"
)

var errNothingToExport = errors.New("no messages and no conversation to export")

// ExportRequest is the body of POST /api/export/{format}. Without
// messages the conversation of PersonaID (or of the session's current
// persona) is exported.
type ExportRequest struct {
	PersonaID string            `json:"personaId,omitempty"`
	Title     string            `json:"title,omitempty"`
	Messages  []export.Message  `json:"messages,omitempty"`
	FileName  string            `json:"fileName,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
	Options   map[string]any    `json:"options,omitempty"` // pdf option overrides
}

func (srv *Server) handleExportFormats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, export.Formats)
}

func (srv *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.Format(chi.URLParam(r, "format"))
	if _, ok := export.Lookup(format); !ok {
		respondError(w, http.StatusBadRequest, fmt.Errorf("%w: %s", export.ErrUnsupportedFormat, format))
		return
	}
	var req ExportRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	s := sessionFrom(r.Context())
	msgs, name, err := srv.exportSource(s, req)
	if err != nil {
		respondError(w, errorStatus(err), err)
		return
	}
	meta := export.Metadata{Title: req.Title, Date: srv.now(), AIMode: name, Extra: req.Extra}
	if meta.Title == "" && name != "" {
		meta.Title = "Conversation with " + name
	}

	var f *export.File
	if format == export.FormatPDF {
		overrides := jaat.MergeMaps(s.pdf.Model().Snapshot(), req.Options)
		if req.FileName != "" {
			overrides["defaultFileName"] = req.FileName
		}
		f, err = s.exporter.ExportPDF(r.Context(), msgs, overrides)
	} else {
		f, err = s.exporter.Export(r.Context(), msgs, format, meta, req.FileName)
	}
	if err != nil {
		respondError(w, errorStatus(err), err)
		return
	}
	writeFile(w, f)
}

// exportSource picks the messages to export and the persona name they
// belong to.
func (srv *Server) exportSource(s *session, req ExportRequest) ([]export.Message, string, error) {
	id := req.PersonaID
	if id == "" {
		id = s.persona.Load()
	}
	name := ""
	if id != "" {
		if cfg, ok := srv.registry.Config(id); ok {
			name = cfg.Name
		}
	}
	if len(req.Messages) > 0 {
		return req.Messages, name, nil
	}
	if id == "" {
		return nil, "", errNothingToExport
	}
	m, err := srv.registry.Mode(s.id, id)
	if err != nil {
		return nil, "", err
	}
	return export.FromHistory(m.History()), name, nil
}

func writeFile(w http.ResponseWriter, f *export.File) {
	w.Header().Set("Content-Type", f.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(f.Data)
}

func (srv *Server) handleExportPanel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionFrom(r.Context()).pdf.Panel().Render())
}

func (srv *Server) handleExportPanelChange(w http.ResponseWriter, r *http.Request) {
	changePanel(w, r, sessionFrom(r.Context()).pdf.Panel())
}

// handleExportLast downloads the last file exported from the PDF panel.
func (srv *Server) handleExportLast(w http.ResponseWriter, r *http.Request) {
	f := sessionFrom(r.Context()).pdf.Last()
	if f == nil {
		respondError(w, http.StatusNotFound, errors.New("nothing exported yet"))
		return
	}
	writeFile(w, f)
}
