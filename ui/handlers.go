package ui

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"

	"sweepwatch/adapters/excel"
	"sweepwatch/app/view"
	"sweepwatch/domain/core"
	"sweepwatch/internal/render"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"DefaultDB": s.defaultDB}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.log.Errorw("render index", "error", err)
	}
}

type createSessionRequest struct {
	SourcePath string `json:"source_path"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if req.SourcePath == "" {
		req.SourcePath = s.defaultDB
	}

	session, err := s.sessions.Create(req.SourcePath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// inputsRequest is a partial update: only the fields present in the body
// are applied, in a fixed order, each triggering its own propagation pass.
type inputsRequest struct {
	SourcePath     *string  `json:"source_path"`
	RunID          *int     `json:"run_id"`
	Parameter      *string  `json:"parameter"`
	ShowImaginary  *bool    `json:"show_imaginary"`
	SliceAxis      *string  `json:"slice_axis"`
	SliceValue     *float64 `json:"slice_value"`
	RefreshEnabled *bool    `json:"refresh_enabled"`
}

func (s *Server) handleSetInputs(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var req inputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.SourcePath != nil {
		session.SetSource(*req.SourcePath)
	}
	if err := applyInputs(session, req); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if req.RefreshEnabled != nil {
		session.SetRefresh(*req.RefreshEnabled)
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func applyInputs(session *view.Session, req inputsRequest) error {
	if req.RunID != nil {
		if err := session.SetRunID(*req.RunID); err != nil {
			return err
		}
	}
	if req.Parameter != nil {
		if err := session.SetParameter(*req.Parameter); err != nil {
			return err
		}
	}
	if req.ShowImaginary != nil {
		if err := session.SetShowImaginary(*req.ShowImaginary); err != nil {
			return err
		}
	}
	if req.SliceAxis != nil {
		if err := session.SetSliceAxis(*req.SliceAxis); err != nil {
			return err
		}
	}
	if req.SliceValue != nil {
		if err := session.SetSliceValue(*req.SliceValue); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.Refresh(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Figure())
}

func (s *Server) handleSnapshotSVG(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	reduced, err := session.ReducedSeries()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	svg, err := render.LineSVG(reduced, 1000, 800)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

func (s *Server) handleTableXLSX(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	table, err := session.Table(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="run_table.xlsx"`)
	if err := excel.WriteTable(w, table); err != nil {
		s.log.Errorw("write xlsx", "error", err)
	}
}

// handleSummary serves the info panel as HTML rendered from the session's
// markdown summary.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	snap := session.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(markdown.ToHTML([]byte(snap.SummaryMarkdown), nil, nil))
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*view.Session, bool) {
	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return session, true
}

func statusFor(err error) int {
	switch {
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	case core.IsEmptyDataError(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
