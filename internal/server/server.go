// Package server exposes open workbooks over a JSON HTTP API
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
	"github.com/Raniani-lab/enterpriise-sub000/packages/store"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// Server keeps open workbooks in memory and persists them on request
type Server struct {
	store    store.WorkbookStore
	logger   *slog.Logger
	registry *prometheus.Registry
	options  []model.Option

	mu        sync.Mutex
	workbooks map[string]*model.Model
}

type Option func(*Server)

// WithLogger sets the logger of the server and of the models it opens
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithModelOptions adds options used for every opened model
func WithModelOptions(opts ...model.Option) Option {
	return func(s *Server) {
		s.options = append(s.options, opts...)
	}
}

// New creates a server persisting to st
func New(st store.WorkbookStore, opts ...Option) *Server {
	s := &Server{
		store:     st,
		logger:    slog.Default(),
		registry:  prometheus.NewRegistry(),
		workbooks: make(map[string]*model.Model),
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics := model.NewMetrics(s.registry)
	s.options = append(s.options, model.WithLogger(s.logger), model.WithMetrics(metrics))
	return s
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/workbooks", func(r chi.Router) {
		r.Get("/", s.listWorkbooks)
		r.Get("/stored", s.listStored)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", s.openWorkbook)
			r.Delete("/", s.closeWorkbook)
			r.Get("/", s.exportWorkbook)
			r.Post("/save", s.saveWorkbook)
			r.Post("/restore", s.restoreWorkbook)
			r.Post("/dispatch", s.dispatch)
			r.Post("/undo", s.undo)
			r.Post("/redo", s.redo)
			r.Post("/evaluate", s.evaluate)
			r.Get("/sheets", s.listSheets)
			r.Get("/sheets/{sheet}/cells/{xc}", s.getCell)
			r.Get("/sheets/{sheet}/ranges/{xc}", s.getRange)
		})
	})
	return r
}

// Close closes every open workbook
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.workbooks {
		m.Close()
		delete(s.workbooks, id)
	}
}

func (s *Server) open(id string, data *model.WorkbookData) error {
	m, err := model.Load(data, s.options...)
	if err != nil {
		return err
	}
	s.mu.Lock()
	previous := s.workbooks[id]
	s.workbooks[id] = m
	s.mu.Unlock()
	if previous != nil {
		previous.Close()
	}
	return nil
}

func (s *Server) workbook(w http.ResponseWriter, r *http.Request) (*model.Model, bool) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	m, ok := s.workbooks[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, model.NewApplicationError(model.NotFound, fmt.Sprintf("workbook %q is not open", id)))
	}
	return m, ok
}

func (s *Server) listWorkbooks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.workbooks))
	for id := range s.workbooks {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) listStored(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// openWorkbook loads the workbook document of the body, of any known
// version. an empty body opens a blank workbook.
func (s *Server) openWorkbook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, model.NewApplicationError(model.InvalidArgument, "failed to read body"))
		return
	}
	data := model.NewWorkbookData()
	if len(raw) > 0 {
		if data, err = model.Migrate(raw); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := s.open(chi.URLParam(r, "id"), data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) closeWorkbook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	m, ok := s.workbooks[id]
	delete(s.workbooks, id)
	s.mu.Unlock()
	if ok {
		m.Close()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	m, ok := s.workbook(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.Export())
}

func (s *Server) saveWorkbook(w http.ResponseWriter, r *http.Request) {
	m, ok := s.workbook(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.Save(r.Context(), id, m.Export()); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("workbook saved", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) restoreWorkbook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := s.store.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.open(id, data); err != nil {
		writeError(w, err)
		return
	}
	s.logger.Info("workbook restored", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	m, ok := s.workbook(w, r)
	if !ok {
		return
	}
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, model.NewApplicationError(model.InvalidArgument, "invalid request body"))
		return
	}
	cmd, err := model.DecodeCommand(payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, m.Dispatch(cmd))
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.workbook(w, r); ok {
		writeResult(w, m.Dispatch(model.Undo{}))
	}
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.workbook(w, r); ok {
		writeResult(w, m.Dispatch(model.Redo{}))
	}
}

type evaluateRequest struct {
	SheetID string `json:"sheetId"`
	Formula string `json:"formula"`
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	m, ok := s.workbook(w, r)
	if !ok {
		return
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewApplicationError(model.InvalidArgument, "invalid request body"))
		return
	}
	if req.SheetID == "" {
		req.SheetID = m.Sheets()[0].ID
	}
	v, err := m.EvaluateFormula(req.SheetID, req.Formula)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"value": jsonValue(v)})
}

func (s *Server) listSheets(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.workbook(w, r); ok {
		writeJSON(w, http.StatusOK, m.Sheets())
	}
}

// sheetID accepts a sheet id or a sheet name
func sheetID(m *model.Model, ref string) string {
	if id, ok := m.SheetIDByName(ref); ok {
		return id
	}
	return ref
}

type cellResponse struct {
	Content string `json:"content"`
	Value   any    `json:"value"`
	Text    string `json:"text"`
	Style   string `json:"style,omitempty"`
}

func (s *Server) getCell(w http.ResponseWriter, r *http.Request) {
	m, ok := s.workbook(w, r)
	if !ok {
		return
	}
	sheet := sheetID(m, chi.URLParam(r, "sheet"))
	col, row, err := zone.ToCartesian(chi.URLParam(r, "xc"))
	if err != nil {
		writeError(w, model.NewApplicationError(model.InvalidArgument, err.Error()))
		return
	}
	// reading the range validates the sheet and the bounds
	if _, err := m.RangeValues(sheet, zone.ToXC(col, row)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cellResponse{
		Content: m.CellContent(sheet, col, row),
		Value:   jsonValue(m.CellValue(sheet, col, row)),
		Text:    m.CellText(sheet, col, row),
		Style:   m.CellStyle(sheet, col, row),
	})
}

type rangeResponse struct {
	Values [][]any    `json:"values"`
	Texts  [][]string `json:"texts"`
}

func (s *Server) getRange(w http.ResponseWriter, r *http.Request) {
	m, ok := s.workbook(w, r)
	if !ok {
		return
	}
	sheet := sheetID(m, chi.URLParam(r, "sheet"))
	xc := chi.URLParam(r, "xc")
	values, err := m.RangeValues(sheet, xc)
	if err != nil {
		writeError(w, err)
		return
	}
	texts, err := m.RangeFormattedValues(sheet, xc)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := rangeResponse{Values: make([][]any, len(values)), Texts: texts}
	for i, row := range values {
		resp.Values[i] = make([]any, len(row))
		for j, v := range row {
			resp.Values[i][j] = jsonValue(v)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// jsonValue renders errors and the loading marker by their displayed text
func jsonValue(v functions.Value) any {
	switch val := v.(type) {
	case *functions.EvaluationError:
		return map[string]string{"error": val.Display(), "message": val.Message}
	case fmt.Stringer:
		return val.String()
	}
	return v
}

func writeResult(w http.ResponseWriter, result model.CommandResult) {
	status := http.StatusOK
	if !result.IsSuccess() {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var appErr *model.AppError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	case errors.As(err, &appErr):
		status = httpStatus(appErr.Code)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func httpStatus(code model.AppErrorCode) int {
	switch code {
	case model.InvalidArgument:
		return http.StatusBadRequest
	case model.NotFound:
		return http.StatusNotFound
	case model.FailedPrecondition:
		return http.StatusConflict
	case model.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
