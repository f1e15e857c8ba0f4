package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/tartampluch/go-birthday-tracker/internal/store"
	"github.com/tartampluch/go-birthday-tracker/internal/view"
)

// Service is what the JSON API needs from the application.
type Service interface {
	// Page enriches the current records against a single "today" and localizes
	// them for the first supported language in prefs.
	Page(ctx context.Context, prefs ...string) (view.Page, error)
	Add(ctx context.Context, d store.Draft) (store.Entry, error)
	Update(ctx context.Context, id string, d store.Draft) (store.Entry, error)
	Delete(ctx context.Context, id string) error
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *CalendarServer) handleList(w http.ResponseWriter, r *http.Request) {
	page, err := s.api.Page(r.Context(), r.URL.Query().Get(config.QueryLang), r.Header.Get(config.HeaderAcceptLanguage))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(config.HeaderCacheControl, config.CacheControlNoStore)
	writeJSON(w, http.StatusOK, page)
}

func (s *CalendarServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	e, err := s.api.Add(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(config.HeaderLocation, config.RouteBirthdays+"/"+e.ID)
	writeJSON(w, http.StatusCreated, e)
}

func (s *CalendarServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	d, ok := decodeDraft(w, r)
	if !ok {
		return
	}
	e, err := s.api.Update(r.Context(), chi.URLParam(r, config.URLParamID), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *CalendarServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.api.Delete(r.Context(), chi.URLParam(r, config.URLParamID)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (store.Draft, bool) {
	var d store.Draft
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, config.MaxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: config.ErrDecodeBody})
		return d, false
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set(config.HeaderContentType, config.MimeJSON)
	w.WriteHeader(status)
	// Headers are already sent; an encoding error cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// writeError maps store errors to HTTP statuses. Validation messages are safe to
// return; anything unexpected is logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrInvalidRecord):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrDuplicateID):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.Error(config.MsgRequestFailed,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyMethod, r.Method,
			config.LogKeyPath, r.URL.Path,
			config.LogKeyError, err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: config.HTTPMsgInternalErr})
	}
}
