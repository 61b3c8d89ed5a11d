package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/example/maskedit/internal/drafts"
	"github.com/example/maskedit/internal/payload"
)

type maskResponse struct {
	Category drafts.Category `json:"category"`
	Mask     string          `json:"mask"`
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, drafts.ErrNotFound) {
		s.fail(w, r, http.StatusNotFound, "draft not found")
		return
	}
	s.log.Error("draft store", zap.Error(err))
	s.fail(w, r, http.StatusInternalServerError, "draft store unavailable")
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if list == nil {
		list = []drafts.Draft{}
	}
	render.JSON(w, r, list)
}

func (s *Server) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	render.JSON(w, r, d)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) category(w http.ResponseWriter, r *http.Request) (drafts.Category, bool) {
	c, err := drafts.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	return c, true
}

func (s *Server) handleGetMask(w http.ResponseWriter, r *http.Request) {
	c, ok := s.category(w, r)
	if !ok {
		return
	}
	v, found, err := s.store.GetMask(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if !found {
		s.fail(w, r, http.StatusNotFound, "no "+string(c)+" mask")
		return
	}
	render.JSON(w, r, maskResponse{Category: c, Mask: v})
}

// handlePutMask accepts the data URI either as a JSON {mask} body or as the
// raw request body.
func (s *Server) handlePutMask(w http.ResponseWriter, r *http.Request) {
	c, ok := s.category(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.fail(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	value := strings.TrimSpace(string(raw))
	if strings.HasPrefix(value, "{") {
		var body maskResponse
		if err := json.Unmarshal(raw, &body); err != nil {
			s.fail(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}
		value = body.Mask
	}
	uri, err := payload.ParseDataURI(value)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, "mask: "+err.Error())
		return
	}
	if err := s.store.SetMask(r.Context(), chi.URLParam(r, "id"), c, string(uri)); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteMask(w http.ResponseWriter, r *http.Request) {
	c, ok := s.category(w, r)
	if !ok {
		return
	}
	if err := s.store.SetMask(r.Context(), chi.URLParam(r, "id"), c, ""); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
