package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/oyvindstegard/ox-tagfilter/internal/collect"
	"github.com/oyvindstegard/ox-tagfilter/internal/filter"
	"github.com/oyvindstegard/ox-tagfilter/internal/outline"
	"github.com/oyvindstegard/ox-tagfilter/internal/session"
)

// handleUpload loads an exported document into the registry and opens
// its filter session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	var (
		data []byte
		name string
		err  error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		name = sanitizeFilename(header.Filename)
		data, err = io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
		if err != nil {
			jsonError(w, "failed to read file", http.StatusInternalServerError)
			return
		}
	} else {
		name = sanitizeFilename(r.URL.Query().Get("name"))
		if name == "" {
			jsonError(w, "name query parameter is required", http.StatusBadRequest)
			return
		}
		data, err = io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
		if err != nil {
			jsonError(w, "failed to read body", http.StatusInternalServerError)
			return
		}
	}

	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if !outline.IsSupported(name) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(name)), http.StatusBadRequest)
		return
	}

	doc, err := outline.Load(bytes.NewReader(data), name)
	if err != nil {
		jsonError(w, "failed to build outline: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sess := session.Open(r.Context(), doc, session.Options{
		Store:          s.store,
		Key:            name,
		Log:            s.log,
		DebounceWindow: s.cfg.DebounceWindow,
	})

	e := &Entry{
		ID:       DocID(data),
		Name:     name,
		Session:  sess,
		LoadedAt: time.Now(),
	}
	s.reg.Put(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(docResponse(e))
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	entries := s.reg.List()
	docs := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, map[string]any{
			"doc_id": e.ID,
			"name":   e.Name,
			"title":  e.Session.Document().Title,
			"pinned": e.Pinned,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	e := s.reg.Get(chi.URLParam(r, "docID"))
	if e == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(docResponse(e))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !s.reg.Delete(chi.URLParam(r, "docID")) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// filterRequest is the body of POST .../filter.
type filterRequest struct {
	Tags   []string `json:"tags"`
	Search string   `json:"search"`
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	e := s.reg.Get(chi.URLParam(r, "docID"))
	if e == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res := e.Session.SetSelection(r.Context(), req.Tags, req.Search)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(filterResponse(e, res))
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	e := s.reg.Get(chi.URLParam(r, "docID"))
	if e == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	res := e.Session.Result()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := outline.Render(e.Session.Document(), res.Visible, w); err != nil {
		s.log.Error("render failed", "doc", e.Name, "error", err)
	}
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	e := s.reg.Get(chi.URLParam(r, "docID"))
	if e == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tags": e.Session.State().SortedTags(),
	})
}

func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	e := s.reg.Get(chi.URLParam(r, "docID"))
	if e == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res := e.Session.SetSelection(r.Context(), req.Tags, e.Session.State().Search)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(filterResponse(e, res))
}

func docResponse(e *Entry) map[string]any {
	sess := e.Session
	return map[string]any{
		"doc_id":    e.ID,
		"name":      e.Name,
		"title":     sess.Document().Title,
		"tags":      sess.Metadata().Universe,
		"selection": sess.State().SortedTags(),
		"reset":     sess.WasReset(),
	}
}

func filterResponse(e *Entry, res *filter.Result) map[string]any {
	sess := e.Session
	doc := sess.Document()

	matches := make([]map[string]any, 0, len(res.Matches))
	for _, h := range res.Matches {
		matches = append(matches, map[string]any{
			"id":    int(h),
			"title": collect.OwnText(doc, h),
		})
	}

	hidden := 0
	for _, v := range res.Visible {
		if !v {
			hidden++
		}
	}

	var reachable []string
	if res.Filtered {
		reachable = make([]string, 0, len(res.Reachable))
		for t := range res.Reachable {
			reachable = append(reachable, t)
		}
	}

	return map[string]any{
		"filtered":  res.Filtered,
		"reset":     sess.WasReset(),
		"selection": sess.State().SortedTags(),
		"reachable": sortStrings(reachable),
		"matches":   matches,
		"hidden":    hidden,
	}
}

func sortStrings(s []string) []string {
	if s == nil {
		return nil
	}
	sort.Strings(s)
	return s
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// sanitizeFilename strips any path components from an upload name.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
