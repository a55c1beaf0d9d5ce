package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopd/shopd/internal/audit"
)

type LogsHandler struct {
	Repo *audit.Repo
}

type logPageResp struct {
	Logs       []audit.Entry `json:"logs"`
	Pagination pageMeta      `json:"pagination"`
}

type pageMeta struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalLogs   int  `json:"totalLogs"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func (h *LogsHandler) Register(r *chi.Mux) {
	r.Get("/logs", h.list)
	r.Get("/logs/stats", h.stats)
	r.Get("/logs/user/{userId}", h.listForUser)
}

func (h *LogsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.Filter{
		UserID:        q.Get("userId"),
		EmailContains: q.Get("userEmail"),
	}
	if v := q.Get("success"); v != "" {
		b := v == "true"
		f.Success = &b
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			f.To = t
		}
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	logs, total, err := h.Repo.List(r.Context(), f, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logPageResp{Logs: logs, Pagination: meta(total, page, limit)})
}

func (h *LogsHandler) listForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	logs, total, err := h.Repo.ListForUser(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logPageResp{Logs: logs, Pagination: meta(total, page, limit)})
}

func (h *LogsHandler) stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Repo.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func meta(total, page, limit int) pageMeta {
	pages := (total + limit - 1) / limit
	return pageMeta{
		CurrentPage: page,
		TotalPages:  pages,
		TotalLogs:   total,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
}
