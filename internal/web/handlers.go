package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/cubetab/internal/core"
	"github.com/JonMunkholm/cubetab/internal/cube"
	"github.com/JonMunkholm/cubetab/internal/export"
	"github.com/JonMunkholm/cubetab/internal/logging"
	"github.com/go-chi/chi/v5"
)

// paramPrefix marks query-string keys that carry data access parameters,
// e.g. paramstore=north.
const paramPrefix = "param"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"queries": s.service.Limiter().Status(),
	})
}

func (s *Server) handleListDataAccesses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ListDataAccesses())
}

func (s *Server) handleGetDataAccess(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.DataAccess(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, info)
}

// handleQuery runs a data access and writes the requested page in the
// requested output type.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	exp, err := export.ForFormat(q.Get("outputType"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	opts, err := parseQueryOptions(chi.URLParam(r, "id"), q)
	if err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.DoQuery(r.Context(), opts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", exp.ContentType())
	h.Set("X-Total-Rows", strconv.Itoa(res.TotalRows))
	h.Set("X-Cache", cacheStatus(res.Cached))
	switch exp.Name() {
	case "json", "html":
	default:
		filename := fmt.Sprintf("%s_%s%s", res.DataAccess.ID, time.Now().Format("20060102_150405"), exp.Extension())
		h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	}

	cw := &countingWriter{w: w}
	meta := export.Meta{
		Title:     res.DataAccess.Name,
		TotalRows: res.TotalRows,
		PageStart: res.PageStart,
		PageSize:  res.PageSize,
	}
	if err := exp.Export(r.Context(), cw, res.Table, meta); err != nil {
		if cw.n == 0 {
			h.Del("Content-Disposition")
			respondError(w, r, err)
			return
		}
		// Headers already sent.
		logging.FromContext(r.Context()).Error("export failed",
			"data_access", res.DataAccess.ID,
			"format", exp.Name(),
			"bytes_written", cw.n,
			"error", err,
		)
	}
}

func (s *Server) handleCacheInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.CacheInfos())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.service.ClearCache()
	logging.FromContext(r.Context()).Info("query cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCacheFor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := s.service.ClearCacheFor(id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("query cache cleared", "data_access", id, "entries_removed", n)
	writeJSON(w, map[string]int{"removed": n})
}

// parseQueryOptions reads paging, sorting and data access parameters from
// the query string.
func parseQueryOptions(id string, q url.Values) (core.QueryOptions, error) {
	opts := core.QueryOptions{DataAccessID: id}

	var err error
	if opts.PageStart, err = intParam(q, "pageStart"); err != nil {
		return opts, err
	}
	if opts.PageSize, err = intParam(q, "pageSize"); err != nil {
		return opts, err
	}
	if v := q.Get("bypassCache"); v != "" {
		if opts.BypassCache, err = strconv.ParseBool(v); err != nil {
			return opts, fmt.Errorf("%w: bypassCache=%q", cube.ErrInvalidParameter, v)
		}
	}

	for _, v := range q["sortBy"] {
		for _, entry := range strings.Split(v, ",") {
			if entry = strings.TrimSpace(entry); entry != "" {
				opts.SortBy = append(opts.SortBy, entry)
			}
		}
	}

	for key, values := range q {
		name, ok := strings.CutPrefix(key, paramPrefix)
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		if opts.Params == nil {
			opts.Params = make(map[string]string)
		}
		opts.Params[name] = values[len(values)-1]
	}
	return opts, nil
}

// intParam parses a non-negative integer; absent means 0.
func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: %s=%q must be a non-negative integer", cube.ErrInvalidParameter, name, v)
	}
	return i, nil
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

// countingWriter records how many bytes reached the client.
type countingWriter struct {
	w http.ResponseWriter
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
