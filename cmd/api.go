package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/recon-cli/internal/config"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/report"
	"github.com/sells-group/recon-cli/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// api serves persisted runs read-only.
type api struct {
	st store.Store
}

// buildRouter wires the HTTP API. Everything except /health is rate limited
// when sc.RateLimit is positive.
func buildRouter(st store.Store, sc config.ServerConfig) http.Handler {
	a := &api{st: st}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: sc.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if sc.RateLimit > 0 {
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(sc.RateLimit), max(sc.Burst, 1))))
		}
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", a.listRuns)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.getRun)
				r.Get("/records", a.listRecords)
				r.Get("/summary", a.summary)
				r.Get("/dashboard", a.dashboard)
			})
		})
	})

	return r
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.RunFilter

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	if s := q.Get("since"); s != "" {
		if filter.Since, err = time.Parse(time.RFC3339, s); err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
	}

	runs, err := a.st.ListRuns(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.st.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (a *api) listRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RecordFilter{
		RunID:    chi.URLParam(r, "id"),
		StoreID:  q.Get("store"),
		Supplier: q.Get("supplier"),
	}
	if d := q.Get("divergent"); d != "" {
		v, err := strconv.ParseBool(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "divergent must be a boolean")
			return
		}
		filter.DivergentOnly = v
	}

	// Unknown runs are a 404, not an empty list.
	if _, err := a.st.GetRun(r.Context(), filter.RunID); err != nil {
		a.fail(w, r, err)
		return
	}
	records, err := a.st.ListRecords(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *api) summary(w http.ResponseWriter, r *http.Request) {
	counts, err := a.st.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if counts == nil {
		counts = []model.StatusCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

// dashboard returns the divergence dashboard as JSON, or the full audit
// workbook with ?format=xlsx.
func (a *api) dashboard(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "xlsx" {
		writeError(w, http.StatusBadRequest, "format must be json or xlsx")
		return
	}

	if _, err := a.st.GetRun(r.Context(), runID); err != nil {
		a.fail(w, r, err)
		return
	}
	records, err := a.st.ListRecords(r.Context(), store.RecordFilter{RunID: runID, DivergentOnly: format != "xlsx"})
	if err != nil {
		a.fail(w, r, err)
		return
	}

	if format == "xlsx" {
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="auditoria_%s.xlsx"`, runID))
		if err := report.WriteWorkbook(w, records); err != nil {
			zap.L().Error("api: write workbook", zap.String("run_id", runID), zap.Error(err))
		}
		return
	}

	rows := report.Dashboard(records)
	if rows == nil {
		rows = []report.DashboardRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// fail maps store errors to HTTP statuses.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	zap.L().Error("api: request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// rateLimit rejects requests beyond the limiter's budget with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("api: invalid integer %q", s)
	}
	return n, nil
}
