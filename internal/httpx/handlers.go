package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Veysel440/go-etracker/internal/core"
	"github.com/Veysel440/go-etracker/internal/service"
)

const maxBodyBytes = 1 << 20

type handlers struct {
	deps Deps
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ping != nil {
		if err := h.deps.Ping(r.Context()); err != nil {
			h.deps.Logger.Warn("health_ping_failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "time": time.Now().UTC()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := service.SearchCriteria{
		Hostname:      q.Get("hostname"),
		ReferenceCode: q.Get("reference_code"),
		OwnedBy:       q.Get("owned_by"),
		ManagedBy:     q.Get("managed_by"),
		GVP:           q.Get("gvp"),
		Application:   q.Get("application"),
	}
	limit := queryInt64(q.Get("limit"), 0)
	skip := queryInt64(q.Get("skip"), 0)

	res, err := h.deps.Inventory.Search(r.Context(), c, limit, skip)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if res.Items == nil {
		res.Items = []core.InventoryDocument{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.deps.Inventory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": doc, "stats": doc.Stats()})
}

func (h *handlers) choices(w http.ResponseWriter, r *http.Request) {
	out, err := h.deps.Inventory.Choices(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "group"), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"choices": out})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.deps.Inventory.History(r.Context(), service.HistoryFilter{
		DocumentID: chi.URLParam(r, "id"),
		ItemKey:    q.Get("item"),
		Limit:      queryInt64(q.Get("limit"), 0),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if out == nil {
		out = []core.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *handlers) updateItem(w http.ResponseWriter, r *http.Request) {
	var in service.UpdatePayload
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := h.deps.Engine.UpdateItem(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "group"), chi.URLParam(r, "key"),
		in, actorFrom(r.Context()))
	if err != nil && !errors.Is(err, service.ErrAudit) {
		h.fail(w, r, err)
		return
	}
	if err != nil {
		// the write stands; surface the audit gap to the caller
		w.Header().Set("X-Audit-Status", "failed")
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) reports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window := max(1, queryInt(q.Get("expiring_window"), h.deps.ExpiringWindowDays))
	limit := max(10, queryInt(q.Get("unenforced_limit"), h.deps.UnenforcedLimit))

	rep, err := h.deps.Reports.Compile(r.Context(), window, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, service.ErrValidation) && !errors.Is(err, service.ErrNotFound) {
		h.deps.Logger.Error("request_failed", "id", requestID(r.Context()), "p", r.URL.Path, "err", err)
	}
	writeServiceErr(w, err)
}

func queryInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryInt64(v string, def int64) int64 {
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
