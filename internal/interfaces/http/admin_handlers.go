package http

import (
	"net/http"
	"strconv"

	"github.com/marketsignal/decisionengine/internal/contextstore"
	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
	"github.com/marketsignal/decisionengine/internal/ledger"
	"github.com/marketsignal/decisionengine/internal/webhookreceipt"
)

// AdminHandlers serves the read-only admin API: ledger browsing and
// Context Store section reads. Every route is GET-only, mirroring the
// teacher's read-only server.go posture.
type AdminHandlers struct {
	ledger        ledger.Ledger
	store         *contextstore.Store
	receipts      webhookreceipt.Recorder
	engineVersion string
}

func NewAdminHandlers(l ledger.Ledger, store *contextstore.Store, receipts webhookreceipt.Recorder, engineVersion string) *AdminHandlers {
	return &AdminHandlers{ledger: l, store: store, receipts: receipts, engineVersion: engineVersion}
}

// Decisions serves GET /api/decisions?limit=&decision=&ticker=.
func (h *AdminHandlers) Decisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := types.QueryFilters{
		Decision: types.Action(q.Get("decision")),
		Ticker:   q.Get("ticker"),
		Limit:    atoiOrZero(q.Get("limit")),
	}

	entries, err := h.ledger.Query(r.Context(), filters)
	if err != nil {
		writeError(w, h.engineVersion, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"count":     len(entries),
		"decisions": entries,
	})
}

// PhaseCurrent serves GET /api/phase/current?symbol=.
func (h *AdminHandlers) PhaseCurrent(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, h.engineVersion, errcat.New(errcat.KindInvalidInput, "symbol query parameter is required"))
		return
	}

	snap, ok := h.store.Snapshot(symbol)
	if !ok || snap.Regime == nil {
		writeError(w, h.engineVersion, errcat.New(errcat.KindEntryNotFound, "no phase context recorded for symbol"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"symbol":  symbol,
		"phase":   snap.Regime,
	})
}

// TrendCurrent serves GET /api/trend/current?ticker=.
func (h *AdminHandlers) TrendCurrent(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		writeError(w, h.engineVersion, errcat.New(errcat.KindInvalidInput, "ticker query parameter is required"))
		return
	}

	snap, ok := h.store.Snapshot(ticker)
	if !ok || snap.Alignment == nil {
		writeError(w, h.engineVersion, errcat.New(errcat.KindEntryNotFound, "no trend/alignment context recorded for ticker"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"ticker":    ticker,
		"alignment": snap.Alignment,
	})
}

// WebhooksRecent serves GET /api/webhooks/recent?limit=.
func (h *AdminHandlers) WebhooksRecent(w http.ResponseWriter, r *http.Request) {
	limit := atoiOrZero(r.URL.Query().Get("limit"))
	receipts, err := h.receipts.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, h.engineVersion, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"count":    len(receipts),
		"webhooks": receipts,
	})
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
