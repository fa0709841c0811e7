package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/marketsignal/decisionengine/internal/errcat"
	"github.com/marketsignal/decisionengine/internal/orchestrator"
	"github.com/marketsignal/decisionengine/internal/router"
)

// WebhookHandler adapts an inbound TradingView-style webhook delivery
// into an Orchestrator.ProcessWebhook call: read body, authenticate,
// decode, dispatch, respond. The five source-specific routes all share
// this one handler — the Source Router (C3) classifies the payload,
// not the URL.
type WebhookHandler struct {
	orch          *orchestrator.Orchestrator
	auth          router.AuthConfig
	engineVersion string
}

func NewWebhookHandler(orch *orchestrator.Orchestrator, auth router.AuthConfig, engineVersion string) *WebhookHandler {
	return &WebhookHandler{orch: orch, auth: auth, engineVersion: engineVersion}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, h.engineVersion, errcat.Wrap(errcat.KindInvalidJSON, "failed to read request body", err))
		return
	}

	if err := router.Authenticate(h.auth, body, r.Header.Get("X-Signature"), r.Header.Get("Authorization")); err != nil {
		writeError(w, h.engineVersion, errcat.Wrap(errcat.KindAuthenticationFailed, "webhook authentication failed", err))
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, h.engineVersion, errcat.Wrap(errcat.KindInvalidJSON, "request body is not valid JSON", err))
		return
	}

	resp, err := h.orch.ProcessWebhook(r.Context(), payload)
	if err != nil {
		writeError(w, h.engineVersion, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
