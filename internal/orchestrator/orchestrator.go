// Package orchestrator wires C1-C9 end-to-end for each webhook
// request (C10): route, merge, build context, fetch market data,
// decide, apply conservative bias, ledger, and (on EXECUTE) publish an
// outbound intent.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/contextstore"
	"github.com/marketsignal/decisionengine/internal/decision"
	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
	"github.com/marketsignal/decisionengine/internal/ledger"
	"github.com/marketsignal/decisionengine/internal/marketcontext"
	"github.com/marketsignal/decisionengine/internal/metrics"
	"github.com/marketsignal/decisionengine/internal/router"
	"github.com/marketsignal/decisionengine/internal/webhookreceipt"
)

// IntentPublisher is the narrow interface to the paper-trading
// collaborator: out of scope per spec, so only a publish hook is
// specified here. Swap in a real HTTP-backed implementation in
// production; PublishIntent is always invoked fire-and-forget and its
// error is logged, never propagated to the webhook response.
type IntentPublisher interface {
	PublishIntent(ctx context.Context, packet types.DecisionPacket) error
}

// LoggingIntentPublisher is the default IntentPublisher: it only logs.
// Useful for decision-only deployments and tests.
type LoggingIntentPublisher struct{}

func (LoggingIntentPublisher) PublishIntent(_ context.Context, packet types.DecisionPacket) error {
	log.Info().
		Str("symbol", packet.InputContext.Symbol).
		Str("direction", string(*packet.Direction)).
		Float64("size_multiplier", packet.FinalSizeMultiplier).
		Msg("orchestrator: outbound EXECUTE intent (logging publisher, no downstream wired)")
	return nil
}

// Response is the wire shape of ProcessWebhook's success path, per
// spec §4.9.
type Response struct {
	Success        bool                  `json:"success"`
	Message        string                `json:"message"`
	Decision       *types.DecisionPacket `json:"decision,omitempty"`
	ProcessingTime time.Duration         `json:"processingTime"`
}

// Deps bundles the Orchestrator's collaborators. Webhook authentication
// is an HTTP-layer concern (see internal/router.Authenticate) and is
// not part of this pipeline.
type Deps struct {
	Cfg          *config.Engine
	Store        *contextstore.Store
	Builder      *marketcontext.Builder
	Engine       *decision.Engine
	Ledger       ledger.Ledger
	Metrics      *metrics.Registry
	Intents      IntentPublisher
	Receipts     webhookreceipt.Recorder
	DecisionOnly bool // ENGINE_MODE=test: suppress step 9's outbound intent
}

// Orchestrator runs the ten-step webhook pipeline of spec §4.9.
type Orchestrator struct {
	cfg          *config.Engine
	store        *contextstore.Store
	builder      *marketcontext.Builder
	engine       *decision.Engine
	ledger       ledger.Ledger
	metrics      *metrics.Registry
	intents      IntentPublisher
	receipts     webhookreceipt.Recorder
	decisionOnly bool
	now          func() time.Time
}

func New(deps Deps) *Orchestrator {
	intents := deps.Intents
	if intents == nil {
		intents = LoggingIntentPublisher{}
	}
	receipts := deps.Receipts
	if receipts == nil {
		receipts = noopReceiptRecorder{}
	}
	return &Orchestrator{
		cfg:          deps.Cfg,
		store:        deps.Store,
		builder:      deps.Builder,
		engine:       deps.Engine,
		ledger:       deps.Ledger,
		metrics:      deps.Metrics,
		intents:      intents,
		receipts:     receipts,
		decisionOnly: deps.DecisionOnly,
		now:          time.Now,
	}
}

// noopReceiptRecorder discards receipts: the default when no Recorder
// is configured, so the audit trail is strictly additive.
type noopReceiptRecorder struct{}

func (noopReceiptRecorder) Record(_ context.Context, r webhookreceipt.Receipt) (*webhookreceipt.Receipt, error) {
	return &r, nil
}
func (noopReceiptRecorder) Recent(_ context.Context, _ int) ([]webhookreceipt.Receipt, error) {
	return nil, nil
}

// ProcessWebhook runs the full pipeline for one inbound webhook
// delivery. raw is the parsed JSON body. A non-nil error is only
// returned for conditions the HTTP layer must map to a 4xx/5xx status
// (routing/schema failure, race-condition context-build failure); all
// other outcomes — including "waiting on more sources" and a completed
// SKIP/WAIT/EXECUTE decision — are reported via Response with
// Success=true.
func (o *Orchestrator) ProcessWebhook(ctx context.Context, raw map[string]any) (*Response, error) {
	start := o.now()

	// Step 2: route + normalize.
	routeTimer := o.metrics.StartStep("route")
	routed, err := router.Route(raw)
	if err != nil {
		routeTimer.Stop("error")
		kind := errKind(err)
		o.metrics.RecordWebhookRejected("unclassified", string(kind))
		o.recordReceipt(ctx, types.SourceUnknown, rawSymbol(raw), raw, string(kind))
		return nil, err
	}
	routeTimer.Stop("ok")
	o.metrics.RecordWebhook(string(routed.Source))

	symbol := routed.Normalized.Instrument.Symbol
	receipt := o.recordReceipt(ctx, routed.Source, symbol, raw, "")

	// Step 3: merge into the Context Store.
	if err := o.store.Update(symbol, routed.Normalized, routed.Source); err != nil {
		o.metrics.RecordWebhookRejected(string(routed.Source), string(errcat.KindRuleViolation))
		return nil, errcat.Wrap(errcat.KindRuleViolation, "context store merge rejected", err)
	}
	if !o.store.IsComplete(symbol) {
		return &Response{
			Success:        true,
			Message:        "context updated, waiting",
			ProcessingTime: o.now().Sub(start),
		}, nil
	}

	// Step 4: materialize the Decision Context.
	dc, ok := o.store.Build(symbol, o.cfg.Hash())
	if !ok {
		return nil, errcat.New(errcat.KindIncompleteContext, "context expired between completeness check and build")
	}

	// Step 5: fetch Market Context (internal provider fan-out).
	marketTimer := o.metrics.StartStep("market_context")
	mc, err := o.builder.BuildContext(ctx, symbol)
	if err != nil {
		marketTimer.Stop("error")
		return nil, errcat.Wrap(errcat.KindNetworkError, "market context build failed", err)
	}
	marketTimer.Stop("ok")

	// Step 6: Decision Engine.
	decisionTimer := o.metrics.StartStep("decision")
	packet := o.engine.MakeDecision(*dc, *mc)
	decisionTimer.Stop("ok")
	recordGates(o.metrics, packet.GateResults)

	// Step 7: Error Handler conservative bias.
	level := errcat.Classify(mc.Completeness, o.cfg.Degradation)
	errcat.ApplyConservativeBias(&packet, level, o.cfg.Degradation)
	o.metrics.SetDegradationLevel(symbol, metrics.DegradationLevelValue(level))
	o.metrics.RecordDecision(string(packet.Action))

	// Step 8: ledger append, never fails the response.
	o.appendLedger(ctx, dc, packet, receipt)

	// Step 9: fire-and-forget outbound intent on EXECUTE.
	if packet.Action == types.ActionExecute && !o.decisionOnly {
		go o.publishIntent(packet)
	}

	// Step 10: return packet and processing time.
	return &Response{
		Success:        true,
		Message:        "decision produced",
		Decision:       &packet,
		ProcessingTime: o.now().Sub(start),
	}, nil
}

func (o *Orchestrator) appendLedger(ctx context.Context, dc *types.DecisionContext, packet types.DecisionPacket, receipt *webhookreceipt.Receipt) {
	ledgerTimer := o.metrics.StartStep("ledger_append")
	entry := types.LedgerEntry{
		EngineVersion:     packet.EngineVersion,
		Signal:            *dc,
		PhaseContext:      &dc.Regime,
		Decision:          packet.Action,
		DecisionReason:    joinReasons(packet.Reasons),
		DecisionBreakdown: o.decisionBreakdown(dc, packet),
		ConfluenceScore:   packet.ConfidenceScore,
		Regime:            dc.Regime,
		GateResults:       &packet.GateResults,
	}
	if receipt != nil {
		entry.ReceiptID = &receipt.ID
	}
	if packet.Action == types.ActionExecute && packet.Direction != nil {
		entry.Execution = &types.Execution{
			Direction:      *packet.Direction,
			SizeMultiplier: packet.FinalSizeMultiplier,
			EntryPrice:     dc.Instrument.Price,
		}
	}

	if _, err := o.ledger.Append(ctx, entry); err != nil {
		ledgerTimer.Stop("error")
		kind := errKind(err)
		o.metrics.RecordLedgerError("append", string(kind))
		log.Error().Err(err).Str("symbol", dc.Symbol).Msg("orchestrator: ledger append failed, continuing")
		return
	}
	ledgerTimer.Stop("ok")
}

func (o *Orchestrator) publishIntent(packet types.DecisionPacket) {
	intentCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	intentTimer := o.metrics.StartStep("outbound_intent")
	if err := o.intents.PublishIntent(intentCtx, packet); err != nil {
		intentTimer.Stop("error")
		log.Warn().Err(err).Str("symbol", packet.InputContext.Symbol).Msg("orchestrator: outbound intent publish failed")
		return
	}
	intentTimer.Stop("ok")
}

// recordReceipt persists an audit row for this delivery, best-effort:
// a recorder failure is logged and never propagated. Returns nil if
// the recorder itself failed, so appendLedger leaves ReceiptID unset
// rather than linking to a row that doesn't exist.
func (o *Orchestrator) recordReceipt(ctx context.Context, source types.Source, symbol string, raw map[string]any, errorKind string) *webhookreceipt.Receipt {
	receipt, err := o.receipts.Record(ctx, webhookreceipt.Receipt{
		Source:     source,
		Symbol:     symbol,
		RawPayload: router.Redact(raw),
		ErrorKind:  errorKind,
	})
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("orchestrator: webhook receipt recording failed")
		return nil
	}
	return receipt
}

// rawSymbol best-effort-extracts a symbol field from an unrouted
// payload, for the receipt trail of a delivery that failed routing.
func rawSymbol(raw map[string]any) string {
	if raw == nil {
		return ""
	}
	for _, key := range []string{"symbol", "ticker"} {
		if v, ok := raw[key].(string); ok {
			return v
		}
	}
	return ""
}

func recordGates(m *metrics.Registry, gates types.GateResults) {
	m.RecordGate("regime", gates.Regime.Passed)
	m.RecordGate("structural", gates.Structural.Passed)
	m.RecordGate("market", gates.Market.Passed)
}

func (o *Orchestrator) decisionBreakdown(dc *types.DecisionContext, packet types.DecisionPacket) types.DecisionBreakdown {
	if packet.Direction == nil {
		return types.DecisionBreakdown{ConfidenceRatio: packet.ConfidenceScore / 100}
	}
	return decision.Breakdown(*dc, packet.ConfidenceScore, *packet.Direction, o.cfg)
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}

func errKind(err error) errcat.Kind {
	var ce *errcat.Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return errcat.KindSchemaValidation
}
