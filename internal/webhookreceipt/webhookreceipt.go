// Package webhookreceipt records one audit row per inbound webhook
// delivery — the raw source, redacted payload, and classification
// outcome — independent of whether that delivery went on to produce a
// ledgered decision. A LedgerEntry's ReceiptID links back to the row
// recorded here, letting an operator trace a decision back to the
// original call.
package webhookreceipt

import (
	"context"
	"time"

	"github.com/marketsignal/decisionengine/internal/domain/types"
)

// Receipt is one audited webhook delivery. ErrorKind is empty for a
// delivery the Source Router classified successfully, and set to the
// rejecting *errcat.Kind otherwise.
type Receipt struct {
	ID         string         `json:"id" db:"id"`
	ReceivedAt time.Time      `json:"receivedAt" db:"received_at"`
	Source     types.Source   `json:"source" db:"source"`
	Symbol     string         `json:"symbol" db:"symbol"`
	RawPayload map[string]any `json:"rawPayload" db:"raw_payload"`
	ErrorKind  string         `json:"errorKind,omitempty" db:"error_kind"`
}

// Recorder persists webhook receipts and serves the admin
// recent-deliveries read.
type Recorder interface {
	Record(ctx context.Context, r Receipt) (*Receipt, error)
	Recent(ctx context.Context, limit int) ([]Receipt, error)
}
