// Package ingest holds the single routine that applies a categorized chain
// transfer to the ledger. Both the poll and push paths go through it.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/walletsync/internal/ledger"
	"github.com/congo-pay/walletsync/internal/logging"
	"github.com/congo-pay/walletsync/internal/metrics"
	"github.com/congo-pay/walletsync/internal/notification"
)

// Outcome is the result of applying one record.
type Outcome string

const (
	OutcomeSaved     Outcome = "saved"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
)

// Recorder applies records to the ledger and announces credited deposits.
type Recorder struct {
	ledger   ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewRecorder constructs a recorder. notifier may be nil.
func NewRecorder(l ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Recorder {
	return &Recorder{ledger: l, notifier: notifier, logger: logging.Component(logger, "ingest")}
}

// Apply records rec and credits its balance unless it already exists. Outgoing
// records are skipped. A duplicate is reported as an outcome, never an error.
func (r *Recorder) Apply(ctx context.Context, rec ledger.TransactionRecord) (Outcome, error) {
	source := rec.Source
	if source == "" {
		source = "unknown"
	}

	if rec.Direction != ledger.DirectionIn {
		metrics.RecordsApplied.WithLabelValues(source, string(OutcomeSkipped)).Inc()
		return OutcomeSkipped, nil
	}

	exists, err := r.ledger.HasTransaction(ctx, rec.Hash, rec.UserID)
	if err != nil {
		metrics.RecordsApplied.WithLabelValues(source, "error").Inc()
		return "", fmt.Errorf("check transaction %s: %w", rec.Hash, err)
	}
	if exists {
		metrics.RecordsApplied.WithLabelValues(source, string(OutcomeDuplicate)).Inc()
		return OutcomeDuplicate, nil
	}

	agg, err := r.ledger.Record(ctx, rec)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateTransaction) {
			metrics.RecordsApplied.WithLabelValues(source, string(OutcomeDuplicate)).Inc()
			return OutcomeDuplicate, nil
		}
		metrics.RecordsApplied.WithLabelValues(source, "error").Inc()
		return "", fmt.Errorf("record transaction %s: %w", rec.Hash, err)
	}
	metrics.RecordsApplied.WithLabelValues(source, string(OutcomeSaved)).Inc()

	r.logger.Info("deposit credited",
		slog.String("user_id", rec.UserID),
		slog.String("tx_hash", rec.Hash),
		slog.String("network", rec.Network),
		slog.String("symbol", rec.TokenSymbol),
		slog.String("amount", rec.Amount.String()),
		slog.String("source", source),
		slog.String("request_id", logging.RequestID(ctx)),
	)

	if r.notifier != nil {
		msg := notification.Message{
			Kind:        notification.KindDepositCredited,
			Destination: rec.UserID,
			Body:        fmt.Sprintf("You received %s %s on %s", rec.Amount.String(), rec.TokenSymbol, rec.Network),
			Data: map[string]string{
				"transactionHash": rec.Hash,
				"balance":         agg.Balance.String(),
				"network":         rec.Network,
				"tokenSymbol":     rec.TokenSymbol,
			},
		}
		if err := r.notifier.Send(ctx, msg); err != nil {
			r.logger.Warn("deposit notification failed", slog.String("tx_hash", rec.Hash), slog.Any("error", err))
		}
	}
	return OutcomeSaved, nil
}
