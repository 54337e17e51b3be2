package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"

	"github.com/congo-pay/walletsync/internal/categorize"
	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/ingest"
	"github.com/congo-pay/walletsync/internal/ledger"
	"github.com/congo-pay/walletsync/internal/logging"
	"github.com/congo-pay/walletsync/internal/wallet"
)

// Result statuses.
const (
	StatusSuccess   = "success"
	StatusNoWallets = "no_wallets"
)

// ErrMalformedEvent is returned when the event body cannot be decoded.
var ErrMalformedEvent = errors.New("malformed webhook event")

// Result summarizes one delivery.
type Result struct {
	Status     string `json:"status"`
	Processed  int    `json:"processed"`
	Duplicates int    `json:"duplicates"`
	Ignored    int    `json:"ignored"`
	Errors     int    `json:"errors"`
}

// Service applies pushed chain activity to the ledger.
type Service struct {
	resolver wallet.Resolver
	recorder *ingest.Recorder
	logger   *slog.Logger
}

// NewService constructs a webhook service.
func NewService(resolver wallet.Resolver, recorder *ingest.Recorder, logger *slog.Logger) *Service {
	return &Service{resolver: resolver, recorder: recorder, logger: logging.Component(logger, "webhook")}
}

// OnChainEvent handles one decoded delivery. Transfers whose recipient is not a
// bound wallet are ignored; the rest go through the shared apply routine.
func (s *Service) OnChainEvent(ctx context.Context, env Envelope) (Result, error) {
	if env.Type != TypeAddressActivity {
		s.logger.Info("ignoring webhook event", slog.String("type", env.Type), slog.String("id", env.ID))
		return Result{Status: StatusSuccess}, nil
	}

	var event AddressActivityEvent
	if len(env.Event) == 0 {
		return Result{}, ErrMalformedEvent
	}
	if err := sonic.Unmarshal(env.Event, &event); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	res := Result{Status: StatusSuccess}
	network, ok := resolveNetwork(event.Network)
	if !ok {
		s.logger.Warn("webhook for unsupported network", slog.String("network", event.Network), slog.String("id", env.ID))
		res.Ignored = len(event.Activity)
		return res, nil
	}
	occurredAt, _ := time.Parse(time.RFC3339Nano, env.CreatedAt)

	matched := 0
	for _, activity := range event.Activity {
		recipient := chain.NormalizeAddress(activity.ToAddress)
		userID, err := s.resolver.Resolve(ctx, recipient)
		if errors.Is(err, wallet.ErrNotBound) || recipient == "" {
			res.Ignored++
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("resolve recipient: %w", err)
		}
		matched++

		records := categorize.Incoming(categorize.Categorize(activity.toChainActivity(), network, recipient))
		if len(records) == 0 {
			res.Ignored++
			continue
		}
		for _, rec := range records {
			rec.UserID = userID
			rec.Source = ledger.SourceWebhook
			if rec.OccurredAt.IsZero() {
				rec.OccurredAt = occurredAt.UTC()
			}
			outcome, err := s.recorder.Apply(ctx, rec)
			if err != nil {
				res.Errors++
				s.logger.Error("apply webhook transfer failed", slog.String("tx_hash", rec.Hash), slog.Any("error", err))
				continue
			}
			switch outcome {
			case ingest.OutcomeSaved:
				res.Processed++
			case ingest.OutcomeDuplicate:
				res.Duplicates++
			default:
				res.Ignored++
			}
		}
	}

	if matched == 0 {
		res.Status = StatusNoWallets
	}
	return res, nil
}
