package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/congo-pay/walletsync/internal/categorize"
	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/ingest"
	"github.com/congo-pay/walletsync/internal/ledger"
	"github.com/congo-pay/walletsync/internal/logging"
	"github.com/congo-pay/walletsync/internal/metrics"
	"github.com/congo-pay/walletsync/internal/wallet"
)

// ErrNotOwner is returned when the address is not bound to the requesting user.
var ErrNotOwner = errors.New("address is not bound to this user")

const (
	defaultTimeout      = 10 * time.Second
	maxParallelNetworks = 3
)

// Options tune a sync Service.
type Options struct {
	Networks []chain.Network
	PageSize int
	MaxPages int
	Timeout  time.Duration
}

// Stats summarizes one sync run.
type Stats struct {
	Fetched    int      `json:"totalTransactions"`
	Saved      int      `json:"savedTransactions"`
	Duplicates int      `json:"duplicateTransactions"`
	Skipped    int      `json:"skippedTransactions"`
	Errors     []string `json:"errors"`
}

func (s *Stats) merge(o Stats) {
	s.Fetched += o.Fetched
	s.Saved += o.Saved
	s.Duplicates += o.Duplicates
	s.Skipped += o.Skipped
	s.Errors = append(s.Errors, o.Errors...)
}

// Result is returned by a completed sync.
type Result struct {
	Success   bool                     `json:"success"`
	Stats     Stats                    `json:"stats"`
	FromBlock map[chain.Network]uint64 `json:"-"`
}

// Service pulls address activity from the chain reader and applies incoming
// transfers to the ledger.
type Service struct {
	reader   chain.Reader
	wallets  wallet.Resolver
	ledger   ledger.Ledger
	recorder *ingest.Recorder
	opts     Options
	logger   *slog.Logger
}

// NewService constructs a sync service. Only addresses that wallets resolves
// to the requesting user can be synced.
func NewService(reader chain.Reader, wallets wallet.Resolver, l ledger.Ledger, recorder *ingest.Recorder, opts Options, logger *slog.Logger) *Service {
	if opts.PageSize <= 0 || opts.PageSize > chain.MaxPageSize {
		opts.PageSize = chain.MaxPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	sort.Slice(opts.Networks, func(i, j int) bool { return opts.Networks[i] < opts.Networks[j] })
	return &Service{
		reader:   reader,
		wallets:  wallets,
		ledger:   l,
		recorder: recorder,
		opts:     opts,
		logger:   logging.Component(logger, "syncer"),
	}
}

// SyncUser syncs the address on every configured network. A provider failure
// on one network is reported in Stats.Errors and the others still run.
func (s *Service) SyncUser(ctx context.Context, userID, address string) (Result, error) {
	if err := validate(userID, address); err != nil {
		return Result{}, err
	}
	if err := s.checkOwner(ctx, userID, address); err != nil {
		return Result{}, err
	}
	if len(s.opts.Networks) == 0 {
		metrics.SyncRuns.WithLabelValues("not_configured").Inc()
		return Result{}, fmt.Errorf("%w: no networks have explorer credentials", chain.ErrProviderNotConfigured)
	}
	if len(s.opts.Networks) == 1 {
		return s.syncOne(ctx, userID, address, s.opts.Networks[0])
	}

	type outcome struct {
		network chain.Network
		from    uint64
		stats   Stats
		err     error
	}
	p := pool.NewWithResults[outcome]().WithMaxGoroutines(maxParallelNetworks)
	for _, network := range s.opts.Networks {
		network := network
		p.Go(func() outcome {
			var st Stats
			from, err := s.syncNetwork(ctx, userID, address, network, &st)
			return outcome{network: network, from: from, stats: st, err: err}
		})
	}
	outcomes := p.Wait()
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].network < outcomes[j].network })

	res := Result{Success: true, FromBlock: make(map[chain.Network]uint64, len(outcomes))}
	for _, o := range outcomes {
		res.FromBlock[o.network] = o.from
		res.Stats.merge(o.stats)
		if o.err == nil {
			continue
		}
		if errors.Is(o.err, chain.ErrProviderNotConfigured) || chain.IsValidation(o.err) {
			metrics.SyncRuns.WithLabelValues("failed").Inc()
			return Result{}, o.err
		}
		if !chain.IsProvider(o.err) && !errors.Is(o.err, context.DeadlineExceeded) {
			metrics.SyncRuns.WithLabelValues("failed").Inc()
			return Result{}, o.err
		}
		res.Stats.Errors = append(res.Stats.Errors, fmt.Sprintf("%s: %v", o.network, o.err))
	}
	metrics.SyncRuns.WithLabelValues("success").Inc()
	return res, nil
}

// SyncNetwork syncs the address on a single network. Provider failures are
// returned as errors.
func (s *Service) SyncNetwork(ctx context.Context, userID, address string, network chain.Network) (Result, error) {
	if err := validate(userID, address); err != nil {
		return Result{}, err
	}
	if !network.Supported() {
		return Result{}, &chain.ValidationError{Field: "network", Reason: "unsupported network " + string(network)}
	}
	if err := s.checkOwner(ctx, userID, address); err != nil {
		return Result{}, err
	}
	return s.syncOne(ctx, userID, address, network)
}

func (s *Service) syncOne(ctx context.Context, userID, address string, network chain.Network) (Result, error) {
	var st Stats
	from, err := s.syncNetwork(ctx, userID, address, network, &st)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("failed").Inc()
		return Result{}, err
	}
	metrics.SyncRuns.WithLabelValues("success").Inc()
	return Result{Success: true, Stats: st, FromBlock: map[chain.Network]uint64{network: from}}, nil
}

func (s *Service) syncNetwork(ctx context.Context, userID, address string, network chain.Network, st *Stats) (uint64, error) {
	logger := s.logger.With(slog.String("user_id", userID), slog.String("network", string(network)))

	from, err := s.ledger.NextBlock(ctx, userID, string(network))
	if err != nil {
		return 0, fmt.Errorf("load sync cursor: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	window, err := chain.FetchPages(fetchCtx, s.reader, chain.Query{
		Address:   address,
		Network:   network,
		Page:      1,
		PageSize:  s.opts.PageSize,
		FromBlock: from,
	}, s.opts.MaxPages)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !chain.IsProvider(err) && ctx.Err() == nil {
			err = &chain.ProviderError{
				Network:   network,
				Action:    "fetch",
				Message:   fmt.Sprintf("timed out after %s", s.opts.Timeout),
				Transient: true,
				Err:       err,
			}
		}
		logger.Warn("fetch activity failed", slog.Uint64("from_block", from), slog.Any("error", err))
		return from, err
	}
	if window.Truncated {
		logger.Info("page cap reached, deferring remaining blocks",
			slog.Uint64("from_block", from),
			slog.Uint64("horizon", window.Horizon),
		)
	}

	records := categorize.Categorize(window.Activity, network, address)
	st.Fetched += len(records)
	if len(records) == 0 {
		logger.Debug("no new activity", slog.Uint64("from_block", from), slog.Int("pages", window.Pages))
		return from, nil
	}

	for _, rec := range records {
		if rec.Direction != ledger.DirectionIn {
			st.Skipped++
			continue
		}
		rec.UserID = userID
		rec.Source = ledger.SourcePoll

		outcome, err := s.recorder.Apply(ctx, rec)
		if err != nil {
			st.Errors = append(st.Errors, fmt.Sprintf("%s: %v", rec.Hash, err))
			continue
		}
		switch outcome {
		case ingest.OutcomeSaved:
			st.Saved++
		case ingest.OutcomeDuplicate:
			st.Duplicates++
		case ingest.OutcomeSkipped:
			st.Skipped++
		}
	}

	logger.Info("sync completed",
		slog.Uint64("from_block", from),
		slog.Int("pages", window.Pages),
		slog.Int("fetched", len(records)),
		slog.Int("saved", st.Saved),
		slog.Int("duplicates", st.Duplicates),
		slog.Int("errors", len(st.Errors)),
	)
	return from, nil
}

// checkOwner rejects addresses bound to nobody or to a different user.
func (s *Service) checkOwner(ctx context.Context, userID, address string) error {
	owner, err := s.wallets.Resolve(ctx, address)
	if errors.Is(err, wallet.ErrNotBound) {
		return ErrNotOwner
	}
	if err != nil {
		return fmt.Errorf("resolve wallet owner: %w", err)
	}
	if owner != strings.TrimSpace(userID) {
		return ErrNotOwner
	}
	return nil
}

func validate(userID, address string) error {
	if strings.TrimSpace(userID) == "" {
		return &chain.ValidationError{Field: "user_id", Reason: "is required"}
	}
	return chain.ValidateAddress(strings.TrimSpace(address))
}
