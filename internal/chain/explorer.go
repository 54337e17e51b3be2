package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"github.com/congo-pay/walletsync/internal/config"
	"github.com/congo-pay/walletsync/internal/logging"
	"github.com/congo-pay/walletsync/internal/metrics"
)

const (
	actionNative = "txlist"
	actionToken  = "tokentx"
	endBlock     = "99999999"
)

// emptyResultMessages are status "0" replies that mean "nothing to return".
var emptyResultMessages = []string{
	"no transactions found",
	"no token transfers found",
	"no records found",
}

// explorerEnvelope is the common etherscan-family reply. Result is an array on
// success and a string describing the problem otherwise.
type explorerEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// ExplorerClient reads address activity from etherscan-compatible explorers.
type ExplorerClient struct {
	client    *resty.Client
	limiter   *rate.Limiter
	endpoints map[Network]config.ExplorerEndpoint
	logger    *slog.Logger
}

// NewExplorerClient builds a rate limited explorer client over every endpoint in cfg.
func NewExplorerClient(cfg config.ExplorerConfig, logger *slog.Logger) *ExplorerClient {
	logger = logging.Component(logger, "explorer")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(float64(cfg.RateLimit) / 60)
	}
	limiter := rate.NewLimiter(limit, 1)

	endpoints := make(map[Network]config.ExplorerEndpoint, len(cfg.Endpoints))
	for name, ep := range cfg.Endpoints {
		endpoints[Network(strings.ToLower(name))] = ep
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
			waitCtx, cancel := context.WithTimeout(r.Context(), cfg.Timeout)
			defer cancel()
			if err := limiter.Wait(waitCtx); err != nil {
				logger.Warn("explorer rate limiter wait failed", slog.Any("error", err))
				return err
			}
			return nil
		})

	return &ExplorerClient{
		client:    client,
		limiter:   limiter,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Configured reports whether the network has both an endpoint and an API key.
func (c *ExplorerClient) Configured(n Network) bool {
	ep, ok := c.endpoints[n]
	return ok && ep.URL != "" && ep.APIKey != ""
}

// FetchActivity fetches one page of native transactions and token transfers
// concurrently. The query is validated before any request is issued.
func (c *ExplorerClient) FetchActivity(ctx context.Context, q Query) (Activity, error) {
	if err := q.Validate(); err != nil {
		return Activity{}, err
	}
	if !c.Configured(q.Network) {
		return Activity{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, q.Network)
	}
	ep := c.endpoints[q.Network]

	var activity Activity
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		txs, err := fetchList[NativeTx](ctx, c, ep, q, actionNative)
		activity.Native = txs
		return err
	})
	p.Go(func(ctx context.Context) error {
		transfers, err := fetchList[TokenTransfer](ctx, c, ep, q, actionToken)
		activity.Tokens = transfers
		return err
	})
	if err := p.Wait(); err != nil {
		return Activity{}, err
	}
	return activity, nil
}

func fetchList[T any](ctx context.Context, c *ExplorerClient, ep config.ExplorerEndpoint, q Query, action string) ([]T, error) {
	params := map[string]string{
		"module":     "account",
		"action":     action,
		"address":    q.Address,
		"startblock": strconv.FormatUint(q.FromBlock, 10),
		"endblock":   endBlock,
		"page":       strconv.Itoa(q.Page),
		"offset":     strconv.Itoa(q.PageSize),
		"sort":       "asc",
		"apikey":     ep.APIKey,
	}

	var envelope explorerEnvelope
	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&envelope).
		Get(ep.URL)
	metrics.ExplorerLatency.WithLabelValues(string(q.Network), action).Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.ExplorerRequests.WithLabelValues(string(q.Network), action, "transport_error").Inc()
		c.logger.Warn("explorer request failed",
			slog.String("network", string(q.Network)),
			slog.String("action", action),
			slog.Any("error", err),
		)
		return nil, &ProviderError{
			Network:   q.Network,
			Action:    action,
			Message:   err.Error(),
			Transient: !errors.Is(err, context.Canceled),
			Err:       err,
		}
	}
	if status := resp.StatusCode(); status >= http.StatusBadRequest {
		metrics.ExplorerRequests.WithLabelValues(string(q.Network), action, "http_error").Inc()
		return nil, &ProviderError{
			Network:   q.Network,
			Action:    action,
			Status:    status,
			Message:   http.StatusText(status),
			Transient: status == http.StatusTooManyRequests || status >= http.StatusInternalServerError,
		}
	}

	if envelope.Status != "1" {
		if isEmptyResult(envelope.Message) {
			metrics.ExplorerRequests.WithLabelValues(string(q.Network), action, "empty").Inc()
			return nil, nil
		}
		metrics.ExplorerRequests.WithLabelValues(string(q.Network), action, "rejected").Inc()
		detail := resultText(envelope.Result)
		msg := strings.TrimSpace(envelope.Message)
		if detail != "" {
			msg = msg + ": " + detail
		}
		return nil, &ProviderError{
			Network:   q.Network,
			Action:    action,
			Message:   msg,
			Transient: strings.Contains(strings.ToLower(detail), "rate limit"),
		}
	}

	var list []T
	if len(envelope.Result) > 0 {
		if err := sonic.Unmarshal(envelope.Result, &list); err != nil {
			metrics.ExplorerRequests.WithLabelValues(string(q.Network), action, "decode_error").Inc()
			return nil, &ProviderError{
				Network: q.Network,
				Action:  action,
				Message: "decode result: " + err.Error(),
				Err:     err,
			}
		}
	}
	metrics.ExplorerRequests.WithLabelValues(string(q.Network), action, "ok").Inc()
	return list, nil
}

func isEmptyResult(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	for _, prefix := range emptyResultMessages {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}

// resultText extracts the explanation explorers put in result on failure.
func resultText(raw json.RawMessage) string {
	var s string
	if err := sonic.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
