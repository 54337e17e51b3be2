package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/walletsync/internal/chain"
	"github.com/congo-pay/walletsync/internal/ledger"
)

// ErrUserRequired rejects requests without a user identifier.
var ErrUserRequired = errors.New("user_id is required")

// Service exposes wallet bindings and the balances the ledger holds for them.
type Service struct {
	repo     Repository
	resolver Resolver
	ledger   ledger.Ledger
}

// NewService builds a wallet service instance. resolver may be nil, in which
// case lookups go straight to repo.
func NewService(repo Repository, resolver Resolver, ledger ledger.Ledger) *Service {
	if resolver == nil {
		resolver = repo
	}
	return &Service{repo: repo, resolver: resolver, ledger: ledger}
}

// BindInput captures data required to bind an address to a user.
type BindInput struct {
	UserID  string
	Address string
	Network string
}

// Bind validates and stores an address binding.
func (s *Service) Bind(ctx context.Context, input BindInput) (Binding, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return Binding{}, ErrUserRequired
	}
	if err := chain.ValidateAddress(strings.TrimSpace(input.Address)); err != nil {
		return Binding{}, err
	}
	network := ""
	if input.Network != "" {
		n, err := chain.ParseNetwork(input.Network)
		if err != nil {
			return Binding{}, err
		}
		network = string(n)
	}

	return s.repo.Bind(ctx, Binding{
		ID:        uuid.NewString(),
		UserID:    userID,
		Address:   chain.NormalizeAddress(input.Address),
		Network:   network,
		CreatedAt: time.Now().UTC(),
	})
}

// Resolve returns the user bound to address.
func (s *Service) Resolve(ctx context.Context, address string) (string, error) {
	return s.resolver.Resolve(ctx, chain.NormalizeAddress(address))
}

// Wallets lists the user's bindings.
func (s *Service) Wallets(ctx context.Context, userID string) ([]Binding, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	return s.repo.ListByUser(ctx, userID)
}

// Balances returns every balance aggregate held by the user.
func (s *Service) Balances(ctx context.Context, userID string) ([]ledger.BalanceAggregate, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	return s.ledger.Balances(ctx, userID)
}

// Transactions returns the user's most recent transaction records.
func (s *Service) Transactions(ctx context.Context, userID string, limit int) ([]ledger.TransactionRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	return s.ledger.Transactions(ctx, userID, limit)
}
