package wallet

import (
	"errors"
	"time"
)

var (
	// ErrNotBound is returned when no user owns the address.
	ErrNotBound = errors.New("wallet address not bound")
	// ErrAlreadyBound is returned when the address belongs to another user.
	ErrAlreadyBound = errors.New("wallet address bound to another user")
)

// Binding maps an on-chain address to exactly one user. Network is informational;
// the same EVM address is shared by every supported chain.
type Binding struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Address   string    `json:"address"`
	Network   string    `json:"network,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
