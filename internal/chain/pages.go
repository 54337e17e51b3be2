package chain

import (
	"context"
	"fmt"
	"math"
)

// Window is the activity read by FetchPages.
type Window struct {
	Activity Activity
	Pages    int
	// Truncated is set when maxPages ran out while a list still returned full
	// pages. Horizon is then the lowest block that may have unread rows, and
	// Activity only holds rows below it.
	Truncated bool
	Horizon   uint64
}

// FetchPages walks pages starting at q.Page until every list returns a short
// page or maxPages requests have been made. Readers return rows in ascending
// block order, so a truncated walk is cut back to the blocks it read in full
// and the caller's cursor never passes rows it has not seen.
func FetchPages(ctx context.Context, r Reader, q Query, maxPages int) (Window, error) {
	if maxPages < 1 {
		maxPages = 1
	}
	if q.Page < 1 {
		q.Page = 1
	}

	var (
		w                      Window
		nativeDone, tokensDone bool
	)
	for w.Pages < maxPages && !(nativeDone && tokensDone) {
		page, err := r.FetchActivity(ctx, q)
		if err != nil {
			return Window{}, err
		}
		w.Pages++
		w.Activity.Append(page)
		nativeDone = nativeDone || len(page.Native) < q.PageSize
		tokensDone = tokensDone || len(page.Tokens) < q.PageSize
		q.Page++
	}
	if nativeDone && tokensDone {
		return w, nil
	}

	horizon := uint64(math.MaxUint64)
	if !nativeDone {
		horizon = min(horizon, highestBlock(w.Activity.Native, func(tx NativeTx) string { return tx.BlockNumber }))
	}
	if !tokensDone {
		horizon = min(horizon, highestBlock(w.Activity.Tokens, func(tr TokenTransfer) string { return tr.BlockNumber }))
	}
	w.Truncated = true
	w.Horizon = horizon
	w.Activity = w.Activity.Before(horizon)
	if w.Activity.Len() == 0 {
		return Window{}, &ProviderError{
			Network: q.Network,
			Action:  "paging",
			Message: fmt.Sprintf("block %d holds more than %d rows; raise EXPLORER_MAX_PAGES", horizon, maxPages*q.PageSize),
		}
	}
	return w, nil
}

// Before returns the rows whose block is below block. Rows with an unreadable
// block number are kept for the categorizer to reject.
func (a Activity) Before(block uint64) Activity {
	var out Activity
	for _, tx := range a.Native {
		if b, err := ParseBlock(tx.BlockNumber); err != nil || b < block {
			out.Native = append(out.Native, tx)
		}
	}
	for _, tr := range a.Tokens {
		if b, err := ParseBlock(tr.BlockNumber); err != nil || b < block {
			out.Tokens = append(out.Tokens, tr)
		}
	}
	return out
}

func highestBlock[T any](rows []T, block func(T) string) uint64 {
	var highest uint64
	found := false
	for _, row := range rows {
		b, err := ParseBlock(block(row))
		if err != nil {
			continue
		}
		if !found || b > highest {
			highest, found = b, true
		}
	}
	if !found {
		return math.MaxUint64
	}
	return highest
}
