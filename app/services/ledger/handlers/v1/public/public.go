// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/ardanlabs/blockbank/business/web/errs"
	"github.com/ardanlabs/blockbank/foundation/blockchain/database"
	"github.com/ardanlabs/blockbank/foundation/blockchain/ledger"
	"github.com/ardanlabs/blockbank/foundation/events"
	"github.com/ardanlabs/blockbank/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log        *zap.SugaredLogger
	Ledger     *ledger.Ledger
	WS         websocket.Upgrader
	Evts       *events.Events
	SubmitWait time.Duration
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the ledger.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// This starts a ticker to send a ping to the client.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a new transaction to the mempool and waits for it
// to be sealed into a block. If the wait runs out, the pending transaction
// is returned with a 202.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req SubmitTx
	if err := web.Decode(r, &req); err != nil {
		return errs.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
	}

	from, err := database.ToAccountID(req.From)
	if err != nil {
		return errs.BadRequest(fmt.Errorf("from: %w", err))
	}

	to, err := database.ToAccountID(req.To)
	if err != nil {
		return errs.BadRequest(fmt.Errorf("to: %w", err))
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from", from, "to", to, "amount", req.Amount)

	if h.SubmitWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.SubmitWait)
		defer cancel()
	}

	receipt, err := h.Ledger.Submit(ctx, from, to, req.Amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrCancelled) && receipt.ID != "":
			return web.Respond(ctx, w, toReceipt(receipt), http.StatusAccepted)

		case errors.Is(err, database.ErrInvalidAmount),
			errors.Is(err, database.ErrInvalidAccount),
			errors.Is(err, ledger.ErrInsufficientBalance):
			return errs.BadRequest(err)
		}

		return fmt.Errorf("submit: %w", err)
	}

	return web.Respond(ctx, w, toReceipt(receipt), http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.Ledger.Genesis()

	info := genesisInfo{
		Date:          gen.Date,
		Difficulty:    gen.Difficulty,
		HashAlgorithm: gen.HashAlgorithm,
		TransPerBlock: gen.TransPerBlock,
		Balances:      make(map[string]string, len(gen.Balances)),
	}
	for account, amount := range gen.Balances {
		info.Balances[account] = amount.String()
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// Stats returns the summary of the chain.
func (h Handlers) Stats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Ledger.Stats(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toTxs(h.Ledger.Mempool()), http.StatusOK)
}

// Balances returns the balance for the specified account or for every
// account known to the genesis or the chain.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var accounts []database.AccountID

	switch acct := web.Param(r, "account"); acct {
	case "":
		seen := make(map[database.AccountID]bool)
		for account := range h.Ledger.Genesis().Balances {
			seen[database.AccountID(account)] = true
		}
		for account := range database.Balances(h.Ledger.Chain()) {
			seen[account] = true
		}
		for account := range seen {
			accounts = append(accounts, account)
		}
		slices.Sort(accounts)

	default:
		account, err := database.ToAccountID(acct)
		if err != nil {
			return errs.BadRequest(err)
		}
		accounts = append(accounts, account)
	}

	bals := balances{
		LatestBlock: h.Ledger.LatestBlock().Hash,
		Uncommitted: h.Ledger.MempoolLength(),
		Balances:    make([]balance, len(accounts)),
	}
	for i, account := range accounts {
		bals.Balances[i] = balance{
			Account:   string(account),
			Balance:   h.Ledger.Balance(account).String(),
			Available: h.Ledger.Available(account).String(),
		}
	}

	return web.Respond(ctx, w, bals, http.StatusOK)
}

// Blocks returns the blocks in the chain or the single block requested by
// number.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.Ledger.Chain()

	if num := web.Param(r, "number"); num != "" {
		number, err := strconv.ParseUint(num, 10, 64)
		if err != nil {
			return errs.BadRequest(fmt.Errorf("invalid block number %q", num))
		}

		blk, err := chain.Block(number)
		if err != nil {
			return errs.NewTrusted(err, http.StatusNotFound)
		}

		return web.Respond(ctx, w, toBlock(blk), http.StatusOK)
	}

	dbBlocks := chain.Blocks()

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = toBlock(blk)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Transactions returns the sealed transactions for an account, newest first.
func (h Handlers) Transactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account, err := database.ToAccountID(web.Param(r, "account"))
	if err != nil {
		return errs.BadRequest(err)
	}

	receipts := h.Ledger.TransactionsFor(account)
	if len(receipts) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	trans := make([]tx, len(receipts))
	for i, receipt := range receipts {
		trans[i] = toReceipt(receipt)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}
