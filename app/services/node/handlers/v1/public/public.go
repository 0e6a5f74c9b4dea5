// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/powchain/business/sys/validate"
	"github.com/ardanlabs/powchain/business/web/errs"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/identity"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of chain endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch, err := h.Evts.Acquire(v.TraceID)
	if err != nil {
		return nil
	}
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
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

// Genesis returns the genesis block.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// Blockchain returns the full chain with its difficulty.
func (h Handlers) Blockchain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.State.RetrieveBlocks()

	bc := blockchain{
		Difficulty: h.State.RetrieveDifficulty(),
		Length:     len(blocks),
		Blocks:     blocks,
	}

	return web.Respond(ctx, w, bc, http.StatusOK)
}

// BlockByIndex returns the block at the index in the path.
func (h Handlers) BlockByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block index %q", web.Param(r, "index")), http.StatusBadRequest)
	}

	block, err := h.State.RetrieveBlock(index)
	if err != nil {
		if errors.Is(err, database.ErrBlockNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return fmt.Errorf("retrieve block: %w", err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// MineBlock mines a new block holding the posted data and returns it.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nb newBlock
	if err := decode(r, &nb); err != nil {
		return err
	}

	h.Log.Infow("mine block", "traceid", web.GetTraceID(ctx), "length", h.State.RetrieveLatestBlock().Index+1)

	block, err := h.State.MineNewBlock(ctx, nb.Data)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return errs.NewTrusted(errors.New("mining did not complete"), http.StatusServiceUnavailable)
		case errors.Is(err, database.ErrSerialization):
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return fmt.Errorf("mine block: %w", err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// ValidateChain checks the chain and reports the first failure found.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	valid, err := h.State.Validate()

	resp := validation{
		Valid: valid && err == nil,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Account generates a new identity. The key pair is not kept by the node.
func (h Handlers) Account(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := identity.Generate()
	if err != nil {
		return fmt.Errorf("generate identity: %w", err)
	}

	acct := account{
		Account:    id.Account(),
		PublicKey:  id.PublicKeyHex(),
		PrivateKey: id.PrivateKeyHex(),
	}

	return web.Respond(ctx, w, acct, http.StatusOK)
}

// Transaction accepts a transfer request and acknowledges it. Transfers
// are not recorded on the chain.
func (h Handlers) Transaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nt newTransaction
	if err := decode(r, &nt); err != nil {
		return err
	}

	msg := message{
		Message: fmt.Sprintf("Transaction from %s to %s for %v processed successfully", nt.Sender, nt.Recipient, nt.Amount),
	}

	return web.Respond(ctx, w, msg, http.StatusOK)
}

// decode reads the request body into the model. Field errors pass through
// untouched so the client sees each failing field.
func decode(r *http.Request, val any) error {
	err := web.Decode(r, val)
	if err == nil || validate.IsFieldErrors(err) {
		return err
	}

	return errs.NewTrusted(err, http.StatusBadRequest)
}
