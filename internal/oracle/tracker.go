// Package oracle tracks the request/fulfillment lifecycle of price
// points and triggers order settlement once a version becomes valid.
// Fulfillment may arrive before or after the position-processed event
// that consumes the same version, so validity consumers fall back to a
// live contract read when the local record is not yet fulfilled.
package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/chain"
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/store"
)

// Settler settles a single order once its oracle version fulfills valid.
type Settler interface {
	FulfillOrder(ctx context.Context, orderID string, price int64, version *entity.OracleVersion) error
}

// Tracker owns OracleVersion lifecycle transitions.
type Tracker struct {
	store  store.Store
	caller chain.Caller
	log    zerolog.Logger
}

func NewTracker(s store.Store, caller chain.Caller, log zerolog.Logger) *Tracker {
	return &Tracker{store: s, caller: caller, log: log}
}

// GetOrCreateVersion loads or creates the version record. A version
// created by an order reference before any request event is unrequested;
// that is expected. Request metadata is first-write-wins: an already-set
// request record is never overwritten.
func (t *Tracker) GetOrCreateVersion(subOracle common.Address, timestamp int64, requested bool, requestTx *common.Hash, requestTime int64) *entity.OracleVersion {
	id := entity.OracleVersionID(subOracle, timestamp)
	v, err := store.OracleVersion(t.store, id)
	if err != nil {
		v = &entity.OracleVersion{
			ID:        id,
			SubOracle: subOracle,
			Timestamp: timestamp,
			Requested: requested,
		}
		if requested {
			v.RequestTransactionHash = requestTx
			v.RequestTimestamp = requestTime
		}
		t.store.Save(v)
		return v
	}

	updated := false
	if requested && !v.Requested {
		v.Requested = true
		updated = true
	}
	if requestTx != nil && v.RequestTransactionHash == nil {
		v.RequestTransactionHash = requestTx
		v.RequestTimestamp = requestTime
		updated = true
	}
	if updated {
		t.store.Save(v)
	}
	return v
}

// HandleRequested records a version request.
func (t *Tracker) HandleRequested(evt *event.OracleVersionRequested) {
	tx := evt.TxHash
	t.GetOrCreateVersion(evt.SubOracle, evt.Version, true, &tx, evt.BlockTimestamp)
}

// HandleFulfilled records a fulfillment and, when valid, synchronously
// settles every order linked to the version in insertion order, exactly
// once per order per fulfillment.
func (t *Tracker) HandleFulfilled(ctx context.Context, evt *event.OracleVersionFulfilled, settler Settler) error {
	v := t.GetOrCreateVersion(evt.SubOracle, evt.Version, false, nil, 0)
	if v.Fulfilled {
		// Replayed fulfillment: linked orders were already settled.
		return nil
	}

	price, valid := evt.Price, evt.Valid
	if !evt.PriceOnEvent {
		// v2.0 shape: the event carries no price and every fulfillment is
		// valid; read the committed price back from the contract.
		p, _, err := t.caller.VersionAt(ctx, evt.SubOracle, evt.Version)
		if err != nil {
			return err
		}
		price, valid = p, true
	}

	tx := evt.TxHash
	v.Fulfilled = true
	v.Valid = valid
	v.Price = price
	v.FulfillTransactionHash = &tx
	v.FulfillTimestamp = evt.BlockTimestamp
	t.store.Save(v)

	if !v.Valid {
		t.log.Warn().
			Str("sub_oracle", evt.SubOracle.Hex()).
			Int64("version", evt.Version).
			Int("orders", len(v.Orders)).
			Msg("oracle version fulfilled invalid")
		return nil
	}

	for _, orderID := range v.Orders {
		if err := settler.FulfillOrder(ctx, orderID, v.Price, v); err != nil {
			return err
		}
	}
	return nil
}

// VersionValid reports whether a version is valid for exposure updates.
// When the local record has not been fulfilled yet the live oracle is
// consulted rather than assuming invalid; with no caller configured, an
// unfulfilled version is treated as invalid.
func (t *Tracker) VersionValid(ctx context.Context, v *entity.OracleVersion) bool {
	if v.Fulfilled {
		return v.Valid
	}
	if t.caller == nil {
		return false
	}
	_, valid, err := t.caller.VersionAt(ctx, v.SubOracle, v.Timestamp)
	if err != nil {
		t.log.Warn().Err(err).
			Str("sub_oracle", v.SubOracle.Hex()).
			Int64("version", v.Timestamp).
			Msg("live validity read failed; treating version as invalid")
		return false
	}
	return valid
}
