package ledger

import (
	"context"
	"fmt"

	"PerpIndexer/internal/aggregation"
	"PerpIndexer/internal/big6"
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/store"
)

// FulfillOrder prices an order once its oracle version fulfills valid:
// execution price, open/close notional on the position, the market's
// latest price, and the trade-volume rollups. Exposure itself folds in
// at settlement, not here.
func (l *Ledger) FulfillOrder(ctx context.Context, orderID string, price int64, version *entity.OracleVersion) error {
	order, err := store.Order(l.store, orderID)
	if err != nil {
		return fmt.Errorf("fulfill: %w", err)
	}
	ma, err := store.MarketAccount(l.store, order.MarketAccount)
	if err != nil {
		return fmt.Errorf("fulfill %s: %w", orderID, err)
	}
	market, err := store.Market(l.store, ma.Market)
	if err != nil {
		return fmt.Errorf("fulfill %s: %w", orderID, err)
	}

	// Legacy markets price through a payoff transform contract.
	marketPrice := price
	if market.Payoff != nil {
		transformed, terr := l.caller.TransformPayoff(ctx, *market.Payoff, price)
		if terr != nil {
			return fmt.Errorf("fulfill %s: %w", orderID, terr)
		}
		marketPrice = transformed
	}
	market.LatestPrice = marketPrice
	l.store.Save(market)

	// Solver-matched orders execute at their guaranteed price.
	executionPrice := marketPrice
	if order.GuaranteePrice != nil {
		executionPrice = *order.GuaranteePrice
	}
	order.ExecutionPrice = executionPrice
	l.store.Save(order)

	delta := order.Size()
	if delta == 0 {
		return nil
	}

	notional := big6.Notional(delta, executionPrice)
	position, err := store.Position(l.store, order.Position)
	if err != nil {
		return fmt.Errorf("fulfill %s: %w", orderID, err)
	}
	if delta > 0 {
		position.OpenSize += delta
		position.OpenNotional += notional
	} else {
		position.CloseSize += -delta
		position.CloseNotional += notional
	}
	l.store.Save(position)

	l.agg.RecordTrade(ma, aggregation.Trade{
		Side:              entity.SideOf(order.MakerTotal, order.LongTotal, order.ShortTotal),
		Size:              abs(delta),
		Notional:          notional,
		Liquidation:       order.Liquidation,
		Referrer:          order.Referrer,
		GuaranteeReferrer: order.GuaranteeReferrer,
	}, version.Timestamp)

	l.log.Debug().
		Str("order", orderID).
		Int64("price", executionPrice).
		Int64("size", delta).
		Int64("notional", notional).
		Msg("order fulfilled")
	return nil
}
