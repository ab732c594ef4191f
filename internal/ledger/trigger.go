package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/store"
)

// HandleTriggerOrderPlaced records a conditional order. Manager orders
// re-placed under the same nonce update the existing record in place.
func (l *Ledger) HandleTriggerOrderPlaced(e *event.TriggerOrderPlaced) error {
	ma := store.LoadOrCreateMarketAccount(l.store, e.Market, e.Account)

	id := entity.TriggerOrderID(e.Source, e.Nonce)
	t := store.TriggerOrder(l.store, id)
	if t == nil {
		t = &entity.TriggerOrder{
			ID:            id,
			Source:        e.Source,
			Market:        e.Market,
			Account:       e.Account,
			MarketAccount: ma.ID,
			Nonce:         e.Nonce,
		}
	} else if !e.Updatable {
		// Multi-invoker nonces are never reused; a duplicate is a replay.
		return nil
	}

	t.TriggerSide = e.Side
	t.TriggerComparison = e.Comparison
	t.TriggerFee = e.Fee
	t.TriggerPrice = e.Price
	t.TriggerDelta = e.Delta
	t.InterfaceFeeAmount = e.InterfaceFeeAmount
	t.InterfaceFeeReceiver = e.InterfaceFeeReceiver
	t.InterfaceFee2Amount = e.InterfaceFee2Amount
	t.InterfaceFee2Receiver = e.InterfaceFee2Receiver
	t.PlacedTimestamp = e.BlockTimestamp
	t.TransactionHash = e.TxHash

	// Multi-invoker orders carry no explicit referrer; the interface fee
	// receiver stands in for it.
	t.Referrer = e.Referrer
	if t.Referrer == zeroAddress {
		t.Referrer = e.InterfaceFeeReceiver
	}
	if t.Referrer == zeroAddress {
		t.Referrer = e.InterfaceFee2Receiver
	}

	l.associateOrder(t, ma, e.TxHash)
	l.store.Save(t)
	return nil
}

// HandleTriggerOrderExecuted marks a trigger order executed and links the
// market order its execution created.
func (l *Ledger) HandleTriggerOrderExecuted(e *event.TriggerOrderExecuted) error {
	t := store.TriggerOrder(l.store, entity.TriggerOrderID(e.Source, e.Nonce))
	if t == nil {
		l.log.Warn().
			Str("source", e.Source.Hex()).
			Int64("nonce", e.Nonce).
			Msg("execution for unknown trigger order")
		return nil
	}
	tx := e.TxHash
	t.Executed = true
	t.ExecutionTransactionHash = &tx

	if ma, err := store.MarketAccount(l.store, t.MarketAccount); err == nil {
		l.associateOrder(t, ma, e.TxHash)
	}
	l.store.Save(t)
	return nil
}

// HandleTriggerOrderCancelled marks a trigger order cancelled.
func (l *Ledger) HandleTriggerOrderCancelled(e *event.TriggerOrderCancelled) error {
	t := store.TriggerOrder(l.store, entity.TriggerOrderID(e.Source, e.Nonce))
	if t == nil {
		l.log.Warn().
			Str("source", e.Source.Hex()).
			Int64("nonce", e.Nonce).
			Msg("cancellation for unknown trigger order")
		return nil
	}
	tx := e.TxHash
	t.Cancelled = true
	t.CancelTransactionHash = &tx
	l.store.Save(t)
	return nil
}

// associateOrder links the account's current market order to the trigger
// order when both were touched by the same transaction.
func (l *Ledger) associateOrder(t *entity.TriggerOrder, ma *entity.MarketAccount, txHash common.Hash) {
	if t.AssociatedOrder != "" || ma.CurrentOrderID == 0 {
		return
	}
	order, err := store.Order(l.store, entity.OrderID(ma.Market, ma.Account, ma.CurrentOrderID))
	if err != nil {
		return
	}
	if order.HasTransaction(txHash) {
		t.AssociatedOrder = order.ID
	}
}
