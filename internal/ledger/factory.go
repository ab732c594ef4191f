package ledger

import (
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/store"
)

// HandleMarketCreated registers a new market and its oracle aggregator.
func (l *Ledger) HandleMarketCreated(e *event.MarketCreated) error {
	market := &entity.Market{
		ID:     e.Market,
		Token:  e.Token,
		Oracle: e.Oracle,
		Payoff: e.Payoff,
	}
	l.store.Save(market)

	if _, err := store.Oracle(l.store, e.Oracle); err != nil {
		l.store.Save(&entity.Oracle{ID: e.Oracle})
	}

	l.log.Info().
		Str("market", e.Market.Hex()).
		Str("oracle", e.Oracle.Hex()).
		Msg("market created")
	return nil
}

// HandleOracleUpdated rewires a market's oracle aggregator or an
// aggregator's sub-oracle provider.
func (l *Ledger) HandleOracleUpdated(e *event.OracleUpdated) error {
	switch {
	case e.Market != nil:
		market, err := store.Market(l.store, *e.Market)
		if err != nil {
			return err
		}
		market.Oracle = e.NewProvider
		l.store.Save(market)
		if _, err := store.Oracle(l.store, e.NewProvider); err != nil {
			l.store.Save(&entity.Oracle{ID: e.NewProvider})
		}
	case e.Oracle != nil:
		oracle, err := store.Oracle(l.store, *e.Oracle)
		if err != nil {
			oracle = &entity.Oracle{ID: *e.Oracle}
		}
		oracle.SubOracle = e.NewProvider
		l.store.Save(oracle)
		l.store.Save(&entity.SubOracle{ID: e.NewProvider, Oracle: oracle.ID})
	}
	return nil
}

// HandleOperatorUpdated toggles an operator approval on the account's
// market-factory or multi-invoker operator list.
func (l *Ledger) HandleOperatorUpdated(e *event.OperatorUpdated) error {
	account := store.LoadOrCreateAccount(l.store, e.Account)

	list := &account.Operators
	if e.MultiInvoker {
		list = &account.MultiInvokerOperators
	}

	if e.Enabled {
		for _, op := range *list {
			if op == e.Operator {
				return nil
			}
		}
		*list = append(*list, e.Operator)
	} else {
		kept := (*list)[:0]
		for _, op := range *list {
			if op != e.Operator {
				kept = append(kept, op)
			}
		}
		*list = kept
	}
	l.store.Save(account)
	return nil
}
