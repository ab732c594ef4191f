package store

import (
	"github.com/ethereum/go-ethereum/common"

	"PerpIndexer/internal/entity"
)

// --- load-or-fail lookups (missing entity is an ordering violation) ---

func Market(s Store, market common.Address) (*entity.Market, error) {
	m, ok := load[*entity.Market](s, entity.KindMarket, market.Hex())
	if !ok {
		return nil, NotFound(entity.KindMarket, market.Hex())
	}
	return m, nil
}

func MarketAccount(s Store, id string) (*entity.MarketAccount, error) {
	m, ok := load[*entity.MarketAccount](s, entity.KindMarketAccount, id)
	if !ok {
		return nil, NotFound(entity.KindMarketAccount, id)
	}
	return m, nil
}

func Position(s Store, id string) (*entity.Position, error) {
	p, ok := load[*entity.Position](s, entity.KindPosition, id)
	if !ok {
		return nil, NotFound(entity.KindPosition, id)
	}
	return p, nil
}

func Order(s Store, id string) (*entity.Order, error) {
	o, ok := load[*entity.Order](s, entity.KindOrder, id)
	if !ok {
		return nil, NotFound(entity.KindOrder, id)
	}
	return o, nil
}

func MarketOrder(s Store, id string) (*entity.MarketOrder, error) {
	o, ok := load[*entity.MarketOrder](s, entity.KindMarketOrder, id)
	if !ok {
		return nil, NotFound(entity.KindMarketOrder, id)
	}
	return o, nil
}

func Oracle(s Store, oracle common.Address) (*entity.Oracle, error) {
	o, ok := load[*entity.Oracle](s, entity.KindOracle, oracle.Hex())
	if !ok {
		return nil, NotFound(entity.KindOracle, oracle.Hex())
	}
	return o, nil
}

func OracleVersion(s Store, id string) (*entity.OracleVersion, error) {
	v, ok := load[*entity.OracleVersion](s, entity.KindOracleVersion, id)
	if !ok {
		return nil, NotFound(entity.KindOracleVersion, id)
	}
	return v, nil
}

func OrderAccumulation(s Store, id string) (*entity.OrderAccumulation, error) {
	a, ok := load[*entity.OrderAccumulation](s, entity.KindOrderAccumulation, id)
	if !ok {
		return nil, NotFound(entity.KindOrderAccumulation, id)
	}
	return a, nil
}

func MarketAccumulator(s Store, id string) (*entity.MarketAccumulator, error) {
	a, ok := load[*entity.MarketAccumulator](s, entity.KindMarketAccumulator, id)
	if !ok {
		return nil, NotFound(entity.KindMarketAccumulator, id)
	}
	return a, nil
}

func SocializationPeriod(s Store, id string) (*entity.MarketSocializationPeriod, error) {
	p, ok := load[*entity.MarketSocializationPeriod](s, entity.KindMarketSocializationPeriod, id)
	if !ok {
		return nil, NotFound(entity.KindMarketSocializationPeriod, id)
	}
	return p, nil
}

// TriggerOrder returns nil when absent: trigger-order execution events
// for unknown orders are skipped, not fatal.
func TriggerOrder(s Store, id string) *entity.TriggerOrder {
	t, _ := load[*entity.TriggerOrder](s, entity.KindTriggerOrder, id)
	return t
}

// --- load-or-create ---

func LoadOrCreateAccount(s Store, account common.Address) *entity.Account {
	if a, ok := load[*entity.Account](s, entity.KindAccount, account.Hex()); ok {
		return a
	}
	a := &entity.Account{
		ID:                    account,
		Operators:             []common.Address{},
		MultiInvokerOperators: []common.Address{},
	}
	s.Save(a)
	return a
}

func LoadOrCreateMarketAccount(s Store, market, account common.Address) *entity.MarketAccount {
	LoadOrCreateAccount(s, account)

	id := entity.MarketAccountID(market, account)
	if m, ok := load[*entity.MarketAccount](s, entity.KindMarketAccount, id); ok {
		return m
	}
	m := &entity.MarketAccount{ID: id, Market: market, Account: account}
	s.Save(m)
	return m
}

// LoadOrCreateCurrentPosition returns the position for the account's
// current position nonce, creating it flat when absent.
func LoadOrCreateCurrentPosition(s Store, ma *entity.MarketAccount) *entity.Position {
	id := entity.PositionID(ma.ID, ma.PositionNonce)
	if p, ok := load[*entity.Position](s, entity.KindPosition, id); ok {
		return p
	}
	p := &entity.Position{
		ID:            id,
		MarketAccount: ma.ID,
		Nonce:         ma.PositionNonce,
		Accumulation:  LoadOrCreateOrderAccumulation(s, entity.OwnedAccumulationID("position", id)).ID,
	}
	s.Save(p)
	return p
}

func LoadOrCreateOrderAccumulation(s Store, id string) *entity.OrderAccumulation {
	if a, ok := load[*entity.OrderAccumulation](s, entity.KindOrderAccumulation, id); ok {
		return a
	}
	a := &entity.OrderAccumulation{ID: id}
	s.Save(a)
	return a
}

func LoadOrCreateMarketAccumulation(s Store, market common.Address, bucket entity.Bucket, bucketTimestamp int64) *entity.MarketAccumulation {
	id := entity.BucketedID(bucket, market.Hex(), bucketTimestamp)
	if m, ok := load[*entity.MarketAccumulation](s, entity.KindMarketAccumulation, id); ok {
		return m
	}
	m := &entity.MarketAccumulation{
		ID:           id,
		Market:       market,
		Bucket:       bucket,
		Timestamp:    bucketTimestamp,
		Accumulation: LoadOrCreateOrderAccumulation(s, entity.OwnedAccumulationID("market", id)).ID,
	}
	s.Save(m)
	return m
}

func LoadOrCreateMarketAccountAccumulation(s Store, ma *entity.MarketAccount, bucket entity.Bucket, bucketTimestamp int64) *entity.MarketAccountAccumulation {
	id := entity.BucketedID(bucket, ma.ID, bucketTimestamp)
	if m, ok := load[*entity.MarketAccountAccumulation](s, entity.KindMarketAccountAccumulation, id); ok {
		return m
	}
	m := &entity.MarketAccountAccumulation{
		ID:                id,
		Market:            ma.Market,
		Account:           ma.Account,
		MarketAccount:     ma.ID,
		Bucket:            bucket,
		Timestamp:         bucketTimestamp,
		Accumulation:      LoadOrCreateOrderAccumulation(s, entity.OwnedAccumulationID("marketAccount", id)).ID,
		TakerAccumulation: LoadOrCreateOrderAccumulation(s, entity.OwnedAccumulationID("marketAccountTaker", id)).ID,
	}
	s.Save(m)
	return m
}

func LoadOrCreateAccountAccumulation(s Store, account common.Address, bucket entity.Bucket, bucketTimestamp int64) *entity.AccountAccumulation {
	id := entity.BucketedID(bucket, account.Hex(), bucketTimestamp)
	if a, ok := load[*entity.AccountAccumulation](s, entity.KindAccountAccumulation, id); ok {
		return a
	}
	a := &entity.AccountAccumulation{
		ID:                id,
		Account:           account,
		Bucket:            bucket,
		Timestamp:         bucketTimestamp,
		Accumulation:      LoadOrCreateOrderAccumulation(s, entity.OwnedAccumulationID("account", id)).ID,
		TakerAccumulation: LoadOrCreateOrderAccumulation(s, entity.OwnedAccumulationID("accountTaker", id)).ID,
	}
	s.Save(a)
	return a
}

func LoadOrCreateReferrerAccumulation(s Store, referrer common.Address, bucket entity.Bucket, bucketTimestamp int64) *entity.ReferrerAccumulation {
	id := entity.BucketedID(bucket, referrer.Hex(), bucketTimestamp)
	if r, ok := load[*entity.ReferrerAccumulation](s, entity.KindReferrerAccumulation, id); ok {
		return r
	}
	r := &entity.ReferrerAccumulation{
		ID:        id,
		Referrer:  referrer,
		Bucket:    bucket,
		Timestamp: bucketTimestamp,
	}
	s.Save(r)
	return r
}

func LoadOrCreateProtocolAccumulation(s Store, bucket entity.Bucket, bucketTimestamp int64) *entity.ProtocolAccumulation {
	id := entity.BucketedID(bucket, "protocol", bucketTimestamp)
	if p, ok := load[*entity.ProtocolAccumulation](s, entity.KindProtocolAccumulation, id); ok {
		return p
	}
	p := &entity.ProtocolAccumulation{
		ID:           id,
		Bucket:       bucket,
		Timestamp:    bucketTimestamp,
		Accumulation: LoadOrCreateOrderAccumulation(s, entity.OwnedAccumulationID("protocol", id)).ID,
	}
	s.Save(p)
	return p
}
