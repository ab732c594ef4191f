// Package entity defines the accounting ledger's data model: markets,
// accounts, positions, orders, oracle versions, accumulations, and the
// bucketed aggregates. Entities are plain structs addressed by
// deterministic composite ids so that event replay resolves to the same
// records (market:account:sequence style keys).
package entity

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Kind discriminates entity types in the store.
type Kind string

const (
	KindAccount                    Kind = "Account"
	KindMarket                     Kind = "Market"
	KindMarketAccount              Kind = "MarketAccount"
	KindPosition                   Kind = "Position"
	KindOrder                      Kind = "Order"
	KindMarketOrder                Kind = "MarketOrder"
	KindOracle                     Kind = "Oracle"
	KindSubOracle                  Kind = "SubOracle"
	KindOracleVersion              Kind = "OracleVersion"
	KindOrderAccumulation          Kind = "OrderAccumulation"
	KindMarketAccumulator          Kind = "MarketAccumulator"
	KindMarketAccumulation         Kind = "MarketAccumulation"
	KindMarketAccountAccumulation  Kind = "MarketAccountAccumulation"
	KindAccountAccumulation        Kind = "AccountAccumulation"
	KindReferrerAccumulation       Kind = "ReferrerAccumulation"
	KindProtocolAccumulation       Kind = "ProtocolAccumulation"
	KindMarketSocializationPeriod  Kind = "MarketSocializationPeriod"
	KindTriggerOrder               Kind = "TriggerOrder"
	KindVaultUpdate                Kind = "VaultUpdate"
)

// Entity is implemented by every stored record.
type Entity interface {
	EntityKind() Kind
	EntityID() string
}

// Side is a position side in the protocol's perpetual-market model.
type Side string

const (
	SideMaker Side = "maker"
	SideLong  Side = "long"
	SideShort Side = "short"
	SideNone  Side = "none"
)

// Magnitude returns the position's current size: max(maker, long, short).
// At most one side is non-zero by protocol construction.
func Magnitude(maker, long, short int64) int64 {
	m := maker
	if long > m {
		m = long
	}
	if short > m {
		m = short
	}
	return m
}

// OrderSize returns the size of an account order, where only one side is
// non-zero: maker + long + short.
func OrderSize(maker, long, short int64) int64 {
	return maker + long + short
}

// SideOf classifies an exposure triple.
func SideOf(maker, long, short int64) Side {
	if maker > 0 {
		return SideMaker
	}
	if long > 0 {
		return SideLong
	}
	if short > 0 {
		return SideShort
	}
	return SideNone
}

// IsTaker reports whether the side takes directional exposure.
func (s Side) IsTaker() bool {
	return s == SideLong || s == SideShort
}

// --- id builders ---

const idSeparator = ":"

func addrID(a common.Address) string {
	return a.Hex()
}

// MarketAccountID is market:account.
func MarketAccountID(market, account common.Address) string {
	return addrID(market) + idSeparator + addrID(account)
}

// PositionID is market:account:nonce.
func PositionID(marketAccountID string, nonce int64) string {
	return marketAccountID + idSeparator + strconv.FormatInt(nonce, 10)
}

// OrderID is market:account:orderId.
func OrderID(market, account common.Address, orderID int64) string {
	return MarketAccountID(market, account) + idSeparator + strconv.FormatInt(orderID, 10)
}

// MarketOrderID is market:orderId.
func MarketOrderID(market common.Address, orderID int64) string {
	return addrID(market) + idSeparator + strconv.FormatInt(orderID, 10)
}

// OracleVersionID is subOracle:version.
func OracleVersionID(subOracle common.Address, version int64) string {
	return addrID(subOracle) + idSeparator + strconv.FormatInt(version, 10)
}

// MarketAccumulatorID is market:version.
func MarketAccumulatorID(market common.Address, version int64) string {
	return addrID(market) + idSeparator + strconv.FormatInt(version, 10)
}

// SocializationPeriodID is market:startVersion.
func SocializationPeriodID(market common.Address, startVersion int64) string {
	return addrID(market) + idSeparator + strconv.FormatInt(startVersion, 10)
}

// TriggerOrderID is source:nonce.
func TriggerOrderID(source common.Address, nonce int64) string {
	return addrID(source) + idSeparator + strconv.FormatInt(nonce, 10)
}

// LogID is txHash:logIndex, the identity of a single chain log.
func LogID(txHash common.Hash, logIndex uint) string {
	return txHash.Hex() + idSeparator + strconv.FormatUint(uint64(logIndex), 10)
}

// BucketedID is bucket:subject:bucketTimestamp.
func BucketedID(bucket Bucket, subject string, bucketTimestamp int64) string {
	return string(bucket) + idSeparator + subject + idSeparator + strconv.FormatInt(bucketTimestamp, 10)
}

// OwnedAccumulationID prefixes an owner kind onto the owner's id so each
// owner's OrderAccumulation child has a distinct key.
func OwnedAccumulationID(owner string, ownerID string) string {
	return owner + idSeparator + ownerID
}

// Bucket is a fixed-width aggregation time window.
type Bucket string

const (
	BucketHourly Bucket = "hourly"
	BucketDaily  Bucket = "daily"
	BucketWeekly Bucket = "weekly"
	BucketAll    Bucket = "all"
)

// Buckets lists every bucket width, in the order aggregates are written.
var Buckets = []Bucket{BucketHourly, BucketDaily, BucketWeekly, BucketAll}

// Width returns the bucket width in seconds; the all-time bucket is 0.
func (b Bucket) Width() int64 {
	switch b {
	case BucketHourly:
		return 3600
	case BucketDaily:
		return 86400
	case BucketWeekly:
		return 604800
	case BucketAll:
		return 0
	default:
		panic(fmt.Sprintf("invalid bucket %q", b))
	}
}

// Timestamp returns the bucket key for a timestamp:
// floor(timestamp/width)*width, with the all-time bucket collapsing to 0.
func (b Bucket) Timestamp(ts int64) int64 {
	w := b.Width()
	if w == 0 {
		return 0
	}
	return ts / w * w
}
