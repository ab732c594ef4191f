// Package accumulator defines the per-unit cumulative ledger semantics:
// every settlement computation routes through it so per-order results
// stay consistent with the bucketed rollups.
package accumulator

import (
	"PerpIndexer/internal/big6"
	"PerpIndexer/internal/entity"
)

// Channel names a sub-accumulator of the market accumulator.
type Channel string

const (
	ChannelPnl         Channel = "pnl"
	ChannelFunding     Channel = "funding"
	ChannelInterest    Channel = "interest"
	ChannelPositionFee Channel = "positionFee"
	ChannelExposure    Channel = "exposure"
)

// Accumulated returns the amount accrued to a position of the given size
// and side between two cumulative accumulator snapshots, for one channel.
// Negative per-unit deltas are scaled with outward rounding so losses are
// never under-charged.
func Accumulated(to, from *entity.MarketAccumulator, size int64, side entity.Side, channel Channel) int64 {
	net := value(to, side, channel) - value(from, side, channel)
	if net < 0 {
		return big6.MulOut(net, size)
	}
	return big6.Mul(net, size)
}

// Increment distributes amount across total units and adds the per-unit
// result to current. Negative amounts use outward rounding; a zero amount
// or zero total leaves current unchanged (a version that distributed
// nothing cannot divide).
func Increment(current, amount, total int64) int64 {
	if amount == 0 || total == 0 {
		return current
	}
	if amount < 0 {
		return current + big6.DivOut(amount, total)
	}
	return current + big6.Div(amount, total)
}

// value selects a channel for a side. The positionFee and exposure
// channels only exist on the maker side.
func value(a *entity.MarketAccumulator, side entity.Side, channel Channel) int64 {
	switch side {
	case entity.SideMaker:
		switch channel {
		case ChannelPnl:
			return a.PnlMaker
		case ChannelFunding:
			return a.FundingMaker
		case ChannelInterest:
			return a.InterestMaker
		case ChannelPositionFee:
			return a.PositionFeeMaker
		case ChannelExposure:
			return a.ExposureMaker
		}
	case entity.SideLong:
		switch channel {
		case ChannelPnl:
			return a.PnlLong
		case ChannelFunding:
			return a.FundingLong
		case ChannelInterest:
			return a.InterestLong
		}
	case entity.SideShort:
		switch channel {
		case ChannelPnl:
			return a.PnlShort
		case ChannelFunding:
			return a.FundingShort
		case ChannelInterest:
			return a.InterestShort
		}
	}
	return 0
}
