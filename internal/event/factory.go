package event

import "github.com/ethereum/go-ethereum/common"

// MarketCreated is emitted by the market factory. The v2.0 shape carries
// a payoff transform reference; later versions dropped it.
type MarketCreated struct {
	LogMeta

	Market common.Address
	Token  common.Address
	Oracle common.Address

	// Payoff is nil for the payoff-less shape.
	Payoff *common.Address
}

func (e *MarketCreated) Type() Type { return TypeMarketCreated }

// OracleUpdated is emitted when a market's oracle, or an oracle's
// sub-oracle provider, is replaced. Exactly one of Market/Oracle is set
// depending on the emitting contract.
type OracleUpdated struct {
	LogMeta

	// Market is set when a market switched oracles.
	Market *common.Address

	// Oracle is set when an oracle switched sub-oracle providers.
	Oracle *common.Address

	NewProvider common.Address
}

func (e *OracleUpdated) Type() Type { return TypeOracleUpdated }

// OperatorUpdated toggles an operator approval for an account. Source
// distinguishes market-factory operators from multi-invoker operators.
type OperatorUpdated struct {
	LogMeta

	Source   common.Address
	Account  common.Address
	Operator common.Address
	Enabled  bool

	// MultiInvoker selects which operator list is updated.
	MultiInvoker bool
}

func (e *OperatorUpdated) Type() Type { return TypeOperatorUpdated }
