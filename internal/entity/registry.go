package entity

// NewForKind returns a zero-valued entity of the given kind, for
// decoding persisted rows back into concrete types.
func NewForKind(kind Kind) Entity {
	switch kind {
	case KindAccount:
		return &Account{}
	case KindMarket:
		return &Market{}
	case KindMarketAccount:
		return &MarketAccount{}
	case KindPosition:
		return &Position{}
	case KindOrder:
		return &Order{}
	case KindMarketOrder:
		return &MarketOrder{}
	case KindOracle:
		return &Oracle{}
	case KindSubOracle:
		return &SubOracle{}
	case KindOracleVersion:
		return &OracleVersion{}
	case KindOrderAccumulation:
		return &OrderAccumulation{}
	case KindMarketAccumulator:
		return &MarketAccumulator{}
	case KindMarketAccumulation:
		return &MarketAccumulation{}
	case KindMarketAccountAccumulation:
		return &MarketAccountAccumulation{}
	case KindAccountAccumulation:
		return &AccountAccumulation{}
	case KindReferrerAccumulation:
		return &ReferrerAccumulation{}
	case KindProtocolAccumulation:
		return &ProtocolAccumulation{}
	case KindMarketSocializationPeriod:
		return &MarketSocializationPeriod{}
	case KindTriggerOrder:
		return &TriggerOrder{}
	case KindVaultUpdate:
		return &VaultUpdate{}
	default:
		return nil
	}
}
