package entity

import "github.com/ethereum/go-ethereum/common"

// TriggerOrder is a conditional order placed through the multi-invoker or
// the manager contract. Manager orders are updatable in place.
type TriggerOrder struct {
	ID            string         `json:"id"`
	Source        common.Address `json:"source"`
	Market        common.Address `json:"market"`
	Account       common.Address `json:"account"`
	MarketAccount string         `json:"marketAccount"`
	Nonce         int64          `json:"nonce"`

	TriggerSide       int32 `json:"triggerOrderSide"`
	TriggerComparison int32 `json:"triggerOrderComparison"`
	TriggerFee        int64 `json:"triggerOrderFee"`
	TriggerPrice      int64 `json:"triggerOrderPrice"`
	TriggerDelta      int64 `json:"triggerOrderDelta"`

	InterfaceFeeAmount    int64          `json:"interfaceFeeAmount"`
	InterfaceFeeReceiver  common.Address `json:"interfaceFeeReceiver"`
	InterfaceFee2Amount   int64          `json:"interfaceFee2Amount"`
	InterfaceFee2Receiver common.Address `json:"interfaceFee2Receiver"`
	Referrer              common.Address `json:"referrer"`

	// AssociatedOrder links the market Order created in the same
	// transaction, when one exists.
	AssociatedOrder string `json:"associatedOrder,omitempty"`

	PlacedTimestamp          int64        `json:"placedTimestamp"`
	TransactionHash          common.Hash  `json:"transactionHash"`
	Executed                 bool         `json:"executed"`
	ExecutionTransactionHash *common.Hash `json:"executionTransactionHash,omitempty"`
	Cancelled                bool         `json:"cancelled"`
	CancelTransactionHash    *common.Hash `json:"cancelTransactionHash,omitempty"`
}

func (t *TriggerOrder) EntityKind() Kind { return KindTriggerOrder }
func (t *TriggerOrder) EntityID() string { return t.ID }

// VaultUpdate is an append-only record of a vault deposit/redeem/claim,
// keyed by txHash:logIndex.
type VaultUpdate struct {
	ID            string         `json:"id"`
	Vault         common.Address `json:"vault"`
	Sender        common.Address `json:"sender"`
	Account       common.Address `json:"account"`
	Version       int64          `json:"version"`
	DepositAssets int64          `json:"depositAssets"`
	RedeemShares  int64          `json:"redeemShares"`
	ClaimAssets   int64          `json:"claimAssets"`

	BlockNumber     int64       `json:"blockNumber"`
	BlockTimestamp  int64       `json:"blockTimestamp"`
	TransactionHash common.Hash `json:"transactionHash"`
}

func (v *VaultUpdate) EntityKind() Kind { return KindVaultUpdate }
func (v *VaultUpdate) EntityID() string { return v.ID }
