package event

import "github.com/ethereum/go-ethereum/common"

// VaultUpdated is emitted on a vault deposit/redeem/claim.
type VaultUpdated struct {
	LogMeta

	Vault         common.Address
	Sender        common.Address
	Account       common.Address
	Version       int64
	DepositAssets int64
	RedeemShares  int64
	ClaimAssets   int64
}

func (e *VaultUpdated) Type() Type { return TypeVaultUpdated }
