package ledger

import (
	"PerpIndexer/internal/entity"
	"PerpIndexer/internal/event"
	"PerpIndexer/internal/store"
)

// HandleVaultUpdated appends a vault deposit/redeem/claim record.
func (l *Ledger) HandleVaultUpdated(e *event.VaultUpdated) error {
	store.LoadOrCreateAccount(l.store, e.Account)

	l.store.Save(&entity.VaultUpdate{
		ID:              entity.LogID(e.TxHash, e.LogIndex),
		Vault:           e.Vault,
		Sender:          e.Sender,
		Account:         e.Account,
		Version:         e.Version,
		DepositAssets:   e.DepositAssets,
		RedeemShares:    e.RedeemShares,
		ClaimAssets:     e.ClaimAssets,
		BlockNumber:     e.BlockNumber,
		BlockTimestamp:  e.BlockTimestamp,
		TransactionHash: e.TxHash,
	})
	return nil
}
