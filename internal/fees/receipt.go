// Package fees decomposes collateral deltas into named fee components.
// Fees charged at order creation leave no field on the order event; they
// are detected from transaction-receipt log evidence. Fees charged at
// settlement arrive structured on the settlement events.
package fees

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"PerpIndexer/internal/big6"
)

// Receipt log signatures for out-of-band fee emissions.
var (
	// InterfaceFeeCharged(address indexed account, IMarket indexed market, InterfaceFee fee)
	topicInterfaceFeeCharged = common.HexToHash(
		"0x7bdf48e07cd0f3669b6ef1a2004307c0c28e2c22d70ae7a6d8e1ea1b42690591")

	// InterfaceFeeCharged(address indexed, address indexed, (uint256,address))
	topicInterfaceFeeChargedV23 = common.HexToHash(
		"0x037af8589fe92360e800c649b0515b0b2bf77b577766ff952b17630c4ad25f47")

	// TriggerOrderInterfaceFeeCharged(address indexed, address indexed, (uint256,address,bool,bool))
	topicManagerInterfaceFeeCharged = common.HexToHash(
		"0x53287d6489871e2ad186467efe70bdd15afbbd29f769f1e1c639b4d5a5d654ed")

	// KeeperCall(address indexed sender, uint256 gasUsed, UFixed18 multiplier, uint256 buffer, UFixed18 keeperFee)
	topicKeeperCallV20 = common.HexToHash(
		"0xd7848cca80f0c7619e9c50ea855dd15779e356a791d0630001913eab6f7eaef7")

	// KeeperCall(address indexed sender, uint256 applicableGas, uint256 applicableValue, UFixed18 baseFee, UFixed18 calldataFee, UFixed18 keeperFee)
	topicKeeperCallV21 = common.HexToHash(
		"0xfa0333956d06e335c550bd5fc4ac9c003c6545e371331b1071fa4d5d8519d6c1")
)

// ReceiptFees is the result of scanning a transaction receipt.
type ReceiptFees struct {
	// InterfaceFee is the additive fee charged by a UI/interface.
	InterfaceFee int64

	// OrderFee is the keeper fee charged for trigger-order execution.
	OrderFee int64
}

// ProcessReceipt scans a transaction's logs for interface-fee and
// keeper-fee emissions matching a collateral withdrawal. These fees can
// only be charged on negative collateral deltas with zero size delta:
// the withdrawal IS the fee, and the match condition is exact equality
// with the withdrawn amount.
func ProcessReceipt(logs []*types.Log, collateral, sizeDelta int64) ReceiptFees {
	var out ReceiptFees
	if len(logs) == 0 || collateral >= 0 || sizeDelta != 0 {
		return out
	}
	withdrawal := -collateral

	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		switch l.Topics[0] {
		case topicInterfaceFeeCharged, topicInterfaceFeeChargedV23, topicManagerInterfaceFeeCharged:
			if amount, ok := firstWord6(l.Data); ok && amount == withdrawal {
				out.InterfaceFee += amount
			}
		case topicKeeperCallV20:
			if amount, ok := word18(l.Data, 3); ok && amount == withdrawal {
				out.OrderFee = amount
			}
		case topicKeeperCallV21:
			if amount, ok := word18(l.Data, 4); ok && amount == withdrawal {
				out.OrderFee = amount
			}
		}
	}
	return out
}

// firstWord6 decodes the first data word as a 6-decimal fee amount.
func firstWord6(data []byte) (int64, bool) {
	if len(data) < 32 {
		return 0, false
	}
	return new(big.Int).SetBytes(data[:32]).Int64(), true
}

// word18 decodes the n-th data word as an 18-decimal keeper fee, rounded
// up: keepers are paid in full.
func word18(data []byte, n int) (int64, bool) {
	if len(data) < (n+1)*32 {
		return 0, false
	}
	return big6.FromBig18(new(big.Int).SetBytes(data[n*32:(n+1)*32]), true), true
}
