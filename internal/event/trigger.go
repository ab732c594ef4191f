package event

import "github.com/ethereum/go-ethereum/common"

// TriggerOrderPlaced is emitted by the multi-invoker or the manager when
// a conditional order is placed. Manager orders (Updatable) may be
// re-placed under the same nonce.
type TriggerOrderPlaced struct {
	LogMeta

	Source  common.Address
	Market  common.Address
	Account common.Address
	Nonce   int64

	Side       int32
	Comparison int32
	Fee        int64
	Price      int64
	Delta      int64

	InterfaceFeeAmount    int64
	InterfaceFeeReceiver  common.Address
	InterfaceFee2Amount   int64
	InterfaceFee2Receiver common.Address

	// Referrer is explicit on manager orders; multi-invoker orders derive
	// it from the interface-fee receivers.
	Referrer common.Address

	// Updatable is true for manager orders.
	Updatable bool
}

func (e *TriggerOrderPlaced) Type() Type { return TypeTriggerOrderPlaced }

// TriggerOrderExecuted marks a trigger order as executed.
type TriggerOrderExecuted struct {
	LogMeta

	Source common.Address
	Nonce  int64
}

func (e *TriggerOrderExecuted) Type() Type { return TypeTriggerOrderExecuted }

// TriggerOrderCancelled marks a trigger order as cancelled.
type TriggerOrderCancelled struct {
	LogMeta

	Source common.Address
	Nonce  int64
}

func (e *TriggerOrderCancelled) Type() Type { return TypeTriggerOrderCancelled }
