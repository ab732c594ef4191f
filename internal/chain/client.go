package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client is the ethclient-backed Caller.
type Client struct {
	eth *ethclient.Client
}

func NewClient(eth *ethclient.Client) *Client {
	return &Client{eth: eth}
}

var (
	selOracleAt       = selector("at(uint256)")
	selRiskParameter  = selector("riskParameter()")
	selParameter      = selector("parameter()")
	selPayoff         = selector("payoff(int256)")
)

func selector(sig string) []byte {
	return crypto.Keccak256([]byte(sig))[:4]
}

// VersionAt reads the sub-oracle's committed price point at a timestamp.
// The returned struct is (timestamp, price, valid).
func (c *Client) VersionAt(ctx context.Context, subOracle common.Address, timestamp int64) (int64, bool, error) {
	data := append(append([]byte{}, selOracleAt...), word(timestamp)...)
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &subOracle, Data: data}, nil)
	if err != nil {
		return 0, false, fmt.Errorf("oracle at(%d): %w", timestamp, err)
	}
	if len(out) < 96 {
		return 0, false, fmt.Errorf("oracle at(%d): short return (%d bytes)", timestamp, len(out))
	}
	price := wordInt64(out[32:64])
	valid := out[95] != 0
	return price, valid, nil
}

// LiquidationFee reads the market's liquidation fee through the versioned
// accessor chain: the risk parameter struct changed shape between
// versions, so a reverted read falls through to the older accessor.
func (c *Client) LiquidationFee(ctx context.Context, market common.Address) (int64, error) {
	res, err := FirstOf(ctx, market,
		c.structWordStrategy(selRiskParameter, 8),
		c.structWordStrategy(selParameter, 5),
	)
	if err != nil {
		return 0, err
	}
	if !res.OK {
		return 0, fmt.Errorf("liquidation fee: no accessor succeeded for %s", market.Hex())
	}
	return res.Value, nil
}

// structWordStrategy reads one word out of a struct-returning accessor.
// A revert yields a not-OK result so the next strategy can be tried.
func (c *Client) structWordStrategy(sel []byte, wordIndex int) ParamStrategy {
	return func(ctx context.Context, contract common.Address) (ParamResult, error) {
		out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: sel}, nil)
		if err != nil {
			// Reverted call: the contract predates this accessor shape.
			return ParamResult{}, nil
		}
		if len(out) < (wordIndex+1)*32 {
			return ParamResult{}, nil
		}
		return ParamResult{Value: wordInt64(out[wordIndex*32 : (wordIndex+1)*32]), OK: true}, nil
	}
}

// TransformPayoff applies a legacy payoff transform contract to a price.
func (c *Client) TransformPayoff(ctx context.Context, payoff common.Address, price int64) (int64, error) {
	data := append(append([]byte{}, selPayoff...), word(price)...)
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &payoff, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("payoff(%d): %w", price, err)
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("payoff(%d): short return (%d bytes)", price, len(out))
	}
	return wordInt64(out[:32]), nil
}

// word ABI-encodes an int64 as a 32-byte big-endian word.
func word(v int64) []byte {
	b := make([]byte, 32)
	x := big.NewInt(v)
	if v < 0 {
		// Two's complement over 256 bits.
		x.Add(x, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	x.FillBytes(b)
	return b
}

// wordInt64 decodes a signed 32-byte word into an int64.
func wordInt64(b []byte) int64 {
	x := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		x.Sub(x, new(big.Int).Lsh(big.NewInt(1), 256))
	}
	return x.Int64()
}
