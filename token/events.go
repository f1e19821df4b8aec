package token

import (
	"github.com/colorfulnotion/moonbase/common"
	ethereumCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	// TransferTopic is the ERC-20 Transfer(address,address,uint256) event signature.
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	// FeesCollectedTopic carries (rewardFee, liquidityFee, totalFees).
	FeesCollectedTopic = crypto.Keccak256Hash([]byte("FeesCollected(uint256,uint256,uint256)"))
)

// TransferEvent is published for every successful transfer.
type TransferEvent struct {
	Seq   uint64         `json:"seq"`
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *uint256.Int   `json:"value"`
}

// FeeEvent is published whenever value is reflected or routed to the liquidity account.
type FeeEvent struct {
	Seq          uint64       `json:"seq"`
	RewardFee    *uint256.Int `json:"reward_fee"`
	LiquidityFee *uint256.Int `json:"liquidity_fee"`
	TotalFees    *uint256.Int `json:"total_fees"`
	Rate         *uint256.Int `json:"rate"`
}

// Receipt describes one applied mutation.
type Receipt struct {
	Seq          uint64         `json:"seq"`
	Sender       common.Address `json:"sender"`
	Recipient    common.Address `json:"recipient"`
	Amount       *uint256.Int   `json:"amount"`
	Net          *uint256.Int   `json:"net"`
	RewardFee    *uint256.Int   `json:"reward_fee"`
	LiquidityFee *uint256.Int   `json:"liquidity_fee"`
	RateBefore   *uint256.Int   `json:"rate_before"`
	RateAfter    *uint256.Int   `json:"rate_after"`
	TotalFees    *uint256.Int   `json:"total_fees"`
	Logs         []*types.Log   `json:"logs"`

	transfer *TransferEvent
	fee      *FeeEvent
}

// TransferEvent returns the transfer record carried by the receipt, if any.
func (r *Receipt) TransferEvent() (TransferEvent, bool) {
	if r.transfer == nil {
		return TransferEvent{}, false
	}
	return *r.transfer, true
}

// FeeEvent returns the fee record carried by the receipt, if any.
func (r *Receipt) FeeEvent() (FeeEvent, bool) {
	if r.fee == nil {
		return FeeEvent{}, false
	}
	return *r.fee, true
}

func (r *Receipt) addTransferLog(emitter common.Address, ev TransferEvent) {
	r.transfer = &ev
	r.Logs = append(r.Logs, &types.Log{
		Address:     emitter.Ethereum(),
		Topics:      []ethereumCommon.Hash{TransferTopic, addressTopic(ev.From), addressTopic(ev.To)},
		Data:        word(ev.Value),
		BlockNumber: ev.Seq,
		Index:       uint(len(r.Logs)),
	})
}

func (r *Receipt) addFeeLog(emitter common.Address, ev FeeEvent) {
	r.fee = &ev
	data := make([]byte, 0, 96)
	data = append(data, word(ev.RewardFee)...)
	data = append(data, word(ev.LiquidityFee)...)
	data = append(data, word(ev.TotalFees)...)
	r.Logs = append(r.Logs, &types.Log{
		Address:     emitter.Ethereum(),
		Topics:      []ethereumCommon.Hash{FeesCollectedTopic},
		Data:        data,
		BlockNumber: ev.Seq,
		Index:       uint(len(r.Logs)),
	})
}

func addressTopic(a common.Address) ethereumCommon.Hash {
	return ethereumCommon.BytesToHash(a.Bytes())
}

// word is the 32-byte big-endian ABI encoding of v.
func word(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}
