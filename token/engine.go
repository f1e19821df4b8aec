package token

import (
	"fmt"
	"sync"

	"github.com/colorfulnotion/moonbase/common"
	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/ethereum/go-ethereum/event"
	"github.com/holiman/uint256"
)

const module = log.TokenMonitoring

// Engine is the reflection ledger and its transfer pipeline. All state sits
// behind one lock: a reflection moves the rate and with it every eligible
// balance, so no finer locking is sound.
type Engine struct {
	mu sync.RWMutex

	genesis  Genesis
	owner    common.Address
	supply   *ScaledSupply
	ledger   *Ledger
	registry *ExclusionRegistry
	fees     *FeePolicy

	totalFees      uint256.Int
	totalLiquidity uint256.Int
	seq            uint64

	transferFeed event.Feed
	feeFeed      event.Feed
	scope        event.SubscriptionScope
}

// NewEngine mints the whole supply to the owner. The owner is excluded from
// fee and included in reward; the liquidity account is excluded from both.
func NewEngine(g Genesis) (*Engine, error) {
	e, err := newEngine(g)
	if err != nil {
		return nil, err
	}

	owner := Account{ExcludedFromFee: true, Mode: ModeReflected}
	owner.Units.Set(&e.supply.rTotal)
	e.ledger.put(e.owner, owner)

	e.registry.SetExcludedFromFee(e.genesis.LiquidityAccount, true)
	if err := e.registry.SetExcludedFromReward(e.genesis.LiquidityAccount, true); err != nil {
		return nil, err
	}

	log.Info(module, "genesis", "name", e.genesis.Name, "symbol", e.genesis.Symbol,
		"supply", e.genesis.TotalSupply.Dec(), "owner", e.owner.Hex(),
		"liquidity", e.genesis.LiquidityAccount.Hex(), "rate", e.supply.Rate().Dec())
	return e, nil
}

func newEngine(g Genesis) (*Engine, error) {
	g.Normalize()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	supply, err := NewScaledSupply(g.TotalSupply)
	if err != nil {
		return nil, err
	}
	ledger := NewLedger(supply)
	registry := NewExclusionRegistry(ledger, supply)
	fees, err := NewFeePolicy(registry, g.TaxFeeBps, g.LiquidityFeeBps)
	if err != nil {
		return nil, err
	}
	g.TotalSupply = new(uint256.Int).Set(g.TotalSupply)
	g.MaxTransferAmount = new(uint256.Int).Set(g.MaxTransferAmount)
	return &Engine{
		genesis:  g,
		owner:    g.Owner,
		supply:   supply,
		ledger:   ledger,
		registry: registry,
		fees:     fees,
	}, nil
}

// Transfer moves amount from sender to recipient, charging the sender's fees.
func (e *Engine) Transfer(sender, recipient common.Address, amount *uint256.Int) (*Receipt, error) {
	e.mu.Lock()
	receipt, err := e.transfer(sender, recipient, amount)
	e.mu.Unlock()
	if err != nil {
		log.Warn(module, "transfer rejected", "from", sender.Hex(), "to", recipient.Hex(),
			"amount", amountString(amount), "err", tokenerrors.GetErrorName(err))
		return nil, fmt.Errorf("transfer %s -> %s: %w", sender.Short(), recipient.Short(), err)
	}
	log.Debug(module, "transfer", "seq", receipt.Seq, "from", sender.Hex(), "to", recipient.Hex(),
		"amount", receipt.Amount.Dec(), "net", receipt.Net.Dec(),
		"reward", receipt.RewardFee.Dec(), "liquidity", receipt.LiquidityFee.Dec())
	e.publish(receipt)
	return receipt, nil
}

func (e *Engine) transfer(sender, recipient common.Address, amount *uint256.Int) (*Receipt, error) {
	switch {
	case sender.IsZero():
		return nil, tokenerrors.ErrTInvalidSender
	case recipient.IsZero():
		return nil, tokenerrors.ErrTInvalidRecipient
	case amount == nil || amount.IsZero():
		return nil, tokenerrors.ErrTZeroAmount
	}
	limit := e.genesis.MaxTransferAmount
	if !limit.IsZero() && amount.Gt(limit) && sender != e.owner && recipient != e.owner {
		return nil, tokenerrors.ErrTExceedsMaxTransfer
	}

	rate := e.supply.Rate()
	if e.ledger.balanceAt(sender, rate).Lt(amount) {
		return nil, tokenerrors.ErrTInsufficientBalance
	}
	split := e.fees.ComputeSplit(sender, recipient, amount)

	liquidity := e.genesis.LiquidityAccount
	j := e.openJournal(sender, recipient, liquidity)
	if err := e.applyTransfer(sender, recipient, amount, split, rate); err != nil {
		e.revert(j)
		return nil, err
	}

	e.seq++
	receipt := &Receipt{
		Seq:          e.seq,
		Sender:       sender,
		Recipient:    recipient,
		Amount:       new(uint256.Int).Set(amount),
		Net:          split.Net,
		RewardFee:    split.RewardFee,
		LiquidityFee: split.LiquidityFee,
		RateBefore:   rate,
		RateAfter:    e.supply.Rate(),
		TotalFees:    new(uint256.Int).Set(&e.totalFees),
	}
	receipt.addTransferLog(e.genesis.Address, TransferEvent{
		Seq:   e.seq,
		From:  sender,
		To:    recipient,
		Value: new(uint256.Int).Set(split.Net),
	})
	if split.HasFee() {
		receipt.addFeeLog(e.genesis.Address, FeeEvent{
			Seq:          e.seq,
			RewardFee:    new(uint256.Int).Set(split.RewardFee),
			LiquidityFee: new(uint256.Int).Set(split.LiquidityFee),
			TotalFees:    new(uint256.Int).Set(&e.totalFees),
			Rate:         new(uint256.Int).Set(receipt.RateAfter),
		})
	}
	return receipt, nil
}

// applyTransfer runs the debit, credits and reflection at one rate snapshot.
func (e *Engine) applyTransfer(sender, recipient common.Address, amount *uint256.Int, split Split, rate *uint256.Int) error {
	if err := e.debitReal(sender, amount, rate); err != nil {
		return err
	}
	if err := e.creditReal(recipient, split.Net, rate); err != nil {
		return err
	}
	if !split.LiquidityFee.IsZero() {
		if err := e.creditReal(e.genesis.LiquidityAccount, split.LiquidityFee, rate); err != nil {
			return err
		}
		e.totalLiquidity.Add(&e.totalLiquidity, split.LiquidityFee)
	}
	if !split.RewardFee.IsZero() {
		if err := e.supply.reflectAt(split.RewardFee, rate); err != nil {
			return err
		}
		e.totalFees.Add(&e.totalFees, split.RewardFee)
	}
	return nil
}

// debitReal takes a real amount from addr in the unit system of its account.
func (e *Engine) debitReal(addr common.Address, amount, rate *uint256.Int) error {
	reflected, err := toReflected(amount, rate)
	if err != nil {
		return err
	}
	if e.registry.IsExcludedFromReward(addr) {
		if err := e.ledger.Debit(addr, amount); err != nil {
			return err
		}
		return e.supply.unpark(amount, reflected)
	}
	return e.ledger.Debit(addr, reflected)
}

// creditReal gives a real amount to addr in the unit system of its account.
func (e *Engine) creditReal(addr common.Address, amount, rate *uint256.Int) error {
	reflected, err := toReflected(amount, rate)
	if err != nil {
		return err
	}
	if e.registry.IsExcludedFromReward(addr) {
		if err := e.ledger.Credit(addr, amount); err != nil {
			return err
		}
		return e.supply.park(amount, reflected)
	}
	return e.ledger.Credit(addr, reflected)
}

// Deliver burns amount of the sender's balance into reflection, spreading it
// over every reward-eligible holder, the sender included.
func (e *Engine) Deliver(sender common.Address, amount *uint256.Int) (*Receipt, error) {
	e.mu.Lock()
	receipt, err := e.deliver(sender, amount)
	e.mu.Unlock()
	if err != nil {
		log.Warn(module, "deliver rejected", "from", sender.Hex(), "amount", amountString(amount),
			"err", tokenerrors.GetErrorName(err))
		return nil, fmt.Errorf("deliver %s: %w", sender.Short(), err)
	}
	log.Debug(module, "deliver", "seq", receipt.Seq, "from", sender.Hex(), "amount", receipt.Amount.Dec())
	e.publish(receipt)
	return receipt, nil
}

func (e *Engine) deliver(sender common.Address, amount *uint256.Int) (*Receipt, error) {
	if amount == nil || amount.IsZero() {
		return nil, tokenerrors.ErrTZeroAmount
	}
	if e.registry.IsExcludedFromReward(sender) {
		return nil, tokenerrors.ErrRExcludedCaller
	}
	rate := e.supply.Rate()
	if e.ledger.balanceAt(sender, rate).Lt(amount) {
		return nil, tokenerrors.ErrTInsufficientBalance
	}

	j := e.openJournal(sender)
	err := e.debitReal(sender, amount, rate)
	if err == nil {
		err = e.supply.reflectAt(amount, rate)
	}
	if err != nil {
		e.revert(j)
		return nil, err
	}
	e.totalFees.Add(&e.totalFees, amount)

	e.seq++
	receipt := &Receipt{
		Seq:          e.seq,
		Sender:       sender,
		Amount:       new(uint256.Int).Set(amount),
		Net:          new(uint256.Int),
		RewardFee:    new(uint256.Int).Set(amount),
		LiquidityFee: new(uint256.Int),
		RateBefore:   rate,
		RateAfter:    e.supply.Rate(),
		TotalFees:    new(uint256.Int).Set(&e.totalFees),
	}
	receipt.addFeeLog(e.genesis.Address, FeeEvent{
		Seq:          e.seq,
		RewardFee:    new(uint256.Int).Set(amount),
		LiquidityFee: new(uint256.Int),
		TotalFees:    new(uint256.Int).Set(&e.totalFees),
		Rate:         new(uint256.Int).Set(receipt.RateAfter),
	})
	return receipt, nil
}

// SetExcludedFromFee changes the fee exemption of account. Owner only.
func (e *Engine) SetExcludedFromFee(caller, account common.Address, excluded bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return fmt.Errorf("exclude %s from fee: %w", account.Short(), tokenerrors.ErrANotOwner)
	}
	if e.registry.SetExcludedFromFee(account, excluded) {
		e.seq++
		log.Info(module, "fee exclusion changed", "account", account.Hex(), "excluded", excluded)
	}
	return nil
}

// SetExcludedFromReward moves account between reflected and absolute tracking. Owner only.
func (e *Engine) SetExcludedFromReward(caller, account common.Address, excluded bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return fmt.Errorf("exclude %s from reward: %w", account.Short(), tokenerrors.ErrANotOwner)
	}
	before := e.ledger.BalanceOf(account)
	if err := e.registry.SetExcludedFromReward(account, excluded); err != nil {
		return fmt.Errorf("exclude %s from reward: %w", account.Short(), err)
	}
	e.seq++
	log.Info(module, "reward exclusion changed", "account", account.Hex(), "excluded", excluded,
		"before", before.Dec(), "after", e.ledger.BalanceOf(account).Dec(), "rate", e.supply.Rate().Dec())
	return nil
}

// TransferOwnership hands the administrative role to newOwner. Exclusions
// stay as they are.
func (e *Engine) TransferOwnership(caller, newOwner common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return fmt.Errorf("transfer ownership: %w", tokenerrors.ErrANotOwner)
	}
	if newOwner.IsZero() {
		return fmt.Errorf("transfer ownership: %w", tokenerrors.ErrTInvalidRecipient)
	}
	log.Info(module, "ownership transferred", "from", e.owner.Hex(), "to", newOwner.Hex())
	e.owner = newOwner
	e.seq++
	return nil
}

// SubscribeTransfers delivers a TransferEvent per successful transfer. The
// engine blocks on slow subscribers, so ch should be buffered and drained.
func (e *Engine) SubscribeTransfers(ch chan<- TransferEvent) event.Subscription {
	return e.scope.Track(e.transferFeed.Subscribe(ch))
}

// SubscribeFees delivers a FeeEvent per taxed transfer or deliver.
func (e *Engine) SubscribeFees(ch chan<- FeeEvent) event.Subscription {
	return e.scope.Track(e.feeFeed.Subscribe(ch))
}

// Close ends every subscription.
func (e *Engine) Close() {
	e.scope.Close()
}

func (e *Engine) publish(r *Receipt) {
	if ev, ok := r.TransferEvent(); ok {
		e.transferFeed.Send(ev)
	}
	if ev, ok := r.FeeEvent(); ok {
		e.feeFeed.Send(ev)
	}
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return "<nil>"
	}
	return v.Dec()
}
