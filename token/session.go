package token

import (
	"github.com/colorfulnotion/moonbase/common"
	"github.com/holiman/uint256"
)

// Session binds a caller identity to the engine's mutation surface.
type Session struct {
	engine *Engine
	caller common.Address
}

// From returns a session acting as caller.
func (e *Engine) From(caller common.Address) *Session {
	return &Session{engine: e, caller: caller}
}

func (s *Session) Caller() common.Address { return s.caller }

func (s *Session) Transfer(recipient common.Address, amount *uint256.Int) (*Receipt, error) {
	return s.engine.Transfer(s.caller, recipient, amount)
}

func (s *Session) Deliver(amount *uint256.Int) (*Receipt, error) {
	return s.engine.Deliver(s.caller, amount)
}

func (s *Session) SetExcludedFromFee(account common.Address, excluded bool) error {
	return s.engine.SetExcludedFromFee(s.caller, account, excluded)
}

func (s *Session) SetExcludedFromReward(account common.Address, excluded bool) error {
	return s.engine.SetExcludedFromReward(s.caller, account, excluded)
}

func (s *Session) TransferOwnership(newOwner common.Address) error {
	return s.engine.TransferOwnership(s.caller, newOwner)
}

func (s *Session) Balance() *uint256.Int {
	return s.engine.BalanceOf(s.caller)
}
