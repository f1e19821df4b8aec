package tokenspecs

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"embed"

	"github.com/colorfulnotion/moonbase/common"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
)

//go:embed *.json
var configFS embed.FS

var networkFile = map[string]string{
	"moonbase": "moonbase.json", // production parameters, 5% reflection + 5% liquidity
	"dev":      "dev.json",      // small supply, funded dev accounts, transfer cap
}

// Names lists the embedded specs.
func Names() []string {
	out := make([]string, 0, len(networkFile))
	for id := range networkFile {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ReadSpec loads an embedded spec by id, or a spec file if id is not one.
func ReadSpec(id string) (spec *TokenSpec, err error) {
	var data []byte
	path, ok := networkFile[id]
	if ok {
		data, err = configFS.ReadFile(path)
		if err != nil {
			return spec, err
		}
	} else {
		data, err = os.ReadFile(id)
		if err != nil {
			return spec, err
		}
	}
	return ParseSpec(data)
}

func ParseSpec(data []byte) (*TokenSpec, error) {
	var spec TokenSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// TokenSpec is the JSON form of a genesis. Amounts are decimal strings.
type TokenSpec struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Symbol            string            `json:"symbol"`
	Decimals          uint8             `json:"decimals"`
	TotalSupply       string            `json:"total_supply"`
	TaxFeeBps         uint16            `json:"tax_fee_bps"`
	LiquidityFeeBps   uint16            `json:"liquidity_fee_bps"`
	Owner             string            `json:"owner"`
	Address           string            `json:"address,omitempty"`
	LiquidityAccount  string            `json:"liquidity_account,omitempty"`
	MaxTransferAmount string            `json:"max_transfer_amount,omitempty"`
	Allocations       map[string]string `json:"allocations,omitempty"`
	ExcludeFromFee    []string          `json:"exclude_from_fee,omitempty"`
	ExcludeFromReward []string          `json:"exclude_from_reward,omitempty"`
}

// Genesis converts the spec into engine parameters.
func (s *TokenSpec) Genesis() (token.Genesis, error) {
	g := token.Genesis{
		Name:            s.Name,
		Symbol:          s.Symbol,
		Decimals:        s.Decimals,
		TaxFeeBps:       s.TaxFeeBps,
		LiquidityFeeBps: s.LiquidityFeeBps,
	}
	var err error
	if g.TotalSupply, err = parseAmount("total_supply", s.TotalSupply); err != nil {
		return g, err
	}
	if g.MaxTransferAmount, err = parseAmount("max_transfer_amount", s.MaxTransferAmount); err != nil {
		return g, err
	}
	if g.Owner, err = parseAddress("owner", s.Owner); err != nil {
		return g, err
	}
	if g.Address, err = parseAddress("address", s.Address); err != nil {
		return g, err
	}
	if g.LiquidityAccount, err = parseAddress("liquidity_account", s.LiquidityAccount); err != nil {
		return g, err
	}
	g.Normalize()
	return g, g.Validate()
}

// Build creates the engine and applies the spec's exclusions and allocations
// as the owner. Allocations are paid in address order.
func (s *TokenSpec) Build() (*token.Engine, error) {
	g, err := s.Genesis()
	if err != nil {
		return nil, err
	}
	e, err := token.NewEngine(g)
	if err != nil {
		return nil, err
	}
	owner := e.From(g.Owner)
	for _, a := range s.ExcludeFromFee {
		addr, err := parseAddress("exclude_from_fee", a)
		if err != nil {
			return nil, err
		}
		if err := owner.SetExcludedFromFee(addr, true); err != nil {
			return nil, err
		}
	}
	for _, a := range s.ExcludeFromReward {
		addr, err := parseAddress("exclude_from_reward", a)
		if err != nil {
			return nil, err
		}
		if err := owner.SetExcludedFromReward(addr, true); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(s.Allocations))
	for k := range s.Allocations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		addr, err := parseAddress("allocations", k)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("allocations", s.Allocations[k])
		if err != nil {
			return nil, err
		}
		if _, err := owner.Transfer(addr, amount); err != nil {
			return nil, fmt.Errorf("allocate %s: %w", k, err)
		}
	}
	return e, nil
}

// FromGenesis is the inverse of Genesis for the engine parameters.
func FromGenesis(id string, g token.Genesis) *TokenSpec {
	s := &TokenSpec{
		ID:               id,
		Name:             g.Name,
		Symbol:           g.Symbol,
		Decimals:         g.Decimals,
		TaxFeeBps:        g.TaxFeeBps,
		LiquidityFeeBps:  g.LiquidityFeeBps,
		Owner:            g.Owner.Hex(),
		Address:          g.Address.Hex(),
		LiquidityAccount: g.LiquidityAccount.Hex(),
	}
	if g.TotalSupply != nil {
		s.TotalSupply = g.TotalSupply.Dec()
	}
	if g.MaxTransferAmount != nil {
		s.MaxTransferAmount = g.MaxTransferAmount.Dec()
	}
	return s
}

func parseAmount(field, v string) (*uint256.Int, error) {
	if v == "" {
		return new(uint256.Int), nil
	}
	n, err := uint256.FromDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %v: %w", field, v, err, tokenerrors.ErrCInvalidGenesis)
	}
	return n, nil
}

func parseAddress(field, v string) (common.Address, error) {
	if v == "" {
		return common.Address{}, nil
	}
	addr, err := common.ParseAddress(v)
	if err != nil {
		return addr, fmt.Errorf("%s: %v: %w", field, err, tokenerrors.ErrCInvalidGenesis)
	}
	return addr, nil
}
