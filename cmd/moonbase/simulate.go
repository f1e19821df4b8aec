package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/colorfulnotion/moonbase/common"
	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

// simStats summarises one simulation run.
type simStats struct {
	Transfers int
	Delivers  int
	Failures  map[string]int
	Fees      *uint256.Int
	Liquidity *uint256.Int
}

func simulateCmd() *cobra.Command {
	var (
		steps   int
		seed    uint64
		holders int
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate random transfers between dev accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := func(e *token.Engine) error {
				stats, err := simulate(e, common.GetDevAddresses(holders), steps, seed)
				if err != nil {
					return err
				}
				printStats(e, stats)
				return nil
			}
			if !dryRun {
				return withEngine(run)
			}
			store, e, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			defer e.Close()
			return run(e)
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 100, "Number of operations")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&holders, "holders", 10, "Number of dev accounts taking part")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not commit the result")
	return cmd
}

// simulate drives steps random operations among accounts. Rejected
// operations are counted by error code; any other error aborts the run.
func simulate(e *token.Engine, accounts []common.Address, steps int, seed uint64) (*simStats, error) {
	if len(accounts) < 2 {
		return nil, fmt.Errorf("need at least 2 accounts, have %d", len(accounts))
	}
	rng := rand.New(rand.NewSource(seed))
	stats := &simStats{Failures: make(map[string]int)}
	feesBefore := e.TotalFees()
	liquidityBefore := e.TotalLiquidity()

	for i := 0; i < steps; i++ {
		sender := accounts[rng.Intn(len(accounts))]
		amount := randomAmount(rng, e.BalanceOf(sender), e.MaxTransferAmount())

		var err error
		if rng.Intn(20) == 0 {
			_, err = e.Deliver(sender, amount)
			if err == nil {
				stats.Delivers++
			}
		} else {
			recipient := accounts[rng.Intn(len(accounts))]
			_, err = e.Transfer(sender, recipient, amount)
			if err == nil {
				stats.Transfers++
			}
		}
		if err == nil {
			continue
		}
		if !expectedRejection(err) {
			return stats, fmt.Errorf("step %d: %w", i, err)
		}
		stats.Failures[tokenerrors.GetErrorCodeWithName(err)]++
		log.Trace(module, "simulated op rejected", "step", i, "sender", sender.Short(), "err", err)
	}
	stats.Fees = new(uint256.Int).Sub(e.TotalFees(), feesBefore)
	stats.Liquidity = new(uint256.Int).Sub(e.TotalLiquidity(), liquidityBefore)
	return stats, nil
}

// randomAmount picks an amount up to a quarter of balance, bounded by ceiling
// when ceiling is set. Zero balances yield zero, which the engine rejects.
func randomAmount(rng *rand.Rand, balance, ceiling *uint256.Int) *uint256.Int {
	limit := new(uint256.Int).Rsh(balance, 2)
	if !ceiling.IsZero() && limit.Gt(ceiling) {
		limit.Set(ceiling)
	}
	if limit.IsZero() {
		return new(uint256.Int).Set(balance)
	}
	if limit.IsUint64() {
		return uint256.NewInt(rng.Uint64n(limit.Uint64()) + 1)
	}
	// 64 random bits scaled into [1, limit]
	v, _ := new(uint256.Int).MulDivOverflow(limit, uint256.NewInt(rng.Uint64()), two64)
	return v.AddUint64(v, 1)
}

var two64 = new(uint256.Int).Lsh(uint256.NewInt(1), 64)

func expectedRejection(err error) bool {
	for _, target := range []error{
		tokenerrors.ErrTInsufficientBalance,
		tokenerrors.ErrTZeroAmount,
		tokenerrors.ErrTExceedsMaxTransfer,
		tokenerrors.ErrRExcludedCaller,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func printStats(e *token.Engine, s *simStats) {
	fmt.Printf("transfers: %d\n", s.Transfers)
	fmt.Printf("delivers:  %d\n", s.Delivers)
	codes := make([]string, 0, len(s.Failures))
	for code := range s.Failures {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Printf("rejected:  %d %s\n", s.Failures[code], code)
	}
	fmt.Printf("reflected: %s\n", s.Fees.Dec())
	fmt.Printf("liquidity: %s\n", s.Liquidity.Dec())
	fmt.Printf("rate:      %s\n", e.Rate().Dec())
}
