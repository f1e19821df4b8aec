package main

import (
	"fmt"

	"github.com/colorfulnotion/moonbase/common"
	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/storage"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/colorfulnotion/moonbase/tokenspecs"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
)

func genesisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genesis",
		Short: "Create the token state in the data directory from --spec",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := tokenspecs.ReadSpec(specName)
			if err != nil {
				return fmt.Errorf("read spec %s: %w", specName, err)
			}
			id := spec.ID
			if id == "" {
				id = specName
			}
			e, err := spec.Build()
			if err != nil {
				return err
			}
			defer e.Close()

			store, err := storage.NewTokenStore(dataDir)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Init(id, e); err != nil {
				return err
			}
			log.Info(module, "genesis written", "spec", id, "datadir", dataDir, "holders", e.HolderCount())
			fmt.Printf("%s (%s) initialised in %s\n", e.Name(), e.Symbol(), dataDir)
			fmt.Printf("  token:     %s\n", e.Address().Hex())
			fmt.Printf("  owner:     %s\n", e.Owner().Hex())
			fmt.Printf("  liquidity: %s\n", e.LiquidityAccount().Hex())
			fmt.Printf("  supply:    %s\n", e.TotalSupply().Dec())
			return nil
		},
	}
}

func infoCmd() *cobra.Command {
	var withAccounts bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print token parameters and global state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, e, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			defer e.Close()
			fmt.Print(infoTree(e.Export(), withAccounts).String())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&withAccounts, "accounts", "a", false, "List every account")
	return cmd
}

func infoTree(d token.Dump, withAccounts bool) treeprint.Tree {
	info := d.Token
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("\033[1;34m%s (%s)\033[0m, decimals %d, seq %d", info.Name, info.Symbol, info.Decimals, info.Seq))

	roles := tree.AddBranch("addresses")
	roles.AddMetaNode("token", info.Address.Hex())
	roles.AddMetaNode("owner", info.Owner.Hex())
	roles.AddMetaNode("liquidity", info.LiquidityAccount.Hex())

	supply := tree.AddBranch("supply")
	supply.AddMetaNode("total", info.TotalSupply.Dec())
	supply.AddMetaNode("reflection", info.TotalReflection.Dec())
	supply.AddMetaNode("rate", info.Rate.Dec())
	supply.AddMetaNode("excluded real", info.ExcludedReal.Dec())
	supply.AddMetaNode("excluded reflected", info.ExcludedReflected.Dec())

	fees := tree.AddBranch("fees")
	fees.AddMetaNode("tax bps", info.TaxFeeBps)
	fees.AddMetaNode("liquidity bps", info.LiquidityFeeBps)
	fees.AddMetaNode("max transfer", maxTransferString(info))
	fees.AddMetaNode("reflected", info.TotalFees.Dec())
	fees.AddMetaNode("liquidity", info.TotalLiquidity.Dec())

	holders := tree.AddMetaBranch(info.Holders, "holders")
	if withAccounts {
		for _, a := range sortedAccounts(d) {
			holders.AddMetaNode(a.Address.Hex(), accountLine(a))
		}
	}
	return tree
}

func maxTransferString(info token.TokenInfo) string {
	if info.MaxTransferAmount.IsZero() {
		return "unlimited"
	}
	return info.MaxTransferAmount.Dec()
}

func accountLine(a token.AccountInfo) string {
	line := fmt.Sprintf("\033[1;32m%s\033[0m (%s units %s)", a.Balance.Dec(), a.Mode, a.Units.Dec())
	if a.ExcludedFromFee {
		line += " fee-exempt"
	}
	if a.ExcludedFromReward {
		line += " reward-excluded"
	}
	return line
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>...",
		Short: "Print the balance of each account",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, e, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			defer e.Close()
			for _, arg := range args {
				addr, err := parseAccount(arg)
				if err != nil {
					return err
				}
				fmt.Printf("%s %s %s\n", addr.Hex(), e.BalanceOf(addr).Dec(), e.Symbol())
			}
			return nil
		},
	}
}

func transferCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "transfer <to> <amount>",
		Short: "Transfer tokens, applying the reflection and liquidity fees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withEngine(func(e *token.Engine) error {
				sender, err := senderOrOwner(e, from)
				if err != nil {
					return err
				}
				r, err := e.From(sender).Transfer(to, amount)
				if err != nil {
					return err
				}
				printReceipt(r)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Sender (default: owner)")
	return cmd
}

func deliverCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "deliver <amount>",
		Short: "Burn tokens from the sender into the reflection pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			return withEngine(func(e *token.Engine) error {
				sender, err := senderOrOwner(e, from)
				if err != nil {
					return err
				}
				r, err := e.From(sender).Deliver(amount)
				if err != nil {
					return err
				}
				printReceipt(r)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Sender (default: owner)")
	return cmd
}

func excludeCmd() *cobra.Command {
	var (
		caller string
		off    bool
	)
	cmd := &cobra.Command{
		Use:       "exclude <fee|reward> <account>",
		Short:     "Exclude an account from fees or reflection rewards (--off to include it again)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"fee", "reward"},
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccount(args[1])
			if err != nil {
				return err
			}
			return withEngine(func(e *token.Engine) error {
				admin, err := senderOrOwner(e, caller)
				if err != nil {
					return err
				}
				s := e.From(admin)
				switch args[0] {
				case "fee":
					err = s.SetExcludedFromFee(account, !off)
				case "reward":
					err = s.SetExcludedFromReward(account, !off)
				default:
					return fmt.Errorf("unknown exclusion %q, want fee or reward", args[0])
				}
				if err != nil {
					return err
				}
				a := e.AccountInfo(account)
				fmt.Printf("%s fee-exempt=%v reward-excluded=%v balance=%s\n",
					account.Hex(), a.ExcludedFromFee, a.ExcludedFromReward, a.Balance.Dec())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "Calling account (default: owner)")
	cmd.Flags().BoolVar(&off, "off", false, "Remove the exclusion instead")
	return cmd
}

func senderOrOwner(e *token.Engine, s string) (addr common.Address, err error) {
	if s == "" {
		return e.Owner(), nil
	}
	return parseAccount(s)
}
