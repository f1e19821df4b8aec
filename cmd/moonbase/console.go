package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/storage"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/spf13/cobra"
)

const consoleHelp = `commands:
  info                              global state
  accounts                          every account
  balance <account>                 balance of an account
  transfer <from> <to> <amount>     transfer with fees
  deliver <from> <amount>           reflect tokens into the pool
  exclude <fee|reward> <account>    add an exclusion (owner)
  include <fee|reward> <account>    remove an exclusion (owner)
  reflection <amount> [fee]         reflected units for an amount
  dump                              state as JSON
  help, exit
accounts are hex addresses or dev aliases (dev0, dev1, ...)`

func consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive ledger console; every change is committed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, e, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			defer e.Close()

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          fmt.Sprintf("%s> ", e.Symbol()),
				HistoryFile:     filepath.Join(os.TempDir(), "moonbase_console_history.txt"),
				AutoComplete:    consoleCompleter(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("start readline: %w", err)
			}
			defer rl.Close()

			c := &console{engine: e, store: store, out: rl.Stdout()}
			fmt.Fprintln(c.out, consoleHelp)
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if quit := c.exec(line); quit {
					return nil
				}
			}
		},
	}
}

func consoleCompleter() *readline.PrefixCompleter {
	kinds := []readline.PrefixCompleterInterface{readline.PcItem("fee"), readline.PcItem("reward")}
	return readline.NewPrefixCompleter(
		readline.PcItem("info"),
		readline.PcItem("accounts"),
		readline.PcItem("balance"),
		readline.PcItem("transfer"),
		readline.PcItem("deliver"),
		readline.PcItem("exclude", kinds...),
		readline.PcItem("include", kinds...),
		readline.PcItem("reflection"),
		readline.PcItem("dump"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

type console struct {
	engine *token.Engine
	store  *storage.TokenStore
	out    io.Writer
}

// exec runs one console line and reports whether the console should exit.
func (c *console) exec(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	quit, mutated, err := c.dispatch(fields[0], fields[1:])
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return quit
	}
	if mutated {
		if _, err := c.store.Commit(c.engine); err != nil {
			fmt.Fprintf(c.out, "commit failed: %v\n", err)
		}
	}
	return quit
}

func (c *console) dispatch(cmd string, args []string) (quit, mutated bool, err error) {
	e := c.engine
	switch cmd {
	case "exit", "quit":
		return true, false, nil
	case "help":
		fmt.Fprintln(c.out, consoleHelp)
	case "info":
		fmt.Fprint(c.out, infoTree(e.Export(), false).String())
	case "accounts":
		for _, a := range e.Accounts() {
			fmt.Fprintf(c.out, "%s %s\n", a.Address.Hex(), accountLine(a))
		}
	case "balance":
		if len(args) != 1 {
			return false, false, errors.New("usage: balance <account>")
		}
		addr, err := parseAccount(args[0])
		if err != nil {
			return false, false, err
		}
		fmt.Fprintf(c.out, "%s %s\n", e.BalanceOf(addr).Dec(), e.Symbol())
	case "transfer":
		if len(args) != 3 {
			return false, false, errors.New("usage: transfer <from> <to> <amount>")
		}
		from, err := parseAccount(args[0])
		if err != nil {
			return false, false, err
		}
		to, err := parseAccount(args[1])
		if err != nil {
			return false, false, err
		}
		amount, err := parseAmount(args[2])
		if err != nil {
			return false, false, err
		}
		r, err := e.Transfer(from, to, amount)
		if err != nil {
			return false, false, err
		}
		c.printJSON(r)
		return false, true, nil
	case "deliver":
		if len(args) != 2 {
			return false, false, errors.New("usage: deliver <from> <amount>")
		}
		from, err := parseAccount(args[0])
		if err != nil {
			return false, false, err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return false, false, err
		}
		r, err := e.Deliver(from, amount)
		if err != nil {
			return false, false, err
		}
		c.printJSON(r)
		return false, true, nil
	case "exclude", "include":
		if len(args) != 2 {
			return false, false, fmt.Errorf("usage: %s <fee|reward> <account>", cmd)
		}
		addr, err := parseAccount(args[1])
		if err != nil {
			return false, false, err
		}
		on := cmd == "exclude"
		switch args[0] {
		case "fee":
			err = e.SetExcludedFromFee(e.Owner(), addr, on)
		case "reward":
			err = e.SetExcludedFromReward(e.Owner(), addr, on)
		default:
			err = fmt.Errorf("unknown exclusion %q", args[0])
		}
		if err != nil {
			return false, false, err
		}
		c.printJSON(e.AccountInfo(addr))
		return false, true, nil
	case "reflection":
		if len(args) < 1 || len(args) > 2 {
			return false, false, errors.New("usage: reflection <amount> [fee]")
		}
		amount, err := parseAmount(args[0])
		if err != nil {
			return false, false, err
		}
		r, err := e.ReflectionFromToken(amount, len(args) == 2 && args[1] == "fee")
		if err != nil {
			return false, false, err
		}
		fmt.Fprintln(c.out, r.Dec())
	case "dump":
		c.printJSON(e.Export())
	default:
		return false, false, fmt.Errorf("unknown command %q, try help", cmd)
	}
	return false, false, nil
}

func (c *console) printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn(module, "console marshal", "err", err)
		return
	}
	fmt.Fprintln(c.out, string(data))
}
