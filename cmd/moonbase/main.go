// moonbase operates a reflection-fee token ledger kept in a LevelDB
// directory: genesis, transfers, exclusions, state dumps and an HTTP/websocket
// endpoint.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/colorfulnotion/moonbase/common"
	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/storage"
	"github.com/colorfulnotion/moonbase/token"
	"github.com/colorfulnotion/moonbase/tokenerrors"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

const module = log.CLIMonitoring

var (
	dataDir   string
	specName  string
	logLevel  string
	debug     string
	logRecord string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if code := tokenerrors.GetErrorCode(err); code != "" {
			fmt.Fprintf(os.Stderr, "  code: %s\n", tokenerrors.GetErrorCodeWithName(err))
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "moonbase",
		Short:         "MoonBase reflection token ledger",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.InitLogger(logLevel)
			log.EnableModules(debug)
			if logRecord != "" {
				log.RecordLogs()
			}
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logRecord == "" {
				return nil
			}
			data, err := log.GetRecordedLogs()
			if err != nil {
				return err
			}
			return os.WriteFile(logRecord, data, 0o644)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&dataDir, "datadir", "d", filepath.Join(os.Getenv("HOME"), ".moonbase"), "Data directory")
	rootCmd.PersistentFlags().StringVar(&specName, "spec", "dev", "Token spec (embedded name or JSON file)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&debug, "debug", "", "Debug modules to enable (token,storage,server,cli)")
	rootCmd.PersistentFlags().StringVar(&logRecord, "log-record", "", "Write every log record of the run to this JSON file")

	rootCmd.AddCommand(
		genesisCmd(),
		infoCmd(),
		balanceCmd(),
		transferCmd(),
		deliverCmd(),
		excludeCmd(),
		dumpCmd(),
		diffCmd(),
		simulateCmd(),
		consoleCmd(),
		serveCmd(),
	)
	return rootCmd
}

// openStore opens dataDir and loads the engine kept there.
func openStore() (*storage.TokenStore, *token.Engine, error) {
	store, err := storage.NewTokenStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dataDir, err)
	}
	e, err := store.Open()
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load %s: %w (run `moonbase genesis` first)", dataDir, err)
	}
	return store, e, nil
}

// withEngine runs fn against the stored engine and commits what it changed.
func withEngine(fn func(e *token.Engine) error) error {
	store, e, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	defer e.Close()
	if err := fn(e); err != nil {
		return err
	}
	n, err := store.Commit(e)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Debug(module, "committed", "accounts", n, "seq", e.Seq())
	return nil
}

// parseAccount accepts a hex address or a dev account alias such as "dev3".
func parseAccount(s string) (common.Address, error) {
	if idx, ok := strings.CutPrefix(s, "dev"); ok {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 {
			return common.Address{}, fmt.Errorf("invalid dev account %q", s)
		}
		addr, _ := common.GetDevAccount(i)
		return addr, nil
	}
	return common.ParseAddress(s)
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func printReceipt(r *token.Receipt) {
	fmt.Printf("seq %d: %s -> %s\n", r.Seq, r.Sender.Hex(), r.Recipient.Hex())
	fmt.Printf("  amount:        %s\n", r.Amount.Dec())
	fmt.Printf("  net:           %s\n", r.Net.Dec())
	fmt.Printf("  reward fee:    %s\n", r.RewardFee.Dec())
	fmt.Printf("  liquidity fee: %s\n", r.LiquidityFee.Dec())
	fmt.Printf("  rate:          %s -> %s\n", r.RateBefore.Dec(), r.RateAfter.Dec())
	fmt.Printf("  logs:          %d\n", len(r.Logs))
}
