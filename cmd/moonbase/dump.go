package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/colorfulnotion/moonbase/token"
	"github.com/spf13/cobra"
	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
	"golang.org/x/exp/slices"
)

func dumpCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the full token state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, e, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			defer e.Close()
			data, err := json.MarshalIndent(e.Export(), "", "  ")
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Println(string(data))
				return nil
			}
			return os.WriteFile(out, append(data, '\n'), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}

func diffCmd() *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "diff <before.json> <after.json>",
		Short: "Show the difference between two state dumps",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			left, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			right, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			text, modified, err := diffDumps(left, right, !noColor)
			if err != nil {
				return err
			}
			if !modified {
				fmt.Println("dumps are identical")
				return nil
			}
			fmt.Println(text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors")
	return cmd
}

// diffDumps renders the delta between two JSON documents.
func diffDumps(left, right []byte, coloring bool) (string, bool, error) {
	delta, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return "", false, fmt.Errorf("diff: %w", err)
	}
	if !delta.Modified() {
		return "", false, nil
	}
	var leftObj interface{}
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return "", false, err
	}
	asciiFmt := formatter.NewAsciiFormatter(leftObj, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       coloring,
	})
	text, err := asciiFmt.Format(delta)
	if err != nil {
		return "", false, fmt.Errorf("format diff: %w", err)
	}
	return text, true, nil
}

// sortedAccounts lists the dump's accounts by address.
func sortedAccounts(d token.Dump) []token.AccountInfo {
	keys := make([]string, 0, len(d.Accounts))
	for k := range d.Accounts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, strings.Compare)
	out := make([]token.AccountInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, d.Accounts[k])
	}
	return out
}
