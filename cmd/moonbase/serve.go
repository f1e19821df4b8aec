package main

import (
	"context"
	"os/signal"
	"syscall"

	log "github.com/colorfulnotion/moonbase/log"
	"github.com/colorfulnotion/moonbase/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve token queries over HTTP and stream events over websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, e, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			defer e.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s := server.New(ctx, e)
			log.Info(module, "serving", "addr", addr, "datadir", dataDir, "seq", e.Seq())
			return s.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8645", "HTTP listen address")
	return cmd
}
