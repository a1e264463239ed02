package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket bridge between clients and the channel",
	RunE:  runServe,
}

var (
	servePort   int
	serveStatic string
)

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Bridge port (default gateway.port)")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "Directory served at / (default gateway.staticDir)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	c, err := openContainer(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg := c.Config()
	if servePort != 0 {
		cfg.Gateway.Port = servePort
	}
	if serveStatic != "" {
		cfg.Gateway.StaticDir = serveStatic
	}

	br, srv := c.Bridge()
	fmt.Printf("🌉 %s bridging %s\n", br.RelayName, c.Channel())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return br.Egress(gctx) })
	g.Go(func() error { return srv.Start(gctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
