package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dayuer/agentchat/internal/registry"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run one agent from the registry on the shared channel",
	RunE:  runAgent,
}

var (
	agentName    string
	agentPort    int
	agentMessage string
)

func init() {
	agentCmd.Flags().StringVarP(&agentName, "name", "n", "", "Agent name or key in agents.yml")
	agentCmd.Flags().IntVarP(&agentPort, "port", "p", 0, "HTTP port (default agentBasePort + position among active agents)")
	agentCmd.Flags().StringVarP(&agentMessage, "message", "m", "", "Ask the agent once and exit, without joining the channel")
	agentCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	c, err := openContainer(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	port := agentPort
	if port == 0 {
		port = defaultAgentPort(c.Registry(), agentName, c.Config().Gateway.AgentBasePort)
	}

	a, err := c.Agent(agentName, port)
	if err != nil {
		return err
	}

	if agentMessage != "" {
		resp, err := a.Loop.Ask(ctx, agentMessage)
		if err != nil {
			return err
		}
		fmt.Println(resp)
		return nil
	}

	if !a.Spec.Active {
		fmt.Printf("⚠️ %s is not marked active in the registry\n", a.Spec.Name)
	}
	fmt.Printf("🤖 %s (%s) on %s, port %d\n", a.Spec.Name, a.Provider.Info().ModelName, c.Channel(), port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Loop.Run(gctx) })
	g.Go(func() error { return a.Server.Start(gctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("agent %s: %w", a.Spec.Name, err)
	}
	fmt.Printf("\n%s stopped.\n", a.Spec.Name)
	return nil
}

// defaultAgentPort mirrors the port start assigns: base plus the agent's
// position among active agents.
func defaultAgentPort(reg *registry.Registry, name string, base int) int {
	for i, a := range reg.ActiveAgents() {
		if strings.EqualFold(a.Name, name) || strings.EqualFold(a.Key, name) {
			return base + i
		}
	}
	return base
}
