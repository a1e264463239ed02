package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayuer/agentchat/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "List and export stored conversations",
}

var (
	exportLimit    int
	exportFormat   string
	exportOut      string
	exportDir      string
	exportSchedule string
)

func init() {
	exportShowCmd.Flags().IntVarP(&exportLimit, "limit", "l", export.DefaultLimit, "Number of history entries to read")
	exportShowCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "markdown, html or json (default export.format)")
	exportShowCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to this file instead of stdout")

	exportArchiveCmd.Flags().IntVarP(&exportLimit, "limit", "l", export.DefaultLimit, "Number of history entries per channel")
	exportArchiveCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "markdown, html or json (default export.format)")
	exportArchiveCmd.Flags().StringVar(&exportDir, "dir", "", "Output directory (default export.dir)")
	exportArchiveCmd.Flags().StringVar(&exportSchedule, "schedule", "", "Cron schedule; without one, archive once and exit (default export.schedule)")

	exportCmd.AddCommand(exportListCmd, exportShowCmd, exportArchiveCmd)
	rootCmd.AddCommand(exportCmd)
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List channels with stored history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := openContainer(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		channels, err := c.Exporter(0).Channels(ctx)
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			fmt.Println("No conversations stored.")
			return nil
		}
		for _, ch := range channels {
			n, err := c.History().Len(ctx, ch)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%d entries\n", ch, n)
		}
		return nil
	},
}

var exportShowCmd = &cobra.Command{
	Use:   "show <channel>",
	Short: "Render one channel's transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := openContainer(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		f, err := export.ParseFormat(firstNonEmpty(exportFormat, c.Config().Export.Format))
		if err != nil {
			return err
		}
		t, err := c.Exporter(exportLimit).Transcript(ctx, args[0])
		if err != nil {
			return err
		}
		data, err := export.Render(t, f)
		if err != nil {
			return err
		}
		if exportOut == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOut, data, 0644); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %d messages to %s\n", len(t.Lines), exportOut)
		return nil
	},
}

var exportArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Write every channel's transcript to a directory, once or on a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		c, err := openContainer(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		cfg := c.Config().Export
		f, err := export.ParseFormat(firstNonEmpty(exportFormat, cfg.Format))
		if err != nil {
			return err
		}
		a := export.NewArchiver(c.Exporter(exportLimit), firstNonEmpty(exportDir, cfg.Dir), f)

		schedule := firstNonEmpty(exportSchedule, cfg.Schedule)
		if schedule == "" {
			paths, err := a.RunOnce(ctx)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		}
		return a.Run(ctx, schedule)
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
