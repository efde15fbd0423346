package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chunkvtt/internal/config"
	"chunkvtt/internal/notifications"
	"chunkvtt/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var probeAPI bool
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check external tools and recognizer prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			results := preflight.RunAll(cmd.Context(), cfg)
			if probeAPI && cfg.Recognizer.Engine == config.EngineOpenAI {
				results = append(results, preflight.CheckOpenAI(cmd.Context(), cfg.Recognizer))
			}
			fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			fmt.Fprintf(out, "Engine: %s\n\n", cfg.Recognizer.Engine)
			fmt.Fprintln(out, renderCheckTable(results))

			if notify {
				if err := sendTestNotification(cmd, cfg); err != nil {
					return err
				}
			}

			if failed := preflight.Failures(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&probeAPI, "api", false, "Also contact the OpenAI API to verify the key")
	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification to the configured ntfy topic")
	return cmd
}

func renderCheckTable(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		if !r.Passed {
			status = "FAIL"
		}
		rows = append(rows, []string{r.Name, status, r.Detail})
	}
	return renderTable([]column{left("Check"), left("Status"), left("Detail")}, rows, "")
}

func sendTestNotification(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	if cfg.Notifications.NtfyTopic == "" {
		fmt.Fprintln(out, "Notifications disabled (notifications.ntfy_topic is empty)")
		return nil
	}
	service := notifications.NewService(cfg)
	payload := notifications.Payload{"sent_at": time.Now().Format(time.RFC3339)}
	if err := service.Publish(cmd.Context(), notifications.EventTest, payload); err != nil {
		return fmt.Errorf("send test notification: %w", err)
	}
	fmt.Fprintln(out, "Test notification sent")
	return nil
}
