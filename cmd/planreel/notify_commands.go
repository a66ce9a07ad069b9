package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"planreel/internal/logging"
	"planreel/internal/notifications"
	"planreel/internal/pipeline"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications disabled: set notifications.ntfy_topic to enable them")
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}

// notifyRun publishes one message per chapter and a batch summary. Delivery
// failures are logged and never fail the run.
func (c *commandContext) notifyRun(ctx context.Context, results []pipeline.ChapterResult, elapsed time.Duration) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	svc := notifications.NewService(cfg)
	warn := func(err error) {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run summary not delivered"))
	}

	passed, failed := 0, 0
	for _, result := range results {
		if result.OK() {
			passed++
		} else {
			failed++
		}
		event := notifications.ChapterEvent{
			ChapterID:   result.ChapterID,
			Title:       result.Title,
			OK:          result.OK(),
			Summary:     result.Summary(),
			Deliverable: result.Deliverable,
		}
		if result.Report != nil {
			event.Missing = len(result.Report.MissingAssets)
		}
		if err := svc.NotifyChapterComplete(ctx, event); err != nil {
			warn(err)
		}
	}
	if len(results) > 1 {
		if err := svc.NotifyRunComplete(ctx, passed, failed, elapsed); err != nil {
			warn(err)
		}
	}
	return nil
}
