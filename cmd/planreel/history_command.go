package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"planreel/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var show string
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history [chapter]",
		Short: "List recorded verification runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			out := cmd.OutOrStdout()

			if pruneDays > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -pruneDays))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d runs older than %d days\n", removed, pruneDays)
				return nil
			}

			if id := strings.TrimSpace(show); id != "" {
				run, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Run %s  chapter %02d  %s\n", run.ID, run.ChapterID, run.CheckedAt.Local().Format(time.RFC3339))
				fmt.Fprint(out, run.Report)
				return nil
			}

			chapter := 0
			if len(args) == 1 {
				chapter, err = parseChapterArg(args[0])
				if err != nil {
					return err
				}
			}
			runs, err := store.List(cmd.Context(), chapter, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No verification runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				verdict := "FAIL"
				if run.AllOK {
					verdict = "PASS"
				}
				rows = append(rows, []string{
					run.CheckedAt.Local().Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%02d", run.ChapterID),
					verdict,
					fmt.Sprintf("%d", run.SceneCount),
					fmt.Sprintf("%d", run.MissingCount),
					secondsCell(run.TotalDuration),
					run.ID,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{textCol("Checked"), chapterCol, textCol("Result"), scenesCol, missingCol, totalCol, textCol("Run")},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	cmd.Flags().StringVar(&show, "show", "", "Print the stored report for a run id")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete runs older than this many days")
	return cmd
}
