package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"planreel/internal/config"
	"planreel/internal/history"
	"planreel/internal/manifest"
	"planreel/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkTTS bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show environment readiness and chapter verification state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Environment", colorize)
			results := preflight.RunAll(cmd.Context(), cfg)
			if checkTTS {
				results = append(results, preflight.CheckTTSReachable(cmd.Context(), cfg))
			}
			for _, result := range results {
				lines = append(lines, renderStatusLine(result.Name, preflightKind(result), result.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("External tools", colorize)...)
			for _, status := range preflight.CheckSystemDeps(cfg) {
				kind := statusOK
				detail := status.Command
				if !status.Available {
					kind = statusError
					if status.Optional {
						kind = statusWarn
					}
					detail = status.Detail
				}
				lines = append(lines, renderStatusLine(status.Name, kind, detail, colorize))
			}

			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			rows, err := chapterStatusRows(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Chapters", colorize) {
				fmt.Fprintln(out, line)
			}
			if len(rows) == 0 {
				fmt.Fprintf(out, "%sNo chapter manifests in %s\n", statusIndent, cfg.Paths.ManifestDir)
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]column{chapterCol, textCol("Title"), scenesCol, textCol("Last verify"), totalCol, missingCol},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkTTS, "check-tts", false, "Contact the TTS API to confirm the key is accepted")
	return cmd
}

func preflightKind(result preflight.Result) statusKind {
	switch {
	case result.Passed:
		return statusOK
	case result.Optional:
		return statusWarn
	default:
		return statusError
	}
}

// chapterStatusRows lists every manifest with its latest recorded
// verification. Manifests that fail to parse are still listed.
func chapterStatusRows(ctx context.Context, cfg *config.Config) ([][]string, error) {
	store := manifest.NewStore(cfg.Paths.ManifestDir)
	ids, err := store.ChapterIDs()
	if err != nil {
		return nil, err
	}

	ledger, ledgerErr := history.Open(cfg)
	if ledgerErr == nil {
		defer ledger.Close()
	}

	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		row := []string{fmt.Sprintf("%02d", id), "", "", "never", "", ""}
		ch, err := store.Load(id)
		if err != nil {
			row[1] = "invalid manifest: " + firstLine(err.Error())
			rows = append(rows, row)
			continue
		}
		row[1] = ch.Title
		row[2] = fmt.Sprintf("%d", len(ch.Scenes))
		if ledgerErr == nil {
			run, err := ledger.Latest(ctx, id)
			switch {
			case err == nil:
				verdict := "FAIL"
				if run.AllOK {
					verdict = "PASS"
				}
				row[3] = fmt.Sprintf("%s %s", verdict, run.CheckedAt.Local().Format("2006-01-02 15:04"))
				row[4] = secondsCell(run.TotalDuration)
				row[5] = fmt.Sprintf("%d", run.MissingCount)
			case !errors.Is(err, history.ErrNotFound):
				row[3] = "unknown"
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
