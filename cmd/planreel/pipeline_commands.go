package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"planreel/internal/pipeline"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var all, asJSON bool

	cmd := &cobra.Command{
		Use:   "verify [chapter...]",
		Short: "Check every scene's narration audio and write the verification log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := ctx.chapterIDs(args, all)
			if err != nil {
				return err
			}
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			results := make([]pipeline.ChapterResult, 0, len(ids))
			for _, id := range ids {
				results = append(results, p.Verify(cmd.Context(), id))
			}
			if asJSON {
				reports := make([]any, 0, len(results))
				for _, result := range results {
					if result.Report != nil {
						reports = append(reports, result.Report)
						continue
					}
					reports = append(reports, map[string]any{"chapter_id": result.ChapterID, "error": errString(result.Fatal)})
				}
				if err := writeJSON(cmd, reports); err != nil {
					return err
				}
				return failedChapters(results, "verification")
			}
			printVerifyResults(cmd.OutOrStdout(), results, shouldColorize(cmd.OutOrStdout()))
			return failedChapters(results, "verification")
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Verify every chapter manifest")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reports as JSON")
	return cmd
}

func newSanitizeManifestCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "sanitize-manifest [chapter...]",
		Short: "Rewrite identifiers in manifest narration and save the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := ctx.chapterIDs(args, all)
			if err != nil {
				return err
			}
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			results := make([]pipeline.ChapterResult, 0, len(ids))
			for _, id := range ids {
				results = append(results, p.Sanitize(cmd.Context(), id))
			}
			printChapterResults(cmd.OutOrStdout(), results, shouldColorize(cmd.OutOrStdout()))
			return failedChapters(results, "sanitize")
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Sanitize every chapter manifest")
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var all, force bool

	cmd := &cobra.Command{
		Use:   "generate [chapter...]",
		Short: "Synthesize narration audio for scenes that lack it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireTTSKey(); err != nil {
				return err
			}
			ids, err := ctx.chapterIDs(args, all)
			if err != nil {
				return err
			}
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			results := make([]pipeline.ChapterResult, 0, len(ids))
			for _, id := range ids {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				results = append(results, p.Generate(cmd.Context(), id, force))
			}
			printChapterResults(cmd.OutOrStdout(), results, shouldColorize(cmd.OutOrStdout()))
			return failedChapters(results, "audio generation")
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Generate audio for every chapter manifest")
	cmd.Flags().BoolVar(&force, "force", false, "Regenerate audio that already exists")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var opts pipeline.Options

	cmd := &cobra.Command{
		Use:   "run [chapter...]",
		Short: "Run sanitize, synthesis, verification, reconciliation and mux per chapter",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := ctx.chapterIDs(args, all)
			if err != nil {
				return err
			}
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			started := time.Now()
			results := p.Run(cmd.Context(), ids, opts)
			printChapterResults(cmd.OutOrStdout(), results, shouldColorize(cmd.OutOrStdout()))
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if err := ctx.notifyRun(cmd.Context(), results, time.Since(started)); err != nil {
				return err
			}
			return failedChapters(results, "pipeline")
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Run every chapter manifest")
	cmd.Flags().BoolVar(&opts.Sanitize, "sanitize", false, "Sanitize narration before synthesis")
	cmd.Flags().BoolVar(&opts.SkipTTS, "skip-tts", false, "Do not synthesize audio")
	cmd.Flags().BoolVar(&opts.ForceTTS, "force-tts", false, "Regenerate audio that already exists")
	cmd.Flags().BoolVar(&opts.SkipMux, "skip-mux", false, "Stop after reconciliation")
	return cmd
}

// printVerifyResults prints one verdict line per chapter followed by the
// enumerated missing assets.
func printVerifyResults(out io.Writer, results []pipeline.ChapterResult, colorize bool) {
	for _, result := range results {
		if result.Report == nil {
			fmt.Fprintln(out, verdictLine(result.Summary(), false, colorize))
			continue
		}
		report := result.Report
		fmt.Fprintln(out, verdictLine(report.Summary(), report.AllOK, colorize))
		for i, missing := range report.MissingAssets {
			fmt.Fprintf(out, "  %d. %s\n", i+1, missing)
		}
		for _, fig := range report.MissingFigures {
			if fig.Reason != "" {
				fmt.Fprintf(out, "  figure %s (scene %02d) malformed: %s\n", fig.Ref, fig.SceneIndex, fig.Reason)
				continue
			}
			fmt.Fprintf(out, "  figure %s (scene %02d) not found at %s\n", fig.Ref, fig.SceneIndex, fig.Path)
		}
	}
}

func printChapterResults(out io.Writer, results []pipeline.ChapterResult, colorize bool) {
	for _, result := range results {
		fmt.Fprintln(out, verdictLine(result.Summary(), result.OK(), colorize))
		for _, failure := range result.Failures {
			fmt.Fprintf(out, "  %s scene %02d: %v\n", failure.Stage, failure.SceneIndex, failure.Err)
		}
		if result.Report != nil {
			for i, missing := range result.Report.MissingAssets {
				fmt.Fprintf(out, "  missing %d. %s\n", i+1, missing)
			}
		}
		if result.Outcome != nil && result.Outcome.NeedsAttention() {
			fmt.Fprintf(out, "  reconcile: %s\n", result.Outcome.Describe())
		}
		if result.Deliverable != "" {
			fmt.Fprintf(out, "  deliverable: %s\n", result.Deliverable)
		}
	}
}

func failedChapters(results []pipeline.ChapterResult, what string) error {
	failed := 0
	for _, result := range results {
		if !result.OK() {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%s failed for %d of %d chapters", what, failed, len(results))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
