package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"planreel/internal/assets"
	"planreel/internal/fileutil"
	"planreel/internal/manifest"
	"planreel/internal/narration"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <chapter>",
		Short: "Show where each scene's audio and figures are expected on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			id, err := parseChapterArg(args[0])
			if err != nil {
				return err
			}
			ch, err := manifest.NewStore(cfg.Paths.ManifestDir).Load(id)
			if err != nil {
				return err
			}
			resolver := assets.NewResolver(cfg)
			resolved, resolveErr := resolver.Resolve(ch)

			if asJSON {
				if err := writeJSON(cmd, resolved); err != nil {
					return err
				}
				return resolveErr
			}

			rows := make([][]string, 0, len(resolved.Scenes))
			for _, scene := range resolved.Scenes {
				figures := lo.Map(scene.Figures, func(fig assets.Figure, _ int) string {
					mark := ""
					if !fileutil.Exists(fig.Path) {
						mark = " (missing)"
					}
					return fig.Ref + mark
				})
				rows = append(rows, []string{
					fmt.Sprintf("%02d", scene.Index),
					scene.Audio,
					yesNo(fileutil.Exists(scene.Audio)),
					strings.Join(figures, ", "),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]column{sceneCol, textCol("Audio"), textCol("Exists"), textCol("Figures")},
				rows,
			))
			fmt.Fprintf(out, "Video:  %s\n", resolver.VideoPath(id))
			fmt.Fprintf(out, "Script: %s\n", resolver.ScriptPath(id))
			fmt.Fprintf(out, "Output: %s\n", resolver.DeliverablePath(id, ch.Title))
			if resolveErr != nil {
				for _, line := range strings.Split(resolveErr.Error(), "\n") {
					fmt.Fprintf(out, "  %s\n", line)
				}
				return fmt.Errorf("chapter %02d has malformed asset references", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print resolved paths as JSON")
	return cmd
}

func newLintCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "lint [chapter...]",
		Short: "Flag narration whose estimated spoken length exceeds the scene target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			ids, err := ctx.chapterIDs(args, all)
			if err != nil {
				return err
			}
			store := manifest.NewStore(cfg.Paths.ManifestDir)
			out := cmd.OutOrStdout()

			var errs []error
			flagged := 0
			for _, id := range ids {
				ch, err := store.Load(id)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				rows := make([][]string, 0, len(ch.Scenes))
				for _, scene := range ch.Scenes {
					estimate := narration.EstimateSeconds(scene.NarrationText, cfg.TTS.WordsPerMinute)
					target, hasTarget := scene.TargetSeconds()
					note := "ok"
					switch {
					case strings.TrimSpace(scene.NarrationText) == "":
						note = "empty narration"
						flagged++
					case hasTarget && estimate > target:
						note = fmt.Sprintf("over by %.1fs", estimate-target)
						flagged++
					case !hasTarget:
						note = "no target"
					}
					targetText := "-"
					if hasTarget {
						targetText = fmt.Sprintf("%.1fs", target)
					}
					rows = append(rows, []string{
						fmt.Sprintf("%02d", scene.Index),
						fmt.Sprintf("%d", narration.Words(scene.NarrationText)),
						fmt.Sprintf("%.1fs", estimate),
						targetText,
						note,
					})
				}
				fmt.Fprintf(out, "Chapter %02d: %s\n", ch.ID, narration.DisplayTitle(ch.Title))
				fmt.Fprintln(out, renderTable(
					[]column{sceneCol, numCol("Words"), numCol("Estimate"), numCol("Target"), textCol("Note")},
					rows,
				))
			}
			if flagged > 0 {
				errs = append(errs, fmt.Errorf("%d scenes need narration changes", flagged))
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Lint every chapter manifest")
	return cmd
}

func newScaffoldCommand(ctx *commandContext) *cobra.Command {
	var title string
	var scenes int
	var seconds float64

	cmd := &cobra.Command{
		Use:   "scaffold <chapter>",
		Short: "Create a chapter manifest with numbered scenes and expected audio names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			id, err := parseChapterArg(args[0])
			if err != nil {
				return err
			}
			if scenes < 1 {
				return fmt.Errorf("--scenes must be at least 1")
			}
			store := manifest.NewStore(cfg.Paths.ManifestDir)
			path := store.Path(id)
			if fileutil.Exists(path) {
				return fmt.Errorf("manifest already exists at %s", path)
			}

			resolver := assets.NewResolver(cfg)
			ch := manifest.Chapter{ID: id, Title: strings.TrimSpace(title)}
			for i := 1; i <= scenes; i++ {
				scene := manifest.Scene{
					Index:   i,
					Title:   fmt.Sprintf("Scene %d", i),
					TTSFile: resolver.ExpectedAudioName(id, i),
				}
				if seconds > 0 {
					target := seconds
					scene.Duration = &target
				}
				ch.Scenes = append(ch.Scenes, scene)
			}
			if err := store.Save(ch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d-scene manifest to %s\n", scenes, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Chapter title")
	cmd.Flags().IntVar(&scenes, "scenes", 1, "Number of scenes")
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "Target duration per scene in seconds (0 leaves it unset)")
	return cmd
}
