package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"planreel/internal/assets"
	"planreel/internal/fileutil"
	"planreel/internal/images"
	"planreel/internal/manifest"
	"planreel/internal/media/audio"
	"planreel/internal/media/ffprobe"
	"planreel/internal/mux"
	"planreel/internal/narration"
	"planreel/internal/reconcile"
	"planreel/internal/render"
)

func newFetchImagesCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch-images <chapter>",
		Short: "Download the chapter's figure images into the image directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
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
			if len(ch.Figures) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Chapter %02d lists no figures\n", id)
				return nil
			}

			outcomes := images.NewFetcher(cfg, logger).FetchChapter(cmd.Context(), assets.NewResolver(cfg), ch, force)
			rows := make([][]string, 0, len(outcomes))
			failed := 0
			for _, outcome := range outcomes {
				state := "saved"
				switch {
				case outcome.Err != nil:
					state = "error: " + outcome.Err.Error()
					failed++
				case outcome.Skipped:
					state = "kept"
				case outcome.Result.Resized:
					state = fmt.Sprintf("saved %dx%d (resized)", outcome.Result.Width, outcome.Result.Height)
				default:
					state = fmt.Sprintf("saved %dx%d", outcome.Result.Width, outcome.Result.Height)
				}
				rows = append(rows, []string{outcome.ID, outcome.Path, state})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{textCol("Figure"), textCol("Path"), textCol("Result")}, rows))
			if failed > 0 {
				return fmt.Errorf("%d of %d figures failed to download", failed, len(outcomes))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Download figures that already exist")
	return cmd
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "render <chapter>",
		Short: "Render the chapter's scene script into the render directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			id, err := parseChapterArg(args[0])
			if err != nil {
				return err
			}
			resolver := assets.NewResolver(cfg)
			script := resolver.ScriptPath(id)
			output := resolver.VideoPath(id)
			if err := render.NewRunner(cfg, logger).Render(cmd.Context(), script, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rendered %s\n", output)
			return nil
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var video, narrationSeconds, tolerance float64
	var videoFile, narrationFile string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare narration length against video length",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if path := strings.TrimSpace(videoFile); path != "" {
				video, err = ffprobe.VideoDuration(cmd.Context(), cfg.FFprobeBinary(), path)
				if err != nil {
					return err
				}
			}
			if path := strings.TrimSpace(narrationFile); path != "" {
				narrationSeconds, err = audio.Duration(path)
				if err != nil {
					return err
				}
			}
			if !cmd.Flags().Changed("tolerance") {
				tolerance = cfg.Reconcile.ToleranceSeconds
			}

			outcome, err := reconcile.Reconcile(video, narrationSeconds, tolerance)
			if err != nil {
				return err
			}
			if asJSON {
				if err := writeJSON(cmd, outcome); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", outcome.Kind, outcome.Describe())
			}
			if outcome.NeedsAttention() {
				return errors.New("narration exceeds video length")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&video, "video", 0, "Video duration in seconds")
	cmd.Flags().Float64Var(&narrationSeconds, "narration", 0, "Narration duration in seconds")
	cmd.Flags().Float64Var(&tolerance, "tolerance", reconcile.DefaultTolerance, "Allowed difference in seconds (defaults to reconcile.tolerance_seconds)")
	cmd.Flags().StringVar(&videoFile, "video-file", "", "Measure the video duration from this file with ffprobe")
	cmd.Flags().StringVar(&narrationFile, "narration-file", "", "Measure the narration duration from this WAV file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	cmd.MarkFlagsMutuallyExclusive("video", "video-file")
	cmd.MarkFlagsMutuallyExclusive("narration", "narration-file")
	return cmd
}

func newMuxCommand(ctx *commandContext) *cobra.Command {
	var narrationPath string

	cmd := &cobra.Command{
		Use:   "mux <chapter>",
		Short: "Combine the rendered video and chapter narration track into the deliverable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
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
			video := resolver.VideoPath(id)
			if !fileutil.Exists(video) {
				return fmt.Errorf("rendered video not found at %s (run 'planreel render %d')", video, id)
			}
			track := strings.TrimSpace(narrationPath)
			if track == "" {
				track = resolver.NarrationTrackPath(id)
			}
			if !fileutil.Exists(track) {
				return fmt.Errorf("narration track not found at %s (run 'planreel run %d' to build it)", track, id)
			}

			output := resolver.DeliverablePath(id, ch.Title)
			title := fmt.Sprintf("Chapter %d: %s", id, narration.DisplayTitle(ch.Title))
			if err := mux.NewMuxer(cfg, logger).Mux(cmd.Context(), video, track, output, title); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&narrationPath, "narration", "", "Narration WAV to use instead of the chapter narration track")
	return cmd
}
