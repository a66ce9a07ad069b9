package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"planreel/internal/config"
	"planreel/internal/history"
	"planreel/internal/logging"
	"planreel/internal/manifest"
	"planreel/internal/pipeline"
	"planreel/internal/tts"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger once and prunes expired log and
// report files.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		pruned := logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
			logging.RetentionTarget{
				Dir:     cfg.Paths.LogDir,
				Pattern: "*.log",
				Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
			},
			logging.RetentionTarget{Dir: cfg.Paths.ReportDir, Pattern: "chapter_*_verify.log"},
		)
		if pruned > 0 {
			logger.Debug("pruned expired logs", logging.Int("count", pruned))
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// newPipeline wires a pipeline with the history ledger and, when a key is
// configured, the HTTP TTS client. The returned cleanup closes the ledger.
func (c *commandContext) newPipeline() (*pipeline.Pipeline, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	deps := pipeline.Deps{}
	cleanup := func() {}
	if store, err := history.Open(cfg); err != nil {
		logging.WarnWithContext(logger, "history ledger unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "verification runs will not be recorded"))
	} else {
		deps.History = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("close history ledger", logging.Error(err))
			}
		}
	}
	if cfg.RequireTTSKey() == nil {
		clientCfg, _ := tts.ConfigFrom(cfg)
		deps.Synthesizer = tts.NewClient(clientCfg)
	}
	return pipeline.New(cfg, logger, deps), cleanup, nil
}

// chapterIDs turns positional arguments into chapter numbers. Arguments may
// be plain numbers or manifest paths; --all selects every manifest on disk.
func (c *commandContext) chapterIDs(args []string, all bool) ([]int, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with chapter arguments")
		}
		ids, err := manifest.NewStore(cfg.Paths.ManifestDir).ChapterIDs()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("no chapter manifests found in %s", cfg.Paths.ManifestDir)
		}
		return ids, nil
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("specify one or more chapters or use --all")
	}
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := parseChapterArg(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseChapterArg(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.Atoi(arg); err == nil {
		if id < 1 {
			return 0, fmt.Errorf("invalid chapter number: %d", id)
		}
		return id, nil
	}
	if id, ok := manifest.ChapterIDFromPath(arg); ok {
		return id, nil
	}
	return 0, fmt.Errorf("invalid chapter %q: expected a number or chapter_NN.json", arg)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
