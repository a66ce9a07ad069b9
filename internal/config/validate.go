package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"planreel/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if _, err := language.ISO3(c.Mux.AudioLanguage); err != nil {
		return fmt.Errorf("mux.audio_language: %w", err)
	}
	return nil
}

func (c *Config) validateAssets() error {
	if got := countVerbs(c.Assets.AudioNamePattern); got != 2 {
		return fmt.Errorf("assets.audio_name_pattern must contain exactly two integer verbs (chapter, scene), found %d", got)
	}
	if strings.ContainsAny(c.Assets.AudioNamePattern, `/\`) {
		return errors.New("assets.audio_name_pattern must be a file name, not a path")
	}
	if got := countVerbs(c.Assets.VideoNamePattern); got != 1 {
		return fmt.Errorf("assets.video_name_pattern must contain exactly one integer verb (chapter), found %d", got)
	}
	return nil
}

func (c *Config) validateReconcile() error {
	tol := c.Reconcile.ToleranceSeconds
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol < 0 {
		return errors.New("reconcile.tolerance_seconds must be a finite value >= 0")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.Speed < 0.25 || c.TTS.Speed > 4.0 {
		return errors.New("tts.speed must be between 0.25 and 4.0")
	}
	if c.TTS.MaxChars < 100 {
		return errors.New("tts.max_chars must be at least 100")
	}
	return nil
}

func (c *Config) validateImages() error {
	return ensurePositiveMap(map[string]int{
		"images.max_width":       c.Images.MaxWidth,
		"images.max_height":      c.Images.MaxHeight,
		"images.timeout_seconds": c.Images.TimeoutSeconds,
	})
}

func (c *Config) validateRender() error {
	if len(c.Render.Command) == 0 {
		return nil
	}
	joined := strings.Join(c.Render.Command, " ")
	if !strings.Contains(joined, "{script}") {
		return errors.New("render.command must reference the {script} placeholder")
	}
	if got := countVerbs(c.Render.ScriptPattern); got != 1 {
		return fmt.Errorf("render.script_pattern must contain exactly one integer verb (chapter), found %d", got)
	}
	return nil
}

// RequireTTSKey reports a configuration error when speech synthesis is
// requested without credentials.
func (c *Config) RequireTTSKey() error {
	if strings.TrimSpace(c.TTS.APIKey) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("tts.api_key is required. Set PLANREEL_TTS_API_KEY (or OPENAI_API_KEY) or edit %s (create with 'planreel config init')", defaultPath)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

// countVerbs counts integer formatting verbs such as %d or %02d.
func countVerbs(pattern string) int {
	count := 0
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' {
			continue
		}
		j := i + 1
		if j < len(pattern) && pattern[j] == '%' {
			i = j
			continue
		}
		for j < len(pattern) && pattern[j] >= '0' && pattern[j] <= '9' {
			j++
		}
		if j < len(pattern) && pattern[j] == 'd' {
			count++
		}
		i = j
	}
	return count
}
