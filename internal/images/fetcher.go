package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"

	"planreel/internal/assets"
	"planreel/internal/config"
	"planreel/internal/fileutil"
	"planreel/internal/logging"
	"planreel/internal/manifest"
)

// ErrNotImage reports a download whose bytes are not a recognised image.
var ErrNotImage = errors.New("images: payload is not an image")

// FetchError reports a non-success HTTP response for a figure URL.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("images: fetch %s: http %d", e.URL, e.StatusCode)
}

// ErrorKind classifies the failure for pipeline status mapping.
func (e *FetchError) ErrorKind() string {
	if e.StatusCode == http.StatusNotFound {
		return "not_found"
	}
	return "external"
}

// Result describes one saved figure.
type Result struct {
	Path    string
	Width   int
	Height  int
	Resized bool
}

// Fetcher downloads and normalizes figure images.
type Fetcher struct {
	http      *resty.Client
	maxWidth  int
	maxHeight int
	logger    *slog.Logger
}

// NewFetcher builds a fetcher from the [images] configuration section.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := resty.New().
		SetTimeout(time.Duration(cfg.Images.TimeoutSeconds)*time.Second).
		SetHeader("User-Agent", cfg.Images.UserAgent).
		SetHeader("Accept", "image/*")
	return &Fetcher{
		http:      client,
		maxWidth:  cfg.Images.MaxWidth,
		maxHeight: cfg.Images.MaxHeight,
		logger:    logging.NewComponentLogger(logger, "images"),
	}
}

// Fetch downloads url and stores it at dst, encoded in the format implied by
// dst's extension.
func (f *Fetcher) Fetch(ctx context.Context, url, dst string) (Result, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{}, errors.New("images: empty url")
	}
	resp, err := f.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return Result{}, fmt.Errorf("images: fetch %s: %w", url, err)
	}
	if resp.IsError() {
		return Result{}, &FetchError{URL: url, StatusCode: resp.StatusCode()}
	}
	return f.store(resp.Body(), dst)
}

func (f *Fetcher) store(payload []byte, dst string) (Result, error) {
	if !filetype.IsImage(payload) {
		return Result{}, fmt.Errorf("%w (%d bytes)", ErrNotImage, len(payload))
	}
	img, err := imaging.Decode(bytes.NewReader(payload), imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("images: decode: %w", err)
	}

	result := Result{Path: dst}
	bounds := img.Bounds()
	if f.maxWidth > 0 && f.maxHeight > 0 && (bounds.Dx() > f.maxWidth || bounds.Dy() > f.maxHeight) {
		img = imaging.Fit(img, f.maxWidth, f.maxHeight, imaging.Lanczos)
		result.Resized = true
	}
	result.Width = img.Bounds().Dx()
	result.Height = img.Bounds().Dy()

	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return Result{}, fmt.Errorf("images: output format for %s: %w", dst, err)
	}
	if err := f.save(img, format, dst); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (f *Fetcher) save(img image.Image, format imaging.Format, dst string) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("images: encode %s: %w", dst, err)
	}
	if err := fileutil.WriteFileAtomic(dst, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("images: write %s: %w", dst, err)
	}
	return nil
}

// Outcome records what happened to one figure of a chapter.
type Outcome struct {
	ID      string
	URL     string
	Path    string
	Skipped bool
	Result  Result
	Err     error
}

// FetchChapter downloads every figure listed in the chapter's figure map.
// Existing files are kept unless force is set. Per-figure failures are
// recorded on the outcome and do not stop the remaining downloads.
func (f *Fetcher) FetchChapter(ctx context.Context, resolver *assets.Resolver, ch manifest.Chapter, force bool) []Outcome {
	ids := make([]string, 0, len(ch.Figures))
	for id := range ch.Figures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	logger := f.logger.With(logging.Chapter(ch.ID), logging.String(logging.FieldStage, "fetch-images"))
	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		outcome := Outcome{ID: id, URL: ch.Figures[id]}
		chapter, number, ok := assets.ParseFigureID(id)
		if !ok {
			outcome.Err = &assets.MalformedReferenceError{Value: id, Reason: "unrecognised figure id"}
			logging.WarnWithContext(logger, "figure id not recognised", "figure_id_invalid",
				logging.String("figure", id),
				logging.String(logging.FieldErrorHint, "use ids like 3-2 or Figure 3.2"))
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Path = resolver.FigurePath(chapter, number)
		if !force && fileutil.Exists(outcome.Path) {
			outcome.Skipped = true
			logger.Debug("figure already present", logging.String("figure", id), logging.String("path", outcome.Path))
			outcomes = append(outcomes, outcome)
			continue
		}
		result, err := f.Fetch(ctx, outcome.URL, outcome.Path)
		if err != nil {
			outcome.Err = err
			logging.WarnWithContext(logger, "figure download failed", "figure_fetch_failed",
				logging.String("figure", id),
				logging.String("url", outcome.URL),
				logging.Error(err),
				logging.String(logging.FieldImpact, "scene will list the figure as missing"))
		} else {
			outcome.Result = result
			logger.Info("figure saved",
				logging.String("figure", id),
				logging.String("path", result.Path),
				logging.Int("width", result.Width),
				logging.Int("height", result.Height),
				logging.Bool("resized", result.Resized))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
