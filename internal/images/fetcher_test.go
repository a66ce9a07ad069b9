package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/disintegration/imaging"

	"planreel/internal/assets"
	"planreel/internal/manifest"
	"planreel/internal/testsupport"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func figureServer(t *testing.T) *httptest.Server {
	t.Helper()
	large := pngBytes(t, 400, 200)
	small := pngBytes(t, 40, 30)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "planreel-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		switch r.URL.Path {
		case "/large.png":
			_, _ = w.Write(large)
		case "/small.png":
			_, _ = w.Write(small)
		case "/page.html":
			_, _ = w.Write([]byte("<html><body>not a figure</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestFetcher(t *testing.T) (*Fetcher, *assets.Resolver) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Images.MaxWidth = 100
	cfg.Images.MaxHeight = 100
	cfg.Images.UserAgent = "planreel-test"
	return NewFetcher(cfg, nil), assets.NewResolver(cfg)
}

func TestFetchResizesLargeImages(t *testing.T) {
	server := figureServer(t)
	fetcher, resolver := newTestFetcher(t)
	dst := resolver.FigurePath(3, 2)

	result, err := fetcher.Fetch(context.Background(), server.URL+"/large.png", dst)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.Resized || result.Width != 100 || result.Height != 50 {
		t.Fatalf("unexpected result %+v", result)
	}
	saved, err := imaging.Open(dst)
	if err != nil {
		t.Fatalf("open saved figure: %v", err)
	}
	if saved.Bounds().Dx() != 100 || saved.Bounds().Dy() != 50 {
		t.Fatalf("unexpected saved bounds %v", saved.Bounds())
	}
}

func TestFetchKeepsSmallImages(t *testing.T) {
	server := figureServer(t)
	fetcher, resolver := newTestFetcher(t)

	result, err := fetcher.Fetch(context.Background(), server.URL+"/small.png", resolver.FigurePath(1, 1))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Resized || result.Width != 40 || result.Height != 30 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestFetchRejectsBadPayloads(t *testing.T) {
	server := figureServer(t)
	fetcher, resolver := newTestFetcher(t)
	dst := resolver.FigurePath(1, 2)

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/page.html", dst); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	_, err := fetcher.Fetch(context.Background(), server.URL+"/gone.png", dst)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.ErrorKind() != "not_found" {
		t.Fatalf("expected not_found FetchError, got %v", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("expected no file written, stat err=%v", statErr)
	}
}

func TestFetchChapter(t *testing.T) {
	server := figureServer(t)
	fetcher, resolver := newTestFetcher(t)

	existing := resolver.FigurePath(4, 1)
	testsupport.WriteFile(t, existing, pngBytes(t, 10, 10))

	ch := manifest.Chapter{ID: 4, Figures: map[string]string{
		"4-1":        server.URL + "/large.png",
		"Figure 4.2": server.URL + "/small.png",
		"cover":      server.URL + "/small.png",
		"4-3":        server.URL + "/missing.png",
	}}
	outcomes := fetcher.FetchChapter(context.Background(), resolver, ch, false)
	if len(outcomes) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(outcomes))
	}
	byID := map[string]Outcome{}
	for _, outcome := range outcomes {
		byID[outcome.ID] = outcome
	}
	if !byID["4-1"].Skipped {
		t.Fatalf("expected existing figure skipped: %+v", byID["4-1"])
	}
	if got := byID["Figure 4.2"]; got.Err != nil || got.Path != resolver.FigurePath(4, 2) {
		t.Fatalf("unexpected outcome for 4.2: %+v", got)
	}
	if !errors.Is(byID["cover"].Err, assets.ErrMalformedAssetReference) {
		t.Fatalf("expected malformed id error, got %v", byID["cover"].Err)
	}
	if byID["4-3"].Err == nil {
		t.Fatal("expected download failure for 4-3")
	}

	forced := fetcher.FetchChapter(context.Background(), resolver, manifest.Chapter{ID: 4, Figures: map[string]string{"4-1": server.URL + "/large.png"}}, true)
	if forced[0].Skipped || forced[0].Err != nil || !forced[0].Result.Resized {
		t.Fatalf("expected forced refetch, got %+v", forced[0])
	}
}
