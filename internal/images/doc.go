// Package images downloads figure artwork referenced by chapter manifests.
//
// Fetcher retrieves a URL, rejects payloads that are not images, decodes
// them, shrinks anything larger than the configured frame and writes the
// result where the asset resolver expects the figure. FetchChapter walks a
// manifest's figure map and reports one Outcome per figure.
package images
