// Package fetcher downloads source datasets and streams the tabular files
// inside them: CSV, ZIP and zstd-compressed tar archives, and XLSX sheets.
package fetcher

import (
	"context"
	"io"
)

// Fetcher retrieves remote dataset files.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadIfChanged sends etag as If-None-Match. When the server answers
	// 304 it returns a nil body, the same etag and changed=false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (body io.ReadCloser, newETag string, changed bool, err error)
}

var _ Fetcher = (*HTTPFetcher)(nil)
