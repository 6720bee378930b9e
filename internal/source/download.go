package source

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoindex/internal/fetcher"
	"github.com/sells-group/geoindex/internal/resilience"
)

const (
	etagSuffix = ".etag"
	partSuffix = ".part"
)

// Download fetches each URL into cacheDir and returns the local paths in URL
// order. A cached file is revalidated with its stored ETag and kept when the
// server reports no change; a cached file without an ETag is reused as is.
func Download(ctx context.Context, f fetcher.Fetcher, urls []string, cacheDir string, concurrency int) ([]string, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "download: create cache dir %s", cacheDir)
	}

	paths := make([]string, len(urls))
	seen := make(map[string]string, len(urls))
	for i, u := range urls {
		name, err := CacheName(u)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[name]; dup {
			return nil, eris.Errorf("download: %s and %s share cache name %s", prev, u, name)
		}
		seen[name] = u
		paths[i] = filepath.Join(cacheDir, name)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, u := range urls {
		dest := paths[i]
		g.Go(func() error {
			return fetchOne(gctx, f, u, dest)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// CacheName is the file name a URL is stored under in the cache directory.
func CacheName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "download: parse url %s", rawURL)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", eris.Errorf("download: no file name in url %s", rawURL)
	}
	return name, nil
}

func fetchOne(ctx context.Context, f fetcher.Fetcher, rawURL, dest string) error {
	log := zap.L().With(zap.String("component", "source.download"), zap.String("url", rawURL))

	var etag string
	if _, err := os.Stat(dest); err == nil {
		b, err := os.ReadFile(dest + etagSuffix)
		if err != nil {
			log.Info("cached file present, skipping", zap.String("path", dest))
			return nil
		}
		etag = strings.TrimSpace(string(b))
	}

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("source.download", path.Base(dest))
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		body, newETag, changed, err := f.DownloadIfChanged(ctx, rawURL, etag)
		if err != nil {
			return eris.Wrapf(err, "download: %s", rawURL)
		}
		if !changed {
			log.Info("not modified", zap.String("path", dest))
			return nil
		}
		defer body.Close() //nolint:errcheck

		n, err := writeAtomic(dest, body)
		if err != nil {
			return err
		}
		if newETag != "" {
			if err := os.WriteFile(dest+etagSuffix, []byte(newETag), 0o644); err != nil {
				return eris.Wrap(err, "download: write etag")
			}
		} else {
			_ = os.Remove(dest + etagSuffix)
		}
		log.Info("downloaded", zap.String("path", dest), zap.Int64("bytes", n))
		return nil
	})
}

// writeAtomic copies r into dest through a .part file. A failed copy leaves
// dest untouched.
func writeAtomic(dest string, r io.Reader) (int64, error) {
	part := dest + partSuffix
	out, err := os.Create(part)
	if err != nil {
		return 0, eris.Wrapf(err, "download: create %s", part)
	}
	n, err := io.Copy(out, r)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(part)
		return n, eris.Wrapf(err, "download: write %s", dest)
	}
	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return n, eris.Wrapf(err, "download: rename %s", part)
	}
	return n, nil
}
