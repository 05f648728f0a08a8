// Package fetch locates and downloads hospital standard-charges files.
// CMS requires the machine-readable file name to contain "standardcharges",
// which is what discovery keys on.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"thp/internal/config"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.FetchTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.FetchRateLimitRPS),
	}
}

// DiscoverLinks scrapes a hospital transparency page and returns absolute
// URLs of the machine-readable charge files linked from it.
func (c *Client) DiscoverLinks(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	seen := map[string]struct{}{}
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if !isChargeFileURL(resolved) {
			return
		}
		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return links, nil
}

func isChargeFileURL(u *url.URL) bool {
	name := strings.ToLower(path.Base(u.Path))
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".json", ".csv", ".xlsx":
	default:
		return false
	}
	return strings.Contains(name, "standardcharges")
}

// Download saves the file at fileURL under destDir and returns the local
// path. The file name is taken from the URL.
func (c *Client) Download(ctx context.Context, fileURL, destDir string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive file name from %s", fileURL)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	body, err := c.get(ctx, fileURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	dest := filepath.Join(destDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(out, body); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("download %s: %w", fileURL, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	return dest, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	maxRetries := c.cfg.FetchMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "thp/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			if isRetryableStatus(resp.StatusCode) && attempt < maxRetries {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("status %d from %s", resp.StatusCode, rawURL)
				continue
			}
			return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
		}

		return resp.Body, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("fetch %s failed", rawURL)
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
