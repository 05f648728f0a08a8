package fetch

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"thp/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	cfg, _ := config.Load()
	cfg.FetchRateLimitRPS = 1000
	cfg.FetchMaxRetries = 3

	client := NewClient(cfg)
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func htmlResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestDiscoverLinks(t *testing.T) {
	page := `<html><body>
	<a href="/files/123456789_mercy_standardcharges.json">Machine readable file</a>
	<a href="https://cdn.example.test/987654321_stanford_standardCharges.csv">CSV</a>
	<a href="/files/123456789_mercy_standardcharges.json">duplicate</a>
	<a href="/about/pricing.pdf">Pricing policy</a>
	<a href="/files/notes.csv">Other CSV</a>
	</body></html>`

	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/price-transparency" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		return htmlResponse(page), nil
	})

	links, err := client.DiscoverLinks(context.Background(), "https://hospital.example.test/price-transparency")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d: %v", len(links), links)
	}
	if links[0] != "https://hospital.example.test/files/123456789_mercy_standardcharges.json" {
		t.Errorf("unexpected first link %s", links[0])
	}
	if links[1] != "https://cdn.example.test/987654321_stanford_standardCharges.csv" {
		t.Errorf("unexpected second link %s", links[1])
	}
}

func TestDownloadWithRetry(t *testing.T) {
	attempt := 0
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		if attempt == 1 {
			return &http.Response{
				StatusCode: http.StatusServiceUnavailable,
				Body:       io.NopCloser(strings.NewReader("try later")),
				Header:     make(http.Header),
			}, nil
		}
		return htmlResponse(`{"standard_charge_information":[]}`), nil
	})

	dir := t.TempDir()
	dest, err := client.Download(context.Background(), "https://hospital.example.test/files/mercy_standardcharges.json", dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dest) != "mercy_standardcharges.json" {
		t.Errorf("unexpected file name %s", dest)
	}
	blob, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(blob), "standard_charge_information") {
		t.Errorf("unexpected file contents: %s", blob)
	}
	if attempt != 2 {
		t.Errorf("expected 2 attempts, got %d", attempt)
	}
}

func TestDownloadGivesUpOnClientError(t *testing.T) {
	attempt := 0
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		attempt++
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("gone")),
			Header:     make(http.Header),
		}, nil
	})

	_, err := client.Download(context.Background(), "https://hospital.example.test/files/mercy_standardcharges.json", t.TempDir())
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if attempt != 1 {
		t.Errorf("404 should not be retried, got %d attempts", attempt)
	}
}
