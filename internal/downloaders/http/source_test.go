package rawsthttp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/testutils"
	"github.com/tanq16/rawst/internal/utils"
)

func newTestSource(t *testing.T, link string) *Source {
	t.Helper()
	src, err := NewSource(link, utils.NewRawstHTTPClient(utils.HTTPClientConfig{}))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	return src
}

func TestNewSourceRejectsBadURLs(t *testing.T) {
	client := utils.NewRawstHTTPClient(utils.HTTPClientConfig{})
	for _, link := range []string{"ftp://example.com/file", "https://", "::not a url"} {
		if _, err := NewSource(link, client); !errors.Is(err, utils.ErrInvalidURL) {
			t.Errorf("NewSource(%q) = %v, want ErrInvalidURL", link, err)
		}
	}
}

func TestStat(t *testing.T) {
	tests := []struct {
		name       string
		rejectHEAD bool
		noRanges   bool
		wantRanges bool
	}{
		{name: "head", wantRanges: true},
		{name: "head without ranges", noRanges: true},
		{name: "probe when head is rejected", rejectHEAD: true, wantRanges: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := testutils.NewFixture(t, testutils.Payload(1234))
			fixture.Filename = "report.pdf"
			fixture.RejectHEAD = tt.rejectHEAD
			fixture.IgnoreRanges = tt.noRanges
			info, err := newTestSource(t, fixture.URL()).Stat(context.Background())
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if info.Size != 1234 || info.Filename != "report.pdf" || info.AcceptsRanges != tt.wantRanges {
				t.Errorf("Stat() = %+v", info)
			}
		})
	}
}

func TestStatStatusCodes(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, engine.ErrNotFound},
		{http.StatusForbidden, engine.ErrForbidden},
		{http.StatusUnauthorized, engine.ErrUnauthorized},
		{http.StatusBadGateway, engine.ErrServerError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer server.Close()
			if _, err := newTestSource(t, server.URL).Stat(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("Stat() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenRange(t *testing.T) {
	data := testutils.Payload(100)
	fixture := testutils.NewFixture(t, data)
	body, err := newTestSource(t, fixture.URL()).OpenRange(context.Background(), engine.ChunkRange{Index: 1, Start: 34, End: 66})
	if err != nil {
		t.Fatalf("OpenRange: %v", err)
	}
	defer body.Close()
	got, _ := io.ReadAll(body)
	if !bytes.Equal(got, data[34:67]) {
		t.Errorf("OpenRange returned %d bytes that do not match the range", len(got))
	}
}

func TestOpenRangeRejectsIgnoredRange(t *testing.T) {
	fixture := testutils.NewFixture(t, testutils.Payload(100))
	fixture.IgnoreRanges = true
	src := newTestSource(t, fixture.URL())

	if _, err := src.OpenRange(context.Background(), engine.ChunkRange{Index: 1, Start: 34, End: 66}); !errors.Is(err, engine.ErrRangeIgnored) {
		t.Fatalf("expected ErrRangeIgnored, got %v", err)
	}
	body, err := src.OpenRange(context.Background(), engine.ChunkRange{Start: 0, End: 99})
	if err != nil {
		t.Fatalf("full-resource range should accept a 200: %v", err)
	}
	body.Close()
}

func TestOpenRangeRejectsMismatch(t *testing.T) {
	fixture := testutils.NewFixture(t, testutils.Payload(100))
	fixture.ShiftRange = true
	_, err := newTestSource(t, fixture.URL()).OpenRange(context.Background(), engine.ChunkRange{Start: 0, End: 49})
	if !errors.Is(err, engine.ErrRangeMismatch) {
		t.Fatalf("expected ErrRangeMismatch, got %v", err)
	}
}

func TestOpenRangeServerError(t *testing.T) {
	fixture := testutils.NewFixture(t, testutils.Payload(100))
	fixture.FailRange(50, 1)
	src := newTestSource(t, fixture.URL())
	r := engine.ChunkRange{Index: 1, Start: 50, End: 99}
	if _, err := src.OpenRange(context.Background(), r); !errors.Is(err, engine.ErrServerError) {
		t.Fatalf("expected ErrServerError, got %v", err)
	}
	body, err := src.OpenRange(context.Background(), r)
	if err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	body.Close()
}
