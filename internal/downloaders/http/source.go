package rawsthttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/utils"
)

// Source reads an http(s) resource by byte range.
type Source struct {
	url    string
	client *utils.RawstHTTPClient
}

func NewSource(link string, client *utils.RawstHTTPClient) (*Source, error) {
	parsedURL, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidURL, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", utils.ErrInvalidURL, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("%w: missing host", utils.ErrInvalidURL)
	}
	return &Source{url: link, client: client}, nil
}

// Stat sends a HEAD request. Servers that reject HEAD are probed with a
// one-byte range GET instead.
func (s *Source) Stat(ctx context.Context) (engine.RemoteInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return engine.RemoteInfo{}, fmt.Errorf("error creating request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return engine.RemoteInfo{}, fmt.Errorf("error checking URL: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		log.Debug().Str("op", "http/source").Msgf("HEAD rejected with %d, probing with a range request", resp.StatusCode)
		return s.probe(ctx)
	}
	if err := checkStatusCode(resp.StatusCode); err != nil {
		return engine.RemoteInfo{}, err
	}
	return engine.RemoteInfo{
		Size:          resp.ContentLength,
		Filename:      utils.FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
		AcceptsRanges: strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes"),
	}, nil
}

func (s *Source) probe(ctx context.Context) (engine.RemoteInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return engine.RemoteInfo{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := s.client.Do(req)
	if err != nil {
		return engine.RemoteInfo{}, fmt.Errorf("error probing URL: %w", err)
	}
	defer resp.Body.Close()
	info := engine.RemoteInfo{
		Size:     -1,
		Filename: utils.FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
	}
	switch resp.StatusCode {
	case http.StatusPartialContent:
		_, _, total, err := utils.ParseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return engine.RemoteInfo{}, err
		}
		info.Size = total
		info.AcceptsRanges = true
	case http.StatusOK:
		info.Size = resp.ContentLength
	default:
		if err := checkStatusCode(resp.StatusCode); err != nil {
			return engine.RemoteInfo{}, err
		}
	}
	return info, nil
}

// OpenRange issues a GET for r and returns the body. A 200 reply is only
// accepted when it is exactly the requested bytes, i.e. r covers the whole
// resource; otherwise the server ignored the range and ErrRangeIgnored is
// returned.
func (s *Source) OpenRange(ctx context.Context, r engine.ChunkRange) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Range", r.Header())
	req.Header.Set("Connection", "keep-alive")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		if err := validatePartial(resp, r); err != nil {
			resp.Body.Close()
			return nil, err
		}
		return resp.Body, nil
	case http.StatusOK:
		if r.Start == 0 && resp.ContentLength == r.Len() {
			return resp.Body, nil
		}
		resp.Body.Close()
		return nil, engine.ErrRangeIgnored
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s rejected", engine.ErrRangeMismatch, r.Header())
	default:
		resp.Body.Close()
		if err := checkStatusCode(resp.StatusCode); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

func validatePartial(resp *http.Response, r engine.ChunkRange) error {
	if contentRange := resp.Header.Get("Content-Range"); contentRange != "" {
		start, end, _, err := utils.ParseContentRange(contentRange)
		if err != nil {
			return err
		}
		if start != r.Start || end != r.End {
			return fmt.Errorf("%w: asked for %d-%d, got %d-%d", engine.ErrRangeMismatch, r.Start, r.End, start, end)
		}
	}
	if resp.ContentLength >= 0 && resp.ContentLength != r.Len() {
		return fmt.Errorf("%w: expected %d bytes, server sent %d", engine.ErrRangeMismatch, r.Len(), resp.ContentLength)
	}
	return nil
}
