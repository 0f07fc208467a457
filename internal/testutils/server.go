// Package testutils serves deterministic payloads over HTTP with range
// support and injectable faults.
package testutils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

// Payload returns n bytes whose value depends on their offset, so a byte in
// the wrong place shows up in a comparison.
func Payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

type Fixture struct {
	Server *httptest.Server
	Data   []byte

	// Filename is sent as Content-Disposition when set.
	Filename string
	// IgnoreRanges answers every GET with 200 and the full body and does not
	// advertise Accept-Ranges.
	IgnoreRanges bool
	// RejectHEAD answers HEAD with 405.
	RejectHEAD bool
	// ShiftRange makes 206 replies start one byte late.
	ShiftRange bool

	mu       sync.Mutex
	failures map[int64]int
	requests atomic.Int32
}

func NewFixture(t testing.TB, data []byte) *Fixture {
	t.Helper()
	f := &Fixture{Data: data, failures: make(map[int64]int)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *Fixture) URL() string {
	return f.Server.URL + "/files/payload.bin"
}

// FailRange makes the next times GETs for a range starting at start answer
// 500. A negative times fails forever.
func (f *Fixture) FailRange(start int64, times int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[start] = times
}

// Requests counts GET requests served, including failed ones.
func (f *Fixture) Requests() int {
	return int(f.requests.Load())
}

func (f *Fixture) shouldFail(start int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining, ok := f.failures[start]
	if !ok || remaining == 0 {
		return false
	}
	if remaining > 0 {
		f.failures[start] = remaining - 1
	}
	return true
}

func (f *Fixture) serve(w http.ResponseWriter, r *http.Request) {
	size := int64(len(f.Data))
	if f.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	}
	if !f.IgnoreRanges {
		w.Header().Set("Accept-Ranges", "bytes")
	}
	switch r.Method {
	case http.MethodHead:
		if f.RejectHEAD {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	f.requests.Add(1)
	rangeHeader := r.Header.Get("Range")
	if f.IgnoreRanges || rangeHeader == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		w.Write(f.Data)
		return
	}
	var start, end int64
	if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end); err != nil || start > end || end >= size {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if f.shouldFail(start) {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if f.ShiftRange && end+1 < size {
		start, end = start+1, end+1
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(f.Data[start : end+1])
}
