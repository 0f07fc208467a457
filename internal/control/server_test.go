package control

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInfo(t *testing.T) {
	server := httptest.NewServer(NewServer("127.0.0.1:0", "v1.2.3", time.Second, time.Second).Handler())
	defer server.Close()

	info, err := NewClient(server.URL, time.Second).Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Version != "v1.2.3" {
		t.Errorf("version = %q, want v1.2.3", info.Version)
	}
}

func TestRoutes(t *testing.T) {
	handler := NewServer("127.0.0.1:0", "dev", time.Second, time.Second).Handler()
	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/info", http.StatusOK},
		{http.MethodPost, "/info", http.StatusMethodNotAllowed},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", "dev", time.Second, time.Second)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()
	time.Sleep(50 * time.Millisecond)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Start returned %v after Stop", err)
	}
}

func TestClientAddsScheme(t *testing.T) {
	c := NewClient("127.0.0.1:7878/", time.Second)
	if c.baseURL != "http://127.0.0.1:7878" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}
