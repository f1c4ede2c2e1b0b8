package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/protocol"
	"github.com/GordonDrop/mcpkit/server"
)

const addRequest = `{"protocolVersion":"2.0","id":1,"method":"tool","params":{"name":"add","input":{"a":5,"b":3}}}`

func TestHTTP_Handler(t *testing.T) {
	h := NewHTTP(":0")
	srv := httptest.NewServer(h.Handler(context.Background(), testInvoker()))
	defer srv.Close()

	t.Run("post", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(addRequest))
		if err != nil {
			t.Fatalf("Post() error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(resp.Body)
		want := `{"protocolVersion":"2.0","id":1,"result":{"result":8}}`
		if got := strings.TrimSpace(string(body)); got != want {
			t.Errorf("body = %s, want %s", got, want)
		}
	})

	t.Run("get not allowed", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/mcp")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", resp.StatusCode)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(""))
		if err != nil {
			t.Fatalf("Post() error = %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(body), `"code":-32600`) {
			t.Errorf("body = %s, want invalid request", body)
		}
	})

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
			t.Errorf("health = %d %s, want 200 ok", resp.StatusCode, body)
		}
	})
}

func TestHTTP_BodyTooLarge(t *testing.T) {
	h := NewHTTP(":0", WithMaxBodySize(16))
	srv := httptest.NewServer(h.Handler(context.Background(), testInvoker()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(addRequest))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", resp.StatusCode)
	}
}

func TestHTTP_ContentType(t *testing.T) {
	h := NewHTTP(":0")
	srv := httptest.NewServer(h.Handler(context.Background(), testInvoker()))
	defer srv.Close()

	tests := []struct {
		name        string
		contentType string
		want        int
	}{
		{"json", "application/json", http.StatusOK},
		{"json with charset", "application/json; charset=utf-8", http.StatusOK},
		{"absent", "", http.StatusOK},
		{"form", "application/x-www-form-urlencoded", http.StatusUnsupportedMediaType},
		{"text", "text/plain", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(addRequest))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Do() error = %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestHTTP_HeadersBecomeRequestMeta(t *testing.T) {
	var got string
	invoke := func(ctx context.Context, _ *middleware.CallCtx) (*middleware.CallResult, error) {
		got = protocol.GetRequestMeta(ctx, "X-Api-Key")
		return &middleware.CallResult{Content: "ok"}, nil
	}
	h := NewHTTP(":0")
	srv := httptest.NewServer(h.Handler(context.Background(), invoke))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(addRequest))
	req.Header.Set("X-API-Key", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if got != "secret" {
		t.Errorf("request meta X-Api-Key = %q, want %q", got, "secret")
	}
}

func TestHTTP_StartStop(t *testing.T) {
	h := NewHTTP("127.0.0.1:0", WithShutdownTimeout(time.Second))

	done := make(chan error, 1)
	go func() { done <- h.Start(context.Background(), testInvoker()) }()
	waitFor(t, func() bool { return h.ListenAddr() != "" })

	resp, err := http.Post("http://"+h.ListenAddr()+"/mcp", "application/json", strings.NewReader(addRequest))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	_ = h.Stop()
	_ = h.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}

	if err := h.Start(context.Background(), testInvoker()); !errors.Is(err, server.ErrLifecycleViolation) {
		t.Errorf("Start() after Stop() error = %v, want lifecycle violation", err)
	}
}

func TestHTTP_ContextCancel(t *testing.T) {
	h := NewHTTP("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.Start(ctx, testInvoker()) }()
	waitFor(t, func() bool { return h.ListenAddr() != "" })

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestHTTP_RefusesWhileDraining(t *testing.T) {
	h := NewHTTP(":0")
	srv := httptest.NewServer(h.Handler(context.Background(), testInvoker()))
	defer srv.Close()

	if err := h.shutdown.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	resp, err := http.Post(srv.URL+"/mcp", "application/json", strings.NewReader(addRequest))
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHTTP_Name(t *testing.T) {
	h := NewHTTP(":8080")
	if h.Name() != "http" || h.Addr() != ":8080" {
		t.Errorf("Name(), Addr() = %q, %q", h.Name(), h.Addr())
	}
}
