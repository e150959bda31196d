package util

import (
	"net/http"
	"testing"
	"time"
)

func TestNewProxyFunc(t *testing.T) {
	tests := []struct {
		name      string
		http      string
		https     string
		noProxy   string
		target    string
		wantProxy string
	}{
		{"http request uses http proxy", "http://proxy:8080", "", "", "http://api.example.com/v1", "http://proxy:8080"},
		{"https falls back to http proxy", "http://proxy:8080", "", "", "https://api.example.com/v1", "http://proxy:8080"},
		{"https uses https proxy", "http://proxy:8080", "http://secure:8443", "", "https://api.example.com/v1", "http://secure:8443"},
		{"no_proxy host is direct", "http://proxy:8080", "", "internal.example.com", "http://internal.example.com/api", ""},
		{"no_proxy domain suffix is direct", "http://proxy:8080", "", ".corp.local", "https://llm.corp.local/api", ""},
		{"loopback is direct", "http://proxy:8080", "", "", "http://localhost:11434/api/tags", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := NewProxyFunc(tt.http, tt.https, tt.noProxy)
			req, err := http.NewRequest(http.MethodGet, tt.target, nil)
			if err != nil {
				t.Fatalf("Failed to build request: %v", err)
			}

			got, err := fn(req)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			if tt.wantProxy == "" {
				if got != nil {
					t.Errorf("Expected direct connection, got proxy %s", got)
				}
				return
			}
			if got == nil || got.String() != tt.wantProxy {
				t.Errorf("Expected proxy %s, got %v", tt.wantProxy, got)
			}
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(5*time.Second, "http://proxy:8080", "", "")
	if c.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %s", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr.Proxy == nil {
		t.Fatal("Expected transport with proxy function")
	}
}
