package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChatStream(t *testing.T) {
	t.Run("returns raw body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/chat" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			var req ChatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if !req.Stream {
				t.Error("stream flag must be forced on")
			}
			if req.Model != "llama3" {
				t.Errorf("unexpected model %q", req.Model)
			}
			io.WriteString(w, `{"message":{"content":"hi"},"done":true}`+"\n")
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		body, err := client.ChatStream(context.Background(), ChatRequest{
			Model:    "llama3",
			Messages: []Message{{Role: "user", Content: "hello"}},
		})
		if err != nil {
			t.Fatalf("ChatStream failed: %v", err)
		}
		defer body.Close()

		raw, _ := io.ReadAll(body)
		if !strings.Contains(string(raw), `"done":true`) {
			t.Errorf("unexpected body: %s", raw)
		}
	})

	t.Run("not bounded by the request timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flusher := w.(http.Flusher)
			io.WriteString(w, `{"message":{"content":"Hel"},"done":false}`+"\n")
			flusher.Flush()
			// A local model thinking between tokens can outlast the
			// lifecycle-operation timeout by a lot.
			time.Sleep(150 * time.Millisecond)
			io.WriteString(w, `{"message":{"content":"lo"},"done":true}`+"\n")
		}))
		defer server.Close()

		client := NewClient(server.URL, 20*time.Millisecond)
		body, err := client.ChatStream(context.Background(), ChatRequest{Model: "llama3"})
		if err != nil {
			t.Fatalf("ChatStream failed: %v", err)
		}
		defer body.Close()

		raw, err := io.ReadAll(body)
		if err != nil {
			t.Fatalf("reading past the request timeout failed: %v", err)
		}
		if !strings.Contains(string(raw), `"done":true`) {
			t.Errorf("stream cut short: %s", raw)
		}
	})

	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"model not loaded"}`, http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		_, err := client.ChatStream(context.Background(), ChatRequest{Model: "llama3"})
		if err == nil {
			t.Fatal("expected error")
		}
		var upstreamErr *UpstreamError
		if !errors.As(err, &upstreamErr) {
			t.Fatalf("expected UpstreamError, got %T", err)
		}
		if upstreamErr.Kind != KindStatus {
			t.Errorf("expected KindStatus, got %v", upstreamErr.Kind)
		}
		if upstreamErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", upstreamErr.StatusCode)
		}
		if !strings.Contains(err.Error(), "Ollama returned HTTP 500") {
			t.Errorf("unexpected message: %q", err.Error())
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		// Grab a port nothing listens on.
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		client := NewClient(url, time.Second)
		_, err := client.ChatStream(context.Background(), ChatRequest{Model: "llama3"})
		if err == nil {
			t.Fatal("expected error")
		}
		var upstreamErr *UpstreamError
		if !errors.As(err, &upstreamErr) {
			t.Fatalf("expected UpstreamError, got %T", err)
		}
		if upstreamErr.Kind != KindConnect {
			t.Errorf("expected KindConnect, got %v", upstreamErr.Kind)
		}
		if !strings.Contains(err.Error(), "Make sure Ollama is running") {
			t.Errorf("unexpected message: %q", err.Error())
		}
	})
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{"models":[{"name":"llama3:latest","model":"llama3:latest","size":4661224676}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || models[0].Name != "llama3:latest" {
		t.Errorf("unexpected models: %+v", models)
	}
}

func TestShowModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'ghost' not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.ShowModel(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Model 'ghost' not found" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestDeleteModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if r.URL.Path != "/api/delete" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	status, err := client.DeleteModel(context.Background(), "old-model")
	if err != nil {
		t.Fatalf("DeleteModel failed: %v", err)
	}
	if status == nil {
		t.Fatal("expected a status response")
	}
}

func TestTimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)
	_, err := client.ListModels(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %T: %v", err, err)
	}
	if upstreamErr.Kind != KindTimeout {
		t.Errorf("expected KindTimeout, got %v", upstreamErr.Kind)
	}
}
