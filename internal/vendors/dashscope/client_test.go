package dashscope

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wenjia-zhai/genbridge/constants"
	"github.com/wenjia-zhai/genbridge/internal/common"
	"github.com/wenjia-zhai/genbridge/internal/task"
	"github.com/wenjia-zhai/genbridge/internal/vendors"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: baseURL}, nil)
}

func TestClient_SubmitImage(t *testing.T) {
	var gotPath, gotAuth, gotAsync string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAsync = r.Header.Get("X-DashScope-Async")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"output":{"task_id":"task-123","task_status":"PENDING"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	handle, err := c.Submit(context.Background(), vendors.GenerationParams{
		Kind:   "IMAGE",
		Prompt: "a lighthouse at dusk",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.ID != "task-123" {
		t.Fatalf("handle.ID=%q, want task-123", handle.ID)
	}
	if gotPath != imageEndpoint {
		t.Fatalf("path=%q, want %q", gotPath, imageEndpoint)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth=%q", gotAuth)
	}
	if gotAsync != "enable" {
		t.Fatalf("async header=%q, want enable", gotAsync)
	}
	if gotBody["model"] != defaultImageModel {
		t.Fatalf("model=%v, want default image model", gotBody["model"])
	}
}

func TestClient_SubmitVideoRoutesToVideoEndpoint(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"output":{"task_id":"task-v1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Submit(context.Background(), vendors.GenerationParams{
		Kind:     "VIDEO",
		Prompt:   "waves",
		ImageURL: "https://example.com/frame.png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != videoEndpoint {
		t.Fatalf("path=%q, want %q", gotPath, videoEndpoint)
	}
	input, _ := gotBody["input"].(map[string]any)
	if input["img_url"] != "https://example.com/frame.png" {
		t.Fatalf("img_url missing from video request: %v", gotBody)
	}
}

func TestClient_SubmitNoTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"InvalidParameter","message":"prompt too long"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Submit(context.Background(), vendors.GenerationParams{Kind: "IMAGE", Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "no task id") {
		t.Fatalf("err=%v, want missing task id error", err)
	}
}

func TestClient_PollSucceededImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/task-123" {
			t.Errorf("path=%q, want /tasks/task-123", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"output":{"task_status":"SUCCEEDED","results":[{"url":"https://oss.example/out.png"}]}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	raw, err := c.Poll(context.Background(), task.JobHandle{ID: "task-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	status := c.Classifier().Classify(raw)
	if status.Phase != constants.TaskSucceeded {
		t.Fatalf("phase=%s, want %s", status.Phase, constants.TaskSucceeded)
	}
	result := status.Result()
	if result == nil || result.URL != "https://oss.example/out.png" {
		t.Fatalf("result=%+v, want the vendor URL", result)
	}
	if result.Filename != "dashscope_task-123.png" {
		t.Fatalf("filename=%q", result.Filename)
	}
}

func TestClient_PollVideoURLWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"output":{"task_status":"SUCCEEDED","video_url":"https://oss.example/out.mp4"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	raw, err := c.Poll(context.Background(), task.JobHandle{ID: "task-v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Result == nil || raw.Result.URL != "https://oss.example/out.mp4" {
		t.Fatalf("result=%+v, want the video URL", raw.Result)
	}
	if raw.Result.Filename != "dashscope_task-v1.mp4" {
		t.Fatalf("filename=%q", raw.Result.Filename)
	}
}

func TestClient_PollFailedWithBody(t *testing.T) {
	// DashScope reports terminal failures with an error body; the snapshot
	// must still reach the classifier instead of surfacing as a poll error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"output":{"task_status":"FAILED","message":"content policy violation"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	raw, err := c.Poll(context.Background(), task.JobHandle{ID: "task-9"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	status := c.Classifier().Classify(raw)
	if status.Phase != constants.TaskFailed {
		t.Fatalf("phase=%s, want %s", status.Phase, constants.TaskFailed)
	}
}

func TestClient_ConfigTimeoutBoundsCalls(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
		_, _ = w.Write([]byte(`{"output":{"task_id":"late"}}`))
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	_, err := c.Submit(context.Background(), vendors.GenerationParams{Kind: "IMAGE", Prompt: "x"})
	if err == nil {
		t.Fatalf("expected the configured timeout to cut the call short")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("call ran %v, the 50ms timeout did not bound it", elapsed)
	}
	if !common.IsTransient(err) {
		t.Fatalf("timed-out vendor call must classify as transient, got %v", err)
	}
}

func TestClient_PollTransportErrorBubbles(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // connection refused from here on

	c := newTestClient(srv.URL)
	if _, err := c.Poll(context.Background(), task.JobHandle{ID: "task-9"}); err == nil {
		t.Fatalf("expected a transport error")
	}
}
