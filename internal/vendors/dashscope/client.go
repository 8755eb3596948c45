// Package dashscope adapts the DashScope asynchronous generation API
// (text-to-image and image-to-video) to the vendor contract. Submissions go
// through the aigc endpoints with the async header set; results are fetched
// from /tasks/{id}.
package dashscope

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wenjia-zhai/genbridge/constants"
	"github.com/wenjia-zhai/genbridge/internal/task"
	"github.com/wenjia-zhai/genbridge/internal/vendors"
)

const (
	imageEndpoint = "/services/aigc/text2image/image-synthesis"
	videoEndpoint = "/services/aigc/video-generation/video-synthesis"

	defaultImageModel = "wanx-v1"
	defaultVideoModel = "wan2.5-i2v-preview"
)

// statusVocab is DashScope's task_status vocabulary.
var statusVocab = task.Vocabulary{
	Succeeded: []string{"SUCCEEDED"},
	Failed:    []string{"FAILED", "CANCELED"},
	Expired:   []string{"EXPIRED"},
	NotFound:  []string{"UNKNOWN"},
	Pending:   []string{"PENDING"},
}

func (c *Client) Name() string {
	return constants.VendorDashScope
}

func (c *Client) Classifier() task.Classifier {
	return task.NewVocabClassifier(statusVocab)
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization":     "Bearer " + c.cfg.APIKey,
		"X-DashScope-Async": "enable",
	}
}

// Submit creates an async generation task and returns its handle.
func (c *Client) Submit(ctx context.Context, params vendors.GenerationParams) (task.JobHandle, error) {
	endpoint, body := c.buildRequest(params)
	url := strings.TrimRight(c.cfg.BaseURL, "/") + endpoint

	raw, _, err := vendors.SendJSON(ctx, c.http, http.MethodPost, url, body, c.headers(), c.logger)
	if err != nil {
		return task.JobHandle{}, fmt.Errorf("dashscope submit: %w", err)
	}

	var resp struct {
		Output struct {
			TaskID string `json:"task_id"`
		} `json:"output"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return task.JobHandle{}, fmt.Errorf("dashscope submit: decode response: %w", err)
	}
	if resp.Output.TaskID == "" {
		return task.JobHandle{}, fmt.Errorf("dashscope submit: no task id in response (code=%s message=%s)", resp.Code, resp.Message)
	}

	c.logger.Info("dashscope.task_created", "task_id", resp.Output.TaskID, "kind", params.Kind)
	return task.JobHandle{ID: resp.Output.TaskID, SubmittedAt: time.Now()}, nil
}

// Poll fetches one status snapshot for the task.
func (c *Client) Poll(ctx context.Context, handle task.JobHandle) (task.RawStatus, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/tasks/" + handle.ID

	raw, status, err := vendors.SendJSON(ctx, c.http, http.MethodGet, url, nil,
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}, c.logger)
	if err != nil {
		// Non-2xx with a body still classifies; pure transport errors bubble
		// up so the poller can tolerate them.
		if len(raw) == 0 {
			return task.RawStatus{}, err
		}
	}

	var resp struct {
		Output struct {
			TaskStatus string `json:"task_status"`
			Message    string `json:"message"`
			VideoURL   string `json:"video_url"`
			Results    []struct {
				URL string `json:"url"`
			} `json:"results"`
		} `json:"output"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return task.RawStatus{}, fmt.Errorf("dashscope poll: decode response: %w", err)
	}

	rs := task.RawStatus{
		State:        resp.Output.TaskStatus,
		ErrorMessage: resp.Output.Message,
		HTTPStatus:   status,
	}
	if url := c.resultURL(resp.Output.VideoURL, firstURL(resp.Output.Results)); url != "" {
		rs.Result = &task.RawResult{
			URL:      url,
			Filename: fmt.Sprintf("dashscope_%s%s", handle.ID, extFor(url)),
		}
	}
	return rs, nil
}

func (c *Client) buildRequest(params vendors.GenerationParams) (string, map[string]any) {
	if params.Kind == "VIDEO" {
		model := params.Model
		if model == "" {
			model = defaultVideoModel
		}
		input := map[string]any{"prompt": params.Prompt}
		if params.ImageURL != "" {
			input["img_url"] = params.ImageURL
		}
		return videoEndpoint, map[string]any{
			"model": model,
			"input": input,
		}
	}

	model := params.Model
	if model == "" {
		model = defaultImageModel
	}
	n := params.Count
	if n <= 0 {
		n = 1
	}
	size := params.Size
	if size == "" {
		size = "1024*1024"
	}
	return imageEndpoint, map[string]any{
		"model":      model,
		"input":      map[string]any{"prompt": params.Prompt},
		"parameters": map[string]any{"n": n, "size": size},
	}
}

func (c *Client) resultURL(videoURL, imageURL string) string {
	if videoURL != "" {
		return videoURL
	}
	return imageURL
}

func firstURL(results []struct {
	URL string `json:"url"`
}) string {
	if len(results) == 0 {
		return ""
	}
	return results[0].URL
}

func extFor(url string) string {
	switch {
	case strings.Contains(url, ".mp4"):
		return ".mp4"
	case strings.Contains(url, ".jpg"), strings.Contains(url, ".jpeg"):
		return ".jpg"
	default:
		return ".png"
	}
}

var _ vendors.Adapter = (*Client)(nil)
