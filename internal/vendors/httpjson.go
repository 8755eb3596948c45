package vendors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wenjia-zhai/genbridge/internal/common"
)

// SendJSON sends a JSON request to a full URL with optional headers and returns
// the raw response body and status code. It does not assume any vendor;
// callers decide the URL, method and headers.
//
// Network failures and 5xx/429/408 responses come back as
// *common.TransientError so the submit retry layer can distinguish them from
// permanent rejections.
func SendJSON(ctx context.Context, client *http.Client, method, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	if uid := common.UserIDFromContext(ctx); uid != "" {
		logger = logger.With("user_id", uid)
	}
	start := time.Now()

	var reqBody io.Reader
	var bodyLen int
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			logger.Error("vendor.http.encode_error", "req_id", reqID, "error", err)
			return nil, 0, fmt.Errorf("encode json: %w", err)
		}
		reqBody = bytes.NewReader(bs)
		bodyLen = len(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		logger.Error("vendor.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	// Default headers; allow caller overrides.
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("vendor.http.request",
		"req_id", reqID,
		"method", method,
		"url", url,
		"content_length", bodyLen,
	)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("vendor.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, &common.TransientError{Op: "vendor.http", Cause: err}
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			logger.Warn("vendor.http.response_body_close_error", "req_id", reqID, "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	logger.Debug("vendor.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		err := fmt.Errorf("non-2xx status %d: %s", resp.StatusCode, truncateBody(raw))
		if retryableStatus(resp.StatusCode) {
			return raw, resp.StatusCode, &common.TransientError{Op: "vendor.http", StatusCode: resp.StatusCode, Cause: err}
		}
		return raw, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

func retryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}

func truncateBody(raw []byte) string {
	const max = 256
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
