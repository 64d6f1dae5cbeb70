// Package genapi implements the HTTP client for the remote image
// transformation service: multipart job submission, status queries and
// result download. Retry policy belongs to the caller; every method here
// performs exactly one request.
package genapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"magic-mirror/internal/types"
	apperrors "magic-mirror/pkg/errors"
)

type Client struct {
	http *resty.Client
}

func NewClient(baseUrl, apiKey, proxyAddr string) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseUrl, "/")).
		SetTimeout(60 * time.Second)
	if apiKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+apiKey)
	}
	if proxyAddr != "" {
		httpClient.SetProxy(proxyAddr)
	}
	return &Client{http: httpClient}
}

// WithTimeout overrides the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.http.SetTimeout(timeout)
	}
	return c
}

// Submit uploads the image parts and optional prompt for one feature and
// returns the remote task id. images are keyed by multipart field name.
func (c *Client) Submit(ctx context.Context, feature types.Feature, images map[string][]byte, prompt string) (string, error) {
	spec, ok := feature.Spec()
	if !ok {
		return "", apperrors.Wrap(apperrors.CodeInvalidParams, "unknown feature", fmt.Errorf("feature %q", feature))
	}

	req := c.http.R().SetContext(ctx)
	for _, field := range spec.ImageFields {
		data, ok := images[field]
		if !ok || len(data) == 0 {
			return "", apperrors.New(apperrors.CodeMissingImage, spec.MissingImageMsg)
		}
		req.SetFileReader(field, field+".jpg", bytes.NewReader(data))
	}
	if spec.PromptField != "" && prompt != "" {
		req.SetFormData(map[string]string{spec.PromptField: prompt})
	}

	resp, err := req.Post(spec.Path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeSubmitFailed, "Job submission failed", err)
	}
	if !resp.IsSuccess() {
		return "", apperrors.WrapWithDetail(apperrors.CodeSubmitFailed, "Job submission failed",
			fmt.Sprintf("POST %s status=%d", spec.Path, resp.StatusCode()),
			fmt.Errorf("http status %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body()))))
	}

	var out submitResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return "", apperrors.Wrap(apperrors.CodeSubmitBadResponse, "Job submission returned no task id", err)
	}
	if out.TaskID == "" {
		return "", apperrors.New(apperrors.CodeSubmitBadResponse, "Job submission returned no task id")
	}
	return out.TaskID, nil
}

// GetStatus performs one status query and classifies the response.
func (c *Client) GetStatus(ctx context.Context, taskID string) (*JobStatus, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/status/" + taskID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePollFailed, "Status check failed", err)
	}
	if !resp.IsSuccess() {
		return nil, apperrors.WrapWithDetail(apperrors.CodePollFailed, "Status check failed",
			fmt.Sprintf("GET /status/%s status=%d", taskID, resp.StatusCode()),
			fmt.Errorf("http status %d", resp.StatusCode()))
	}

	var out statusResponse
	if err = json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, apperrors.Wrap(apperrors.CodePollBadResponse, "Status response could not be parsed", err)
	}

	status := &JobStatus{TaskID: taskID, Message: out.Message}
	switch strings.ToLower(strings.TrimSpace(out.Status)) {
	case "completed", "succeeded", "success", "done":
		status.State = JobStateCompleted
		status.ResultURL = out.resultLocator()
	case "failed", "error":
		status.State = JobStateFailed
		status.Message = failureMessage(out)
	case "processing", "pending", "queued", "running":
		status.State = JobStateProcessing
	default:
		return nil, apperrors.WrapWithDetail(apperrors.CodePollBadResponse, "Status response could not be parsed",
			fmt.Sprintf("status=%q", out.Status), fmt.Errorf("unrecognized status value"))
	}
	return status, nil
}

// FetchResult downloads the finished image for the task. One attempt, no retries.
func (c *Client) FetchResult(ctx context.Context, taskID string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/result/" + taskID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFetchFailed, "Result download failed", err)
	}
	if !resp.IsSuccess() {
		return nil, apperrors.WrapWithDetail(apperrors.CodeFetchFailed, "Result download failed",
			fmt.Sprintf("GET /result/%s status=%d", taskID, resp.StatusCode()),
			fmt.Errorf("http status %d", resp.StatusCode()))
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, apperrors.New(apperrors.CodeFetchFailed, "Result download returned an empty body")
	}
	return body, nil
}

// Health probes the service root. Any 2xx body is considered healthy.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return nil, fmt.Errorf("health probe failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("health probe http status %d", resp.StatusCode())
	}
	info := map[string]any{}
	// The body is an arbitrary string-keyed map; a non-JSON body is still healthy.
	_ = json.Unmarshal(resp.Body(), &info)
	return info, nil
}

// DecodeImage decodes downloaded result bytes into an in-memory image.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeImageDecode, "Result image could not be decoded", err)
	}
	return img, format, nil
}

func failureMessage(resp statusResponse) string {
	if resp.Error != "" {
		return resp.Error
	}
	if resp.Message != "" {
		return resp.Message
	}
	return "processing failed"
}
