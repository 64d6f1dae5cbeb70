// Package workflow drives one image transformation end to end: submit the
// job to the remote service, poll its status on a fixed interval until a
// terminal state, download and decode the finished image, and report every
// state transition to observers in order.
package workflow

import (
	"context"
	"image"
	"time"

	"magic-mirror/internal/types"
	apperrors "magic-mirror/pkg/errors"
	"magic-mirror/pkg/genapi"
)

// State is the externally observable workflow state.
type State uint8

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateFetching
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateFetching:
		return "fetching"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Event is one state transition, delivered to observers in emission order.
type Event struct {
	State      State
	Message    string // progress message while polling, failure reason on Failed
	TaskID     string // remote task id, set once submission succeeded
	OccurredAt time.Time
}

// Result is the decoded output image of a succeeded workflow.
type Result struct {
	Image  image.Image
	Format string
	Data   []byte // original encoded bytes, for saving without re-encoding
}

// Request is the immutable input of one transformation job.
type Request struct {
	Feature types.Feature
	Images  map[string][]byte // keyed by the feature's multipart field names
	Prompt  string
}

// Validate rejects requests with missing required parts before anything is
// uploaded.
func (r Request) Validate() error {
	spec, ok := r.Feature.Spec()
	if !ok {
		return apperrors.New(apperrors.CodeInvalidParams, "unknown feature")
	}
	for _, field := range spec.ImageFields {
		if len(r.Images[field]) == 0 {
			return apperrors.New(apperrors.CodeMissingImage, spec.MissingImageMsg)
		}
	}
	if spec.PromptRequired && r.Prompt == "" {
		return apperrors.New(apperrors.CodeMissingPrompt, "please describe the style you want")
	}
	return nil
}

// Backend is the remote service surface the workflow depends on.
// *genapi.Client satisfies it.
type Backend interface {
	Submit(ctx context.Context, feature types.Feature, images map[string][]byte, prompt string) (string, error)
	GetStatus(ctx context.Context, taskID string) (*genapi.JobStatus, error)
	FetchResult(ctx context.Context, taskID string) ([]byte, error)
}

// Options bound the polling loop. The remote service documents no poll
// budget, so both caps are local policy.
type Options struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	MaxAttempts  int
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.PollTimeout <= 0 {
		o.PollTimeout = 5 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 150
	}
	return o
}
