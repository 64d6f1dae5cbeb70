package workflow

import (
	"context"
	"fmt"
	"time"

	apperrors "magic-mirror/pkg/errors"
	"magic-mirror/pkg/genapi"
)

// poll runs the fixed-delay status loop for one job. At most one status
// request is in flight at a time; cancellation is checked before every
// query and across every delay. It returns the terminal Completed status,
// or an error for a server-reported failure, a poll error, or the local
// timeout budget running out.
func (c *Controller) poll(ctx context.Context, inst *Instance, taskID string) (*genapi.JobStatus, error) {
	if !c.emit(inst, StatePolling, "") {
		return nil, context.Canceled
	}

	deadline := time.Now().Add(c.opts.PollTimeout)
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		status, err := c.backend.GetStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch status.State {
		case genapi.JobStateCompleted:
			return status, nil
		case genapi.JobStateFailed:
			return nil, apperrors.New(apperrors.CodeJobFailed, status.Message)
		}

		if !c.emit(inst, StatePolling, status.Message) {
			return nil, context.Canceled
		}

		if attempt >= c.opts.MaxAttempts || time.Now().After(deadline) {
			return nil, apperrors.WrapWithDetail(apperrors.CodePollTimeout,
				"Processing timed out, please try again",
				fmt.Sprintf("task_id=%s attempts=%d", taskID, attempt), nil)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.opts.PollInterval):
		}
	}
}
