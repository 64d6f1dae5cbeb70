package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"magic-mirror/log"
	apperrors "magic-mirror/pkg/errors"
)

// Controller owns the workflow state for one logical screen. It is the
// single writer of that state; observers only read. Starting a new job
// supersedes the previous instance: the old poll loop is cancelled and can
// no longer emit.
type Controller struct {
	backend Backend
	opts    Options

	mu          sync.Mutex
	state       State
	message     string
	taskID      string
	result      *Result
	request     *Request
	current     *Instance
	subscribers map[int]chan Event
	nextSubID   int
}

// Instance is the handle for one in-flight job. Its event channel yields
// every state transition of that job in order and is closed when the job
// reaches a terminal state or is superseded.
type Instance struct {
	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
}

func (i *Instance) Events() <-chan Event {
	return i.events
}

func (i *Instance) Done() <-chan struct{} {
	return i.done
}

func (i *Instance) Cancel() {
	i.cancel()
}

func NewController(backend Backend, opts Options) *Controller {
	return &Controller{
		backend:     backend,
		opts:        opts.withDefaults(),
		state:       StateIdle,
		subscribers: map[int]chan Event{},
	}
}

// State returns the current state and its message.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.message
}

// TaskID returns the remote task id of the current or last job.
func (c *Controller) TaskID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taskID
}

// Result returns the decoded image of the last succeeded job, or nil.
func (c *Controller) Result() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Request returns the last submitted request, kept so a dismissed error
// leaves the user's selected inputs in place.
func (c *Controller) Request() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request
}

// Subscribe registers an observer of state transitions. The returned stop
// function unregisters it and closes the channel.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	// Sized so a subscriber that keeps draining never misses a transition:
	// one submit, one emission per poll attempt, fetch and the terminal state.
	ch := make(chan Event, c.opts.MaxAttempts+8)
	c.subscribers[id] = ch

	stop := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(existing)
		}
	}
	return ch, stop
}

// Start validates the request and begins a new workflow instance,
// superseding any in-flight one. A validation failure is reported both as
// the returned error and as a Failed state transition, so observers are
// never left waiting.
func (c *Controller) Start(ctx context.Context, req Request) (*Instance, error) {
	if err := req.Validate(); err != nil {
		c.mu.Lock()
		c.supersedeLocked()
		c.state = StateFailed
		c.message = apperrors.GetMessage(err)
		c.result = nil
		c.taskID = ""
		ev := Event{State: StateFailed, Message: c.message, OccurredAt: time.Now()}
		subs := c.subscriberSnapshotLocked()
		c.mu.Unlock()
		broadcast(subs, ev)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	inst := &Instance{
		events: make(chan Event, c.opts.MaxAttempts+8),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	c.mu.Lock()
	c.supersedeLocked()
	c.current = inst
	reqCopy := req
	c.request = &reqCopy
	c.result = nil
	c.taskID = ""
	c.mu.Unlock()

	c.emit(inst, StateSubmitting, "")

	go c.run(runCtx, inst, req)
	return inst, nil
}

// Reset returns the controller to Idle, cancelling any in-flight job and
// clearing the result, error and remembered request. Safe to call from any
// state.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.supersedeLocked()
	c.state = StateIdle
	c.message = ""
	c.taskID = ""
	c.result = nil
	c.request = nil
	ev := Event{State: StateIdle, OccurredAt: time.Now()}
	subs := c.subscriberSnapshotLocked()
	c.mu.Unlock()
	broadcast(subs, ev)
}

// DismissError clears a failure without touching the remembered request,
// so the user's selected inputs survive the dismissal. No-op unless the
// controller is in Failed.
func (c *Controller) DismissError() {
	c.mu.Lock()
	if c.state != StateFailed {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.message = ""
	ev := Event{State: StateIdle, OccurredAt: time.Now()}
	subs := c.subscriberSnapshotLocked()
	c.mu.Unlock()
	broadcast(subs, ev)
}

// Cancel stops the in-flight job, if any, without changing the remembered
// request.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.supersedeLocked()
	if !c.state.IsTerminal() {
		c.state = StateIdle
		c.message = ""
	}
	c.mu.Unlock()
}

func (c *Controller) run(ctx context.Context, inst *Instance, req Request) {
	defer close(inst.events)
	defer close(inst.done)

	taskID, err := c.backend.Submit(ctx, req.Feature, req.Images, req.Prompt)
	if err != nil {
		c.fail(inst, err)
		return
	}

	c.mu.Lock()
	if c.current == inst {
		c.taskID = taskID
	}
	c.mu.Unlock()

	status, err := c.poll(ctx, inst, taskID)
	if err != nil {
		c.fail(inst, err)
		return
	}

	if !c.emit(inst, StateFetching, "") {
		return
	}

	data, err := c.backend.FetchResult(ctx, taskID)
	if err != nil {
		c.fail(inst, err)
		return
	}
	img, format, err := DecodeResult(data)
	if err != nil {
		c.fail(inst, err)
		return
	}

	c.mu.Lock()
	if c.current != inst {
		c.mu.Unlock()
		return
	}
	c.result = &Result{Image: img, Format: format, Data: data}
	c.mu.Unlock()

	log.GetLogger().Info("[Workflow] job succeeded",
		zap.String("task_id", taskID),
		zap.String("feature", string(req.Feature)),
		zap.String("result_locator", status.ResultURL),
		zap.String("format", format))
	c.emit(inst, StateSucceeded, "")
}

// fail collapses any sub-component error into a single Failed transition.
// A cancelled or superseded instance stays silent.
func (c *Controller) fail(inst *Instance, err error) {
	if err == nil {
		return
	}
	if errIsCancellation(err) {
		return
	}
	reason := apperrors.GetMessage(err)
	log.GetLogger().Warn("[Workflow] job failed",
		zap.Int("code", apperrors.GetCode(err)),
		zap.Error(err))
	c.emit(inst, StateFailed, reason)
}

// emit records the transition and forwards it to the instance channel and
// all controller subscribers. It reports false when the instance has been
// superseded, in which case nothing is emitted.
func (c *Controller) emit(inst *Instance, state State, message string) bool {
	c.mu.Lock()
	if c.current != inst {
		c.mu.Unlock()
		return false
	}
	c.state = state
	c.message = message
	ev := Event{State: state, Message: message, TaskID: c.taskID, OccurredAt: time.Now()}
	subs := c.subscriberSnapshotLocked()
	c.mu.Unlock()

	select {
	case inst.events <- ev:
	default:
		// Channel sized for the full transition budget; reaching this
		// means the instance was abandoned without draining.
	}
	broadcast(subs, ev)
	return true
}

func (c *Controller) supersedeLocked() {
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
}

func (c *Controller) subscriberSnapshotLocked() []chan Event {
	subs := make([]chan Event, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		subs = append(subs, ch)
	}
	return subs
}

// broadcast never blocks the workflow goroutine. Each subscriber channel
// is buffered for a whole run (see Subscribe), so the default branch only
// drops events for a subscriber whose buffer was abandoned full.
func broadcast(subs []chan Event, ev Event) {
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func errIsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
