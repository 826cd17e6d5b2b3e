package sign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"marquee/internal/animations"
	"marquee/internal/config"
	"marquee/internal/history"
	"marquee/internal/logging"
	"marquee/internal/notifications"
	"marquee/internal/presets"
)

// historyWriteTimeout bounds the bookkeeping write that runs between a send
// completing and its submitter unblocking.
const historyWriteTimeout = 2 * time.Second

// Controller is the synchronous facade over the dispatch worker. Any number
// of goroutines may call its operations concurrently; each submission blocks
// until its job resolves.
type Controller struct {
	cfg     *config.Config
	library *animations.Library
	presets *presets.Set
	store   *history.Store
	logger  *slog.Logger
	device  string

	queue  *jobQueue
	worker *supervisor

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    *lastPlayed
}

// lastPlayed is the facade-owned resume target.
type lastPlayed struct {
	name string
	path string
	at   time.Time
}

// ControllerStatus is a point-in-time snapshot of the worker.
type ControllerStatus struct {
	State          State     `json:"state"`
	Running        bool      `json:"running"`
	QueueDepth     int       `json:"queue_depth"`
	Device         string    `json:"device"`
	LastPlayedName string    `json:"last_played,omitempty"`
	LastPlayedPath string    `json:"last_played_path,omitempty"`
	LastPlayedAt   time.Time `json:"last_played_at"`
}

// NewController constructs a controller wired to the configured notifier.
func NewController(cfg *config.Config, transport Transport, library *animations.Library, presetSet *presets.Set, store *history.Store, logger *slog.Logger) *Controller {
	return NewControllerWithNotifier(cfg, transport, library, presetSet, store, logger, notifications.NewService(cfg))
}

// NewControllerWithNotifier constructs a controller with a custom notifier (used in tests).
func NewControllerWithNotifier(cfg *config.Config, transport Transport, library *animations.Library, presetSet *presets.Set, store *history.Store, logger *slog.Logger, notifier notifications.Service) *Controller {
	if notifier == nil {
		notifier = notifications.NewNoopService()
	}
	device := cfg.Sign.Address
	if device == "" {
		device = cfg.Sign.DeviceName
	}

	c := &Controller{
		cfg:     cfg,
		library: library,
		presets: presetSet,
		store:   store,
		logger:  logging.NewComponentLogger(logger, "sign"),
		device:  device,
		queue:   newJobQueue(cfg.Sign.QueueLimit),
	}
	c.worker = newSupervisor(
		transport,
		c.queue,
		logger,
		notifier,
		device,
		time.Duration(cfg.Sign.ReconnectDelay)*time.Second,
		time.Duration(cfg.Sign.SendTimeout)*time.Second,
	)
	c.worker.observe = c.observeResult
	return c
}

// Start launches the dispatch worker. A controller runs at most once;
// starting it twice or after Stop is an error.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("sign controller already running")
	}
	if c.done != nil {
		return errors.New("sign controller cannot be restarted")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	done := c.done
	go func() {
		c.worker.run(runCtx)
		// However the worker exits, queued jobs must not strand their
		// submitters.
		c.queue.Close(ErrStopped)
		close(done)
	}()

	c.logger.Info("sign worker started",
		logging.String("device", c.device),
		logging.Duration("reconnect_delay", time.Duration(c.cfg.Sign.ReconnectDelay)*time.Second),
	)
	return nil
}

// Stop cancels the worker, fails queued jobs so their submitters unblock,
// and waits up to the configured stop timeout for the worker goroutine to
// exit. An in-flight send keeps running under its own send timeout; expiry
// here is logged, never raised.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	cancel()
	c.queue.Close(ErrStopped)

	timeout := time.Duration(c.cfg.Sign.StopTimeout) * time.Second
	select {
	case <-done:
		c.logger.Info("sign worker stopped")
	case <-time.After(timeout):
		logging.WarnWithContext(c.logger, "sign worker did not exit before the stop timeout", "sign_stop_timeout",
			logging.Duration("stop_timeout", timeout),
			logging.String(logging.FieldImpact, "an in-flight send may still be draining"),
		)
	}
}

// Play queues the named animation and blocks until the sign reports the
// outcome.
func (c *Controller) Play(ctx context.Context, name string) (Result, error) {
	cleaned, err := animations.CleanName(name)
	if err != nil {
		return Result{}, Wrap(ErrValidation, "play", "", err)
	}
	path, err := c.library.Resolve(cleaned)
	if err != nil {
		return Result{}, classifyLookup("play", err)
	}
	job := newJob(KindJT, cleaned)
	job.Path = path
	return c.submit(ctx, job)
}

// Off blanks the display by playing the configured blank animation. The
// blank frame never becomes the resume target, so Resume after Off restores
// whatever was showing before.
func (c *Controller) Off(ctx context.Context) (Result, error) {
	return c.Play(ctx, c.cfg.Sign.BlankAnimation)
}

// Resume replays the animation that was on the sign before the last Off.
// With history enabled the target survives daemon restarts.
func (c *Controller) Resume(ctx context.Context) (Result, error) {
	name, ok := c.resumeTarget(ctx)
	if !ok {
		return Result{}, Wrap(ErrNothingToResume, "resume", "no animation has played yet", nil)
	}
	return c.Play(ctx, name)
}

// Message renders ad-hoc text on the sign.
func (c *Controller) Message(ctx context.Context, spec TextSpec) (Result, error) {
	spec.Text = strings.TrimSpace(spec.Text)
	if spec.Text == "" {
		return Result{}, Wrap(ErrValidation, "message", "text is required", nil)
	}
	job := newJob(KindText, textLabel(spec.Text))
	job.Text = spec
	return c.submit(ctx, job)
}

// Preset renders a named preset, optionally overriding its text while
// keeping the preset's styling.
func (c *Controller) Preset(ctx context.Context, name, overrideText string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, Wrap(ErrValidation, "preset", "preset name is required", nil)
	}

	var preset presets.Preset
	found := false
	if c.presets != nil {
		preset, found = c.presets.Get(name)
	}
	if !found {
		return Result{}, Wrap(ErrNotFound, "preset", fmt.Sprintf("no preset named %q", name), nil)
	}

	text := strings.TrimSpace(overrideText)
	if text == "" {
		text = strings.TrimSpace(preset.Text)
	}
	if text == "" {
		return Result{}, Wrap(ErrValidation, "preset", fmt.Sprintf("preset %q has no text and none was provided", name), nil)
	}

	job := newJob(KindText, name)
	job.Text = TextSpec{
		Text:       text,
		Color:      preset.Color,
		Background: preset.Background,
		Speed:      preset.Speed,
		Brightness: preset.Brightness,
	}
	return c.submit(ctx, job)
}

// Status reports a snapshot of worker state, queue depth, and resume target.
func (c *Controller) Status() ControllerStatus {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()

	status := ControllerStatus{
		State:      c.worker.State(),
		Running:    c.workerAlive(),
		QueueDepth: c.queue.Depth(),
		Device:     c.device,
	}
	if last != nil {
		status.LastPlayedName = last.name
		status.LastPlayedPath = last.path
		status.LastPlayedAt = last.at
	}
	return status
}

// Kick cuts the current reconnect wait short so the next connect attempt
// starts immediately.
func (c *Controller) Kick() {
	c.worker.Kick()
}

func (c *Controller) submit(ctx context.Context, job *Job) (Result, error) {
	if !c.workerAlive() {
		return Result{}, Wrap(ErrStopped, string(job.Kind), "worker is not running", nil)
	}
	if err := c.queue.Enqueue(job); err != nil {
		return Result{}, Wrap(err, string(job.Kind), "", nil)
	}
	res, err := job.wait(ctx)
	if err != nil {
		// The job stays queued and still resolves on its own; only this
		// caller gives up waiting.
		return Result{}, fmt.Errorf("abandoned wait for job %s: %w", job.ID, err)
	}
	return res, nil
}

func (c *Controller) workerAlive() bool {
	c.mu.Lock()
	running := c.running
	done := c.done
	c.mu.Unlock()
	if !running || done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// observeResult runs on the worker goroutine for every dispatched job.
// Successful animations become the resume target unless they are the blank
// frame, so blanking the display never clobbers what Resume should bring
// back. Every dispatch lands in history when the store is present.
func (c *Controller) observeResult(job *Job, res Result) {
	if res.OK && job.Kind == KindJT && job.Name != c.cfg.Sign.BlankAnimation {
		c.mu.Lock()
		c.last = &lastPlayed{name: job.Name, path: job.Path, at: time.Now()}
		c.mu.Unlock()
	}
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if _, err := c.store.Append(ctx, history.Record{
		JobID:   job.ID,
		Kind:    string(job.Kind),
		Name:    job.Name,
		Path:    job.Path,
		OK:      res.OK,
		Error:   res.Error,
		Output:  res.Output,
		Elapsed: res.Elapsed,
	}); err != nil {
		c.logger.Warn("history append failed", logging.Error(err))
	}
}

func (c *Controller) resumeTarget(ctx context.Context) (string, bool) {
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	if last != nil {
		return last.name, true
	}
	if c.store == nil {
		return "", false
	}
	rec, err := c.store.LastSucceeded(ctx, string(KindJT), c.cfg.Sign.BlankAnimation)
	if err != nil {
		c.logger.Warn("resume target lookup failed", logging.Error(err))
		return "", false
	}
	if rec == nil {
		return "", false
	}
	return rec.Name, true
}

// classifyLookup maps animation library failures onto the caller-facing
// taxonomy: malformed names are validation errors, missing payloads are
// not-found.
func classifyLookup(operation string, err error) error {
	switch {
	case errors.Is(err, animations.ErrInvalidName):
		return Wrap(ErrValidation, operation, "", err)
	case errors.Is(err, animations.ErrUnknown):
		return Wrap(ErrNotFound, operation, "", err)
	default:
		return Wrap(nil, operation, "resolve animation", err)
	}
}

// textLabel condenses message text into a short name for logs and history.
func textLabel(text string) string {
	label := strings.Join(strings.Fields(text), " ")
	runes := []rune(label)
	if len(runes) > 32 {
		return string(runes[:32]) + "..."
	}
	return label
}
