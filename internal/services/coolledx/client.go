package coolledx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/sign"
)

var commandContext = exec.CommandContext

const (
	// startupGrace pads the connect budget so process startup never eats
	// into the helper's own retry window.
	startupGrace = 5 * time.Second
	// terminateWait bounds how long Close waits after SIGTERM before
	// escalating to SIGKILL.
	terminateWait = 3 * time.Second

	eventReady = "ready"
	opJT       = "jt"
	opText     = "text"
)

// Executor abstracts helper process startup for testability.
type Executor interface {
	Start(ctx context.Context, binary string, args []string) (Process, error)
}

// Process is one running helper instance with line-oriented pipes.
type Process interface {
	Stdin() io.Writer
	Stdout() io.Reader
	Stderr() io.Reader
	// Terminate requests a clean shutdown. Kill is the escalation when the
	// process ignores it; Wait reclaims it either way.
	Terminate() error
	Kill() error
	Wait() error
}

// Option configures the transport.
type Option func(*Transport)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(t *Transport) {
		if executor != nil {
			t.exec = executor
		}
	}
}

// WithConnectBudget overrides the handshake deadline derived from the
// configured connect timeout and retry count.
func WithConnectBudget(budget time.Duration) Option {
	return func(t *Transport) {
		if budget > 0 {
			t.budget = budget
		}
	}
}

// Transport launches the helper binary in gateway mode and hands each live
// process to the dispatch worker as a session.
type Transport struct {
	cfg    *config.Config
	logger *slog.Logger
	exec   Executor
	budget time.Duration
}

// New constructs a transport from the sign configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Transport, error) {
	if strings.TrimSpace(cfg.Sign.HelperBinary) == "" {
		return nil, errors.New("helper binary required")
	}
	if strings.TrimSpace(cfg.Sign.Address) == "" && strings.TrimSpace(cfg.Sign.DeviceName) == "" {
		return nil, errors.New("sign address or device name required")
	}
	t := &Transport{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "coolledx"),
		exec:   commandExecutor{},
		budget: connectBudget(cfg),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Open starts a gateway process and waits for its ready handshake. Any
// failure is a connection error; the worker retries on its own schedule.
func (t *Transport) Open(ctx context.Context) (sign.Session, error) {
	binary := strings.TrimSpace(t.cfg.Sign.HelperBinary)
	proc, err := t.exec.Start(ctx, binary, t.gatewayArgs())
	if err != nil {
		return nil, sign.Wrap(sign.ErrConnection, "connect", "start helper", err)
	}
	sess := newGatewaySession(proc, t.logger)

	timer := time.NewTimer(t.budget)
	defer timer.Stop()

	select {
	case ev, ok := <-sess.lines:
		if !ok {
			_ = sess.Close()
			return nil, sign.Wrap(sign.ErrConnection, "connect", "helper exited before handshake", nil)
		}
		if ev.err != nil {
			_ = sess.Close()
			return nil, sign.Wrap(sign.ErrConnection, "connect", "read handshake", ev.err)
		}
		var hs handshake
		if err := json.Unmarshal([]byte(ev.text), &hs); err != nil {
			_ = sess.Close()
			return nil, sign.Wrap(sign.ErrConnection, "connect", fmt.Sprintf("unexpected handshake %q", truncateLine(ev.text)), err)
		}
		if hs.Event != eventReady {
			_ = sess.Close()
			reason := strings.TrimSpace(hs.Error)
			if reason == "" {
				reason = fmt.Sprintf("handshake event %q", hs.Event)
			}
			return nil, sign.Wrap(sign.ErrConnection, "connect", reason, nil)
		}
		t.logger.Debug("gateway ready",
			logging.String("binary", binary),
			logging.String("device", hs.Device),
		)
		return sess, nil
	case <-timer.C:
		_ = sess.Close()
		return nil, sign.Wrap(sign.ErrConnection, "connect", fmt.Sprintf("no ready handshake within %s", t.budget), nil)
	case <-ctx.Done():
		_ = sess.Close()
		return nil, sign.Wrap(sign.ErrConnection, "connect", "cancelled", ctx.Err())
	}
}

func (t *Transport) gatewayArgs() []string {
	args := []string{"gateway"}
	if addr := strings.TrimSpace(t.cfg.Sign.Address); addr != "" {
		args = append(args, "--address", addr)
	}
	if name := strings.TrimSpace(t.cfg.Sign.DeviceName); name != "" {
		args = append(args, "--name", name)
	}
	args = append(args,
		"--connect-timeout", strconv.Itoa(connectTimeoutSeconds(t.cfg)),
		"--retries", strconv.Itoa(connectRetries(t.cfg)),
	)
	return args
}

func connectBudget(cfg *config.Config) time.Duration {
	// The helper runs its own per-attempt timeout and retry loop; the
	// budget here covers every attempt plus startup overhead.
	perAttempt := time.Duration(connectTimeoutSeconds(cfg)) * time.Second
	return perAttempt*time.Duration(connectRetries(cfg)) + startupGrace
}

func connectTimeoutSeconds(cfg *config.Config) int {
	if cfg.Sign.ConnectTimeout > 0 {
		return cfg.Sign.ConnectTimeout
	}
	return 10
}

func connectRetries(cfg *config.Config) int {
	if cfg.Sign.ConnectRetries > 0 {
		return cfg.Sign.ConnectRetries
	}
	return 1
}

type handshake struct {
	Event  string `json:"event"`
	Device string `json:"device,omitempty"`
	Error  string `json:"error,omitempty"`
}

type command struct {
	Op         string `json:"op"`
	Path       string `json:"path,omitempty"`
	Text       string `json:"text,omitempty"`
	Color      string `json:"color,omitempty"`
	Background string `json:"background,omitempty"`
	Speed      int    `json:"speed,omitempty"`
	Brightness int    `json:"brightness,omitempty"`
}

type reply struct {
	OK     bool   `json:"ok"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

type lineEvent struct {
	text string
	err  error
}

// gatewaySession drives the command/reply dialogue with one helper process.
// A single worker goroutine owns it; Send is never called concurrently.
type gatewaySession struct {
	proc      Process
	logger    *slog.Logger
	lines     chan lineEvent
	closeOnce sync.Once
}

func newGatewaySession(proc Process, logger *slog.Logger) *gatewaySession {
	s := &gatewaySession{
		proc:   proc,
		logger: logger,
		lines:  make(chan lineEvent),
	}
	go s.readLines()
	go s.drainStderr()
	return s
}

// Send writes one command line and waits for its reply. Link-level failures
// are tagged as connection errors so the worker tears the session down; a
// reply with ok=false is an ordinary failure attributed to the job.
func (s *gatewaySession) Send(ctx context.Context, job *sign.Job) (string, error) {
	payload, err := encodeCommand(job)
	if err != nil {
		return "", err
	}
	if err := s.writeLine(ctx, payload); err != nil {
		return "", sign.Wrap(sign.ErrConnection, "send", "write command", err)
	}

	select {
	case ev, ok := <-s.lines:
		if !ok {
			return "", sign.Wrap(sign.ErrConnection, "send", "helper exited before replying", nil)
		}
		if ev.err != nil {
			return "", sign.Wrap(sign.ErrConnection, "send", "read reply", ev.err)
		}
		var rep reply
		if err := json.Unmarshal([]byte(ev.text), &rep); err != nil {
			return "", sign.Wrap(sign.ErrConnection, "send", fmt.Sprintf("unexpected reply %q", truncateLine(ev.text)), err)
		}
		if !rep.OK {
			reason := strings.TrimSpace(rep.Error)
			if reason == "" {
				reason = "helper reported failure"
			}
			return "", fmt.Errorf("sign rejected %s command: %s", job.Kind, reason)
		}
		return rep.Output, nil
	case <-ctx.Done():
		return "", sign.Wrap(sign.ErrConnection, "send", "no reply from helper", ctx.Err())
	}
}

// Close shuts the helper down and reclaims the process. Safe to call more
// than once.
func (s *gatewaySession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.proc.Terminate()

		// Drain until the reader goroutine sees EOF so the process has
		// actually exited before Wait reclaims it.
		deadline := time.NewTimer(terminateWait)
		defer deadline.Stop()
		killed := false
		for {
			select {
			case _, ok := <-s.lines:
				if ok {
					continue
				}
				_ = s.proc.Wait()
				return
			case <-deadline.C:
				if killed {
					_ = s.proc.Wait()
					return
				}
				killed = true
				_ = s.proc.Kill()
				deadline.Reset(terminateWait)
			}
		}
	})
	return nil
}

func (s *gatewaySession) readLines() {
	defer close(s.lines)
	scanner := bufio.NewScanner(s.proc.Stdout())
	for scanner.Scan() {
		s.lines <- lineEvent{text: scanner.Text()}
	}
	if err := scanner.Err(); err != nil {
		s.lines <- lineEvent{err: err}
	}
}

func (s *gatewaySession) drainStderr() {
	scanner := bufio.NewScanner(s.proc.Stderr())
	for scanner.Scan() {
		s.logger.Debug("helper stderr", logging.String("line", scanner.Text()))
	}
}

// writeLine performs the pipe write on a goroutine so a wedged helper cannot
// stall the worker past its send timeout. Closing the session unblocks any
// abandoned write.
func (s *gatewaySession) writeLine(ctx context.Context, line []byte) error {
	done := make(chan error, 1)
	go func() {
		_, err := s.proc.Stdin().Write(append(line, '\n'))
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func encodeCommand(job *sign.Job) ([]byte, error) {
	cmd := command{}
	switch job.Kind {
	case sign.KindJT:
		cmd.Op = opJT
		cmd.Path = job.Path
	case sign.KindText:
		cmd.Op = opText
		cmd.Text = job.Text.Text
		cmd.Color = job.Text.Color
		cmd.Background = job.Text.Background
		cmd.Speed = job.Text.Speed
		cmd.Brightness = job.Text.Brightness
	default:
		return nil, fmt.Errorf("unsupported job kind %q", job.Kind)
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s command: %w", job.Kind, err)
	}
	return payload, nil
}

func truncateLine(line string) string {
	const max = 120
	if len(line) <= max {
		return line
	}
	return line[:max] + "..."
}

type commandExecutor struct{}

func (commandExecutor) Start(ctx context.Context, binary string, args []string) (Process, error) {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	cmd.WaitDelay = terminateWait
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start helper: %w", err)
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *execProcess) Stdin() io.Writer  { return p.stdin }
func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }

// Terminate closes stdin so the helper sees EOF and signals SIGTERM for
// helpers blocked elsewhere.
func (p *execProcess) Terminate() error {
	_ = p.stdin.Close()
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

var _ sign.Transport = (*Transport)(nil)
var _ sign.Session = (*gatewaySession)(nil)
var _ Executor = commandExecutor{}
var _ Process = (*execProcess)(nil)
