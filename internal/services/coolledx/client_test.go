package coolledx_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"marquee/internal/config"
	"marquee/internal/logging"
	"marquee/internal/services/coolledx"
	"marquee/internal/sign"
	"marquee/internal/testsupport"
)

// fakeProcess stands in for a gateway subprocess using in-memory pipes. The
// scripted gateway goroutine owns the far ends.
type fakeProcess struct {
	stdinR  *io.PipeReader
	stdinW  *io.PipeWriter
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter

	mu         sync.Mutex
	terminated bool
	killed     bool

	exitOnce sync.Once
	exited   chan struct{}
}

func newFakeProcess() *fakeProcess {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	return &fakeProcess{
		stdinR:  stdinR,
		stdinW:  stdinW,
		stdoutR: stdoutR,
		stdoutW: stdoutW,
		exited:  make(chan struct{}),
	}
}

func (p *fakeProcess) Stdin() io.Writer  { return p.stdinW }
func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader { return strings.NewReader("") }

func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
	p.exit()
	return nil
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.exit()
	return nil
}

func (p *fakeProcess) Wait() error {
	<-p.exited
	return nil
}

// exit closes both pipes so readers see EOF, like a dead process.
func (p *fakeProcess) exit() {
	p.exitOnce.Do(func() {
		p.stdinR.Close()
		p.stdoutW.Close()
		close(p.exited)
	})
}

func (p *fakeProcess) wasTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// fakeExecutor records every start and runs the provided gateway script
// against each process it produces.
type fakeExecutor struct {
	mu     sync.Mutex
	argv   [][]string
	script func(p *fakeProcess)
	procs  []*fakeProcess
}

func (f *fakeExecutor) Start(ctx context.Context, binary string, args []string) (coolledx.Process, error) {
	f.mu.Lock()
	f.argv = append(f.argv, append([]string{binary}, args...))
	p := newFakeProcess()
	f.procs = append(f.procs, p)
	script := f.script
	f.mu.Unlock()
	if script != nil {
		go script(p)
	}
	return p, nil
}

func (f *fakeExecutor) startedArgs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.argv))
	for i, args := range f.argv {
		out[i] = append([]string(nil), args...)
	}
	return out
}

func (f *fakeExecutor) process(i int) *fakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.procs[i]
}

// serveGateway scripts a compliant gateway: emit the handshake, then answer
// every command with reply(line). A nil reply crashes the process instead.
func serveGateway(handshakeLine string, replyTo func(line string) *string) func(*fakeProcess) {
	return func(p *fakeProcess) {
		if handshakeLine != "" {
			fmt.Fprintln(p.stdoutW, handshakeLine)
		}
		scanner := bufio.NewScanner(p.stdinR)
		for scanner.Scan() {
			if replyTo == nil {
				continue
			}
			rep := replyTo(scanner.Text())
			if rep == nil {
				p.exit()
				return
			}
			if *rep != "" {
				fmt.Fprintln(p.stdoutW, *rep)
			}
		}
	}
}

func replyWith(line string) func(string) *string {
	return func(string) *string { return &line }
}

func newTransport(t *testing.T, executor *fakeExecutor, opts ...coolledx.Option) (*coolledx.Transport, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	allOpts := append([]coolledx.Option{coolledx.WithExecutor(executor)}, opts...)
	transport, err := coolledx.New(cfg, logging.NewNop(), allOpts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return transport, cfg
}

const readyHandshake = `{"event":"ready","device":"CoolLEDX"}`

func TestNewRequiresHelperBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sign.HelperBinary = "  "
	if _, err := coolledx.New(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing helper binary")
	}
}

func TestNewRequiresDeviceIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sign.Address = ""
	cfg.Sign.DeviceName = ""
	if _, err := coolledx.New(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected error when neither address nor device name is set")
	}
}

func TestOpenPerformsHandshakeAndBuildsArgs(t *testing.T) {
	executor := &fakeExecutor{script: serveGateway(readyHandshake, nil)}
	transport, cfg := newTransport(t, executor)

	sess, err := transport.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	argv := executor.startedArgs()
	if len(argv) != 1 {
		t.Fatalf("expected one start, got %d", len(argv))
	}
	want := []string{
		cfg.Sign.HelperBinary,
		"gateway",
		"--address", cfg.Sign.Address,
		"--name", cfg.Sign.DeviceName,
		"--connect-timeout", "10",
		"--retries", "5",
	}
	got := argv[0]
	if len(got) != len(want) {
		t.Fatalf("unexpected argv: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("argv[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestOpenTimesOutWithoutHandshake(t *testing.T) {
	executor := &fakeExecutor{script: serveGateway("", nil)}
	transport, _ := newTransport(t, executor, coolledx.WithConnectBudget(50*time.Millisecond))

	_, err := transport.Open(context.Background())
	if !errors.Is(err, sign.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if !executor.process(0).wasTerminated() {
		t.Fatal("expected the helper to be terminated after a failed handshake")
	}
}

func TestOpenReportsHelperConnectError(t *testing.T) {
	executor := &fakeExecutor{script: serveGateway(`{"event":"error","error":"sign not found"}`, nil)}
	transport, _ := newTransport(t, executor)

	_, err := transport.Open(context.Background())
	if !errors.Is(err, sign.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if !strings.Contains(err.Error(), "sign not found") {
		t.Fatalf("expected helper error message, got %v", err)
	}
}

func TestOpenHonorsContext(t *testing.T) {
	executor := &fakeExecutor{script: serveGateway("", nil)}
	transport, _ := newTransport(t, executor)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := transport.Open(ctx)
	if !errors.Is(err, sign.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("open did not honor context cancellation, took %s", elapsed)
	}
}

func TestSendAnimationCommand(t *testing.T) {
	var (
		mu       sync.Mutex
		commands []string
	)
	executor := &fakeExecutor{script: serveGateway(readyHandshake, func(line string) *string {
		mu.Lock()
		commands = append(commands, line)
		mu.Unlock()
		rep := `{"ok":true,"output":"sent 4096 bytes"}`
		return &rep
	})}
	transport, _ := newTransport(t, executor)

	sess, err := transport.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	job := &sign.Job{Kind: sign.KindJT, Name: "heart", Path: "/data/animations/heart.jt"}
	output, err := sess.Send(context.Background(), job)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if output != "sent 4096 bytes" {
		t.Fatalf("unexpected output: %q", output)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(commands) != 1 {
		t.Fatalf("expected one command line, got %d", len(commands))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(commands[0]), &decoded); err != nil {
		t.Fatalf("command line is not JSON: %v", err)
	}
	if decoded["op"] != "jt" || decoded["path"] != "/data/animations/heart.jt" {
		t.Fatalf("unexpected command payload: %v", decoded)
	}
	if _, ok := decoded["text"]; ok {
		t.Fatalf("animation command must not carry text fields: %v", decoded)
	}
}

func TestSendTextCommandCarriesStyling(t *testing.T) {
	var (
		mu       sync.Mutex
		commands []string
	)
	executor := &fakeExecutor{script: serveGateway(readyHandshake, func(line string) *string {
		mu.Lock()
		commands = append(commands, line)
		mu.Unlock()
		rep := `{"ok":true,"output":"rendered"}`
		return &rep
	})}
	transport, _ := newTransport(t, executor)

	sess, err := transport.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	job := &sign.Job{
		Kind: sign.KindText,
		Name: "HELLO",
		Text: sign.TextSpec{Text: "HELLO", Color: "#00ff00", Speed: 30, Brightness: 80},
	}
	if _, err := sess.Send(context.Background(), job); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	var decoded map[string]any
	if err := json.Unmarshal([]byte(commands[0]), &decoded); err != nil {
		t.Fatalf("command line is not JSON: %v", err)
	}
	if decoded["op"] != "text" || decoded["text"] != "HELLO" || decoded["color"] != "#00ff00" {
		t.Fatalf("unexpected text payload: %v", decoded)
	}
	if decoded["speed"] != float64(30) || decoded["brightness"] != float64(80) {
		t.Fatalf("unexpected styling payload: %v", decoded)
	}
	if _, ok := decoded["background"]; ok {
		t.Fatalf("empty background must be omitted: %v", decoded)
	}
}

func TestSendRejectionIsPlainError(t *testing.T) {
	executor := &fakeExecutor{script: serveGateway(readyHandshake, replyWith(`{"ok":false,"error":"render failed"}`))}
	transport, _ := newTransport(t, executor)

	sess, err := transport.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	job := &sign.Job{Kind: sign.KindText, Name: "HELLO", Text: sign.TextSpec{Text: "HELLO"}}
	_, err = sess.Send(context.Background(), job)
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if errors.Is(err, sign.ErrConnection) {
		t.Fatalf("rejection must not be a connection error: %v", err)
	}
	if !strings.Contains(err.Error(), "render failed") {
		t.Fatalf("expected rejection reason, got %v", err)
	}
}

func TestSendAfterHelperExitIsConnectionError(t *testing.T) {
	executor := &fakeExecutor{script: serveGateway(readyHandshake, func(string) *string { return nil })}
	transport, _ := newTransport(t, executor)

	sess, err := transport.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	job := &sign.Job{Kind: sign.KindJT, Name: "heart", Path: "/data/animations/heart.jt"}
	if _, err := sess.Send(context.Background(), job); !errors.Is(err, sign.ErrConnection) {
		t.Fatalf("expected connection error after helper exit, got %v", err)
	}
}

func TestSendHonorsContextWhenHelperStalls(t *testing.T) {
	silent := ""
	executor := &fakeExecutor{script: serveGateway(readyHandshake, replyWith(silent))}
	transport, _ := newTransport(t, executor)

	sess, err := transport.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	job := &sign.Job{Kind: sign.KindJT, Name: "heart", Path: "/data/animations/heart.jt"}
	if _, err := sess.Send(ctx, job); !errors.Is(err, sign.ErrConnection) {
		t.Fatalf("expected connection error on stalled reply, got %v", err)
	}
}

func TestCloseTerminatesHelper(t *testing.T) {
	executor := &fakeExecutor{script: serveGateway(readyHandshake, nil)}
	transport, _ := newTransport(t, executor)

	sess, err := transport.Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	proc := executor.process(0)
	if !proc.wasTerminated() {
		t.Fatal("expected Close to terminate the helper")
	}

	// A second close is a no-op.
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
