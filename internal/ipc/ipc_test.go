package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marquee/internal/animations"
	"marquee/internal/daemon"
	"marquee/internal/ipc"
	"marquee/internal/logging"
	"marquee/internal/notifications"
	"marquee/internal/presets"
	"marquee/internal/sign"
	"marquee/internal/testsupport"
)

type okTransport struct{}

func (okTransport) Open(context.Context) (sign.Session, error) { return okSession{}, nil }

type okSession struct{}

func (okSession) Send(_ context.Context, job *sign.Job) (string, error) {
	return "shown " + job.Name, nil
}

func (okSession) Close() error { return nil }

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteAnimation(t, cfg.Sign.AnimationsDir, "heart.jt")
	testsupport.WriteAnimation(t, cfg.Sign.AnimationsDir, "blank.jt")
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	presetsYAML := "presets:\n  welcome:\n    text: Welcome home\n    color: red\n"
	if err := os.WriteFile(cfg.Presets.File, []byte(presetsYAML), 0o644); err != nil {
		t.Fatalf("write presets: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	logPath := filepath.Join(cfg.Paths.LogDir, "ipc-test.log")
	logger := logging.NewNop()

	library := animations.NewLibrary(cfg.Sign.AnimationsDir)
	presetSet, err := presets.Load(cfg.Presets.File)
	if err != nil {
		t.Fatalf("presets.Load: %v", err)
	}
	controller := sign.NewControllerWithNotifier(cfg, okTransport{}, library, presetSet, store, logger, notifications.NewNoopService())
	d, err := daemon.New(cfg, controller, library, presetSet, store, notifications.NewNoopService(), logger, logPath)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	shutdownRequested := make(chan struct{})
	d.OnShutdownRequest(func() {
		close(shutdownRequested)
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon Start: %v", err)
	}

	socket := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("unexpected pid: %d", status.PID)
	}
	if status.AnimationsDir != cfg.Sign.AnimationsDir {
		t.Fatalf("unexpected animations dir: %s", status.AnimationsDir)
	}
	if status.LogPath != logPath {
		t.Fatalf("unexpected log path: %s", status.LogPath)
	}

	playResp, err := client.Play("heart")
	if err != nil {
		t.Fatalf("Play RPC failed: %v", err)
	}
	if !playResp.Result.OK || playResp.Result.Kind != "jt" || playResp.Result.Name != "heart" {
		t.Fatalf("unexpected play result: %#v", playResp.Result)
	}
	if playResp.Result.Output != "shown heart" {
		t.Fatalf("unexpected play output: %q", playResp.Result.Output)
	}

	if _, err := client.Play("no-such"); err == nil {
		t.Fatal("expected error for unknown animation")
	}

	animResp, err := client.Animations()
	if err != nil {
		t.Fatalf("Animations RPC failed: %v", err)
	}
	if len(animResp.Animations) != 2 {
		t.Fatalf("expected 2 animations, got %d", len(animResp.Animations))
	}

	presetsResp, err := client.Presets()
	if err != nil {
		t.Fatalf("Presets RPC failed: %v", err)
	}
	if len(presetsResp.Presets) != 1 || presetsResp.Presets[0].Name != "welcome" {
		t.Fatalf("unexpected presets: %#v", presetsResp.Presets)
	}
	if presetsResp.Presets[0].Text != "Welcome home" {
		t.Fatalf("unexpected preset text: %q", presetsResp.Presets[0].Text)
	}

	msgResp, err := client.Message(ipc.MessageRequest{Text: "hi there"})
	if err != nil {
		t.Fatalf("Message RPC failed: %v", err)
	}
	if !msgResp.Result.OK || msgResp.Result.Kind != "text" {
		t.Fatalf("unexpected message result: %#v", msgResp.Result)
	}

	presetResp, err := client.Preset("welcome", "")
	if err != nil {
		t.Fatalf("Preset RPC failed: %v", err)
	}
	if !presetResp.Result.OK || presetResp.Result.Name != "welcome" {
		t.Fatalf("unexpected preset result: %#v", presetResp.Result)
	}

	offResp, err := client.Off()
	if err != nil {
		t.Fatalf("Off RPC failed: %v", err)
	}
	if !offResp.Result.OK {
		t.Fatalf("unexpected off result: %#v", offResp.Result)
	}

	resumeResp, err := client.Resume()
	if err != nil {
		t.Fatalf("Resume RPC failed: %v", err)
	}
	if !resumeResp.Result.OK || resumeResp.Result.Name != "heart" {
		t.Fatalf("unexpected resume result: %#v", resumeResp.Result)
	}

	histResp, err := client.History(10)
	if err != nil {
		t.Fatalf("History RPC failed: %v", err)
	}
	if len(histResp.Records) != 5 {
		t.Fatalf("expected 5 history records, got %d", len(histResp.Records))
	}
	if histResp.Records[0].Name != "heart" {
		t.Fatalf("expected newest record to be the resume, got %#v", histResp.Records[0])
	}

	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
		close(followDone)
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		_, _ = f.WriteString("fourth\n")
		_ = f.Close()
	} else {
		t.Fatalf("append log: %v", err)
	}

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notifyResp.Sent {
		t.Fatal("expected no send without a topic")
	}
	if notifyResp.Message != "ntfy topic not configured" {
		t.Fatalf("unexpected notification message: %q", notifyResp.Message)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	select {
	case <-shutdownRequested:
	case <-time.After(5 * time.Second):
		t.Fatal("expected Stop to request daemon shutdown")
	}
}
