package daemon_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"marquee/internal/animations"
	"marquee/internal/config"
	"marquee/internal/daemon"
	"marquee/internal/history"
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

func prepareConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	testsupport.WriteAnimation(t, cfg.Sign.AnimationsDir, "heart.jt")
	testsupport.WriteAnimation(t, cfg.Sign.AnimationsDir, "blank.jt")
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	return cfg
}

func newDaemonForConfig(t *testing.T, cfg *config.Config, store *history.Store) *daemon.Daemon {
	t.Helper()

	library := animations.NewLibrary(cfg.Sign.AnimationsDir)
	presetSet, err := presets.Load(cfg.Presets.File)
	if err != nil {
		t.Fatalf("presets.Load: %v", err)
	}
	controller := sign.NewControllerWithNotifier(cfg, okTransport{}, library, presetSet, store, logging.NewNop(), notifications.NewNoopService())
	d, err := daemon.New(cfg, controller, library, presetSet, store, notifications.NewNoopService(), logging.NewNop(), "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := prepareConfig(t)
	d := newDaemonForConfig(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("unexpected pid: %d", status.PID)
	}
	if status.AnimationsDir != cfg.Sign.AnimationsDir {
		t.Fatalf("unexpected animations dir: %s", status.AnimationsDir)
	}
	if len(status.Checks) == 0 || len(status.Dependencies) == 0 {
		t.Fatal("expected preflight and dependency snapshots in status")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := prepareConfig(t)
	first := newDaemonForConfig(t, cfg, nil)
	second := newDaemonForConfig(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	err := second.Start(ctx)
	if err == nil {
		t.Fatal("expected second instance to fail on the lock")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected lock error: %v", err)
	}
}

func TestDaemonPlayRecordsHistory(t *testing.T) {
	cfg := prepareConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemonForConfig(t, cfg, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	res, err := d.Play(ctx, "heart")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !res.OK || res.Output != "shown heart" {
		t.Fatalf("unexpected play result: %#v", res)
	}

	records, err := d.History(ctx, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "heart" || !records[0].OK {
		t.Fatalf("unexpected history: %#v", records)
	}

	status := d.Status()
	if status.Sign.LastPlayedName != "heart" {
		t.Fatalf("expected last played heart, got %q", status.Sign.LastPlayedName)
	}
	if status.HistoryPath == "" {
		t.Fatal("expected history path in status")
	}
}

func TestDaemonHistoryDisabled(t *testing.T) {
	cfg := prepareConfig(t)
	d := newDaemonForConfig(t, cfg, nil)

	records, err := d.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records without a store, got %d", len(records))
	}
}

func TestDaemonRequestShutdown(t *testing.T) {
	cfg := prepareConfig(t)
	d := newDaemonForConfig(t, cfg, nil)

	fired := make(chan struct{})
	d.OnShutdownRequest(func() {
		close(fired)
	})
	d.RequestShutdown()

	select {
	case <-fired:
	default:
		t.Fatal("expected shutdown request to fire the registered callback")
	}
}

func TestDaemonTestNotificationWithoutTopic(t *testing.T) {
	cfg := prepareConfig(t)
	d := newDaemonForConfig(t, cfg, nil)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if sent {
		t.Fatal("expected no send without a topic")
	}
	if message != "ntfy topic not configured" {
		t.Fatalf("unexpected message: %q", message)
	}
}
