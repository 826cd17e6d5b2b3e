package coolledx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"marquee/internal/logging"
	"marquee/internal/sign"
	"marquee/internal/testsupport"
)

func setHelperCommand(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", fmt.Sprintf("COOLLEDX_HELPER_MODE=%s", mode))
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestCommandExecutorRoundTrip(t *testing.T) {
	setHelperCommand(t, "serve")

	cfg := testsupport.NewConfig(t)
	transport, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

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
	if output != "sent /data/animations/heart.jt" {
		t.Fatalf("unexpected output: %q", output)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestCommandExecutorReclaimsSilentHelper(t *testing.T) {
	setHelperCommand(t, "silent")

	cfg := testsupport.NewConfig(t)
	transport, err := New(cfg, logging.NewNop(), WithConnectBudget(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	start := time.Now()
	if _, err := transport.Open(context.Background()); !errors.Is(err, sign.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("reclaiming the helper took too long: %s", elapsed)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("COOLLEDX_HELPER_MODE") {
	case "serve":
		fmt.Println(`{"event":"ready","device":"CoolLEDX"}`)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			var cmd struct {
				Op   string `json:"op"`
				Path string `json:"path"`
				Text string `json:"text"`
			}
			if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
				fmt.Println(`{"ok":false,"error":"bad command"}`)
				continue
			}
			switch cmd.Op {
			case "jt":
				fmt.Printf("{\"ok\":true,\"output\":\"sent %s\"}\n", cmd.Path)
			case "text":
				fmt.Printf("{\"ok\":true,\"output\":\"rendered %s\"}\n", cmd.Text)
			default:
				fmt.Printf("{\"ok\":false,\"error\":\"unknown op %s\"}\n", cmd.Op)
			}
		}
		os.Exit(0)
	case "silent":
		time.Sleep(time.Minute)
		os.Exit(0)
	default:
		os.Exit(0)
	}
}
