package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"marquee/internal/daemon"
	"marquee/internal/logging"
	"marquee/internal/logs"
	"marquee/internal/sign"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Marquee", svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
		conns:     make(map[net.Conn]struct{}),
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.track(conn)
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				defer s.untrack(c)
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server, cuts live connections, and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun marquee daemon stop"))
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.SignState = string(status.Sign.State)
	resp.Device = status.Sign.Device
	resp.QueueDepth = status.Sign.QueueDepth
	resp.LastPlayed = status.Sign.LastPlayedName
	if !status.Sign.LastPlayedAt.IsZero() {
		resp.LastPlayedAt = status.Sign.LastPlayedAt.UTC().Format(time.RFC3339)
	}
	resp.LockPath = status.LockPath
	resp.LogPath = status.LogPath
	resp.HistoryPath = status.HistoryPath
	resp.AnimationsDir = status.AnimationsDir
	resp.NetlinkMonitoring = status.NetlinkMonitoring
	resp.Checks = make([]CheckResult, 0, len(status.Checks))
	for _, check := range status.Checks {
		resp.Checks = append(resp.Checks, daemon.FromCheck(check))
	}
	resp.Dependencies = make([]DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		resp.Dependencies = append(resp.Dependencies, daemon.FromDependency(dep))
	}
	return nil
}

func (s *service) Play(req PlayRequest, resp *PlayResponse) error {
	s.logger.Debug("play requested", logging.String("animation", req.Name))
	res, err := s.daemon.Play(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Result = daemon.FromResult(res)
	return nil
}

func (s *service) Off(_ OffRequest, resp *OffResponse) error {
	s.logger.Debug("off requested")
	res, err := s.daemon.Off(s.ctx)
	if err != nil {
		return err
	}
	resp.Result = daemon.FromResult(res)
	return nil
}

func (s *service) Resume(_ ResumeRequest, resp *ResumeResponse) error {
	s.logger.Debug("resume requested")
	res, err := s.daemon.Resume(s.ctx)
	if err != nil {
		return err
	}
	resp.Result = daemon.FromResult(res)
	return nil
}

func (s *service) Message(req MessageRequest, resp *MessageResponse) error {
	s.logger.Debug("message requested")
	res, err := s.daemon.Message(s.ctx, sign.TextSpec{
		Text:       req.Text,
		Color:      req.Color,
		Background: req.Background,
		Speed:      req.Speed,
		Brightness: req.Brightness,
	})
	if err != nil {
		return err
	}
	resp.Result = daemon.FromResult(res)
	return nil
}

func (s *service) Preset(req PresetRequest, resp *PresetResponse) error {
	s.logger.Debug("preset requested", logging.String("preset", req.Name))
	res, err := s.daemon.Preset(s.ctx, req.Name, req.Text)
	if err != nil {
		return err
	}
	resp.Result = daemon.FromResult(res)
	return nil
}

func (s *service) Animations(_ AnimationsRequest, resp *AnimationsResponse) error {
	entries, err := s.daemon.Animations()
	if err != nil {
		return err
	}
	resp.Animations = entries
	return nil
}

func (s *service) Presets(_ PresetsRequest, resp *PresetsResponse) error {
	resp.Presets = daemon.PresetEntries(s.daemon.Presets())
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	records, err := s.daemon.History(s.ctx, limit)
	if err != nil {
		return err
	}
	resp.Records = make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		resp.Records = append(resp.Records, daemon.FromHistoryRecord(rec))
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	options := logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, options)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	resp.Stopped = true
	s.daemon.RequestShutdown()
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
