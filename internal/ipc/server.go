package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"qbridge/internal/api"
	"qbridge/internal/daemon"
	"qbridge/internal/logging"
)

// ServiceName is the JSON-RPC service the daemon registers.
const ServiceName = "QBridge"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server
	svc       *service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. A stale
// socket left by a previous process is removed first.
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

	serverCtx, cancel := context.WithCancel(ctx)
	svc := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(ServiceName, svc); err != nil {
		cancel()
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    svc.logger,
		listener:  listener,
		rpcServer: rpcServer,
		svc:       svc,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// OnStop registers fn to run after a Stop request has stopped the daemon.
// The daemon process uses it to leave its run loop.
func (s *Server) OnStop(fn func()) {
	s.svc.mu.Lock()
	s.svc.onStop = fn
	s.svc.mu.Unlock()
}

// Serve starts accepting RPC connections until the server is closed.
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
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually"),
		)
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context

	mu     sync.Mutex
	onStop func()
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Info("daemon stop requested via IPC", logging.String(logging.FieldEventType, "daemon_stop_requested"))
	s.daemon.Stop()
	s.mu.Lock()
	fn := s.onStop
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	*resp = StatusResponse{
		Running:    status.Running,
		PID:        status.PID,
		LockPath:   status.LockFilePath,
		APIAddress: status.APIAddress,
		Bus:        status.Bus,
		Service:    status.Service,
		RootPath:   status.RootPath,
		StartedAt:  api.FormatTimestamp(status.StartedAt),
		Watchers:   status.Watchers,
	}
	return nil
}

func (s *service) ListQuestions(_ ListQuestionsRequest, resp *ListQuestionsResponse) error {
	items, err := s.daemon.ListQuestions(s.ctx)
	if err != nil {
		return &api.QuestionsError{Err: err}
	}
	resp.Questions = items
	return nil
}

func (s *service) Answer(req AnswerRequest, resp *AnswerResponse) error {
	if err := s.daemon.SubmitAnswer(s.ctx, req.ID, req.Answer); err != nil {
		return &api.QuestionsError{Err: err}
	}
	resp.Message = fmt.Sprintf("answer sent to question %d", req.ID)
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, err := s.daemon.TestNotification(s.ctx)
	if err != nil {
		return fmt.Errorf("send test notification: %w", err)
	}
	resp.Sent = sent
	if !sent {
		resp.Message = "Notifications are disabled; set notifications.ntfy_topic"
	}
	return nil
}
