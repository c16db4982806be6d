package ipc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qbridge/internal/api"
	"qbridge/internal/config"
	"qbridge/internal/daemon"
	"qbridge/internal/ipc"
	"qbridge/internal/logging"
	"qbridge/internal/questions"
	"qbridge/internal/testsupport"
)

func startServer(t *testing.T, svc *testsupport.QuestionService) (*ipc.Server, *daemon.Daemon, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)

	d, err := daemon.New(cfg, svc, testsupport.IdleFeed{}, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(testsupport.SocketDir(t), "qbridge.sock")

	srv, err := ipc.NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	return srv, d, socket
}

func dial(t *testing.T, socket string) *ipc.Client {
	t.Helper()
	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIPCServerClient(t *testing.T) {
	svc := testsupport.NewQuestionService(testsupport.SampleQuestions()...)
	_, d, socket := startServer(t, svc)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	client := dial(t, socket)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() || status.StartedAt == "" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Service != "org.opensuse.Agama1" || status.Bus != config.BusAddress {
		t.Fatalf("unexpected bus details %+v", status)
	}

	list, err := client.ListQuestions()
	if err != nil {
		t.Fatalf("ListQuestions RPC failed: %v", err)
	}
	if len(list.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(list.Questions))
	}
	if list.Questions[0].WithPassword == nil || list.Questions[1].WithPassword != nil {
		t.Fatalf("password extension not preserved: %+v", list.Questions)
	}
	if list.Questions[0].Generic.Data["device"] != "/dev/sda1" {
		t.Fatalf("unexpected data %+v", list.Questions[0].Generic.Data)
	}

	resp, err := client.Answer(ipc.AnswerRequest{
		ID:     7,
		Answer: api.Answer{Generic: questions.GenericAnswer{Answer: "decrypt"}, WithPassword: &questions.PasswordAnswer{Password: "s3cr3t"}},
	})
	if err != nil {
		t.Fatalf("Answer RPC failed: %v", err)
	}
	if !strings.Contains(resp.Message, "7") {
		t.Fatalf("unexpected answer message %q", resp.Message)
	}
	got, _ := svc.Answer(7)
	if got.Generic.Answer != "decrypt" || got.WithPassword == nil || got.WithPassword.Password != "s3cr3t" {
		t.Fatalf("answer not forwarded intact: %+v", got)
	}
}

func TestIPCReportsQuestionServiceErrors(t *testing.T) {
	svc := testsupport.NewQuestionService()
	svc.Fail(errors.New("bus closed"))
	_, _, socket := startServer(t, svc)
	client := dial(t, socket)

	if _, err := client.ListQuestions(); err == nil || !strings.Contains(err.Error(), "Question service error: bus closed") {
		t.Fatalf("expected question service error, got %v", err)
	}
	_, err := client.Answer(ipc.AnswerRequest{ID: 1, Answer: api.Answer{Generic: questions.GenericAnswer{Answer: "yes"}}})
	if err == nil || !strings.Contains(err.Error(), "Question service error") {
		t.Fatalf("expected question service error, got %v", err)
	}
}

func TestIPCTestNotificationDisabled(t *testing.T) {
	_, _, socket := startServer(t, testsupport.NewQuestionService())
	client := dial(t, socket)

	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if resp.Sent || !strings.Contains(resp.Message, "ntfy_topic") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestIPCStopRunsHook(t *testing.T) {
	srv, d, socket := startServer(t, testsupport.NewQuestionService())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	stopped := make(chan struct{})
	srv.OnStop(func() { close(stopped) })

	resp, err := dial(t, socket).Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !resp.Stopped {
		t.Fatal("expected stop to be acknowledged")
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop hook did not run")
	}
	if d.Status(context.Background()).Running {
		t.Fatal("daemon still running after Stop")
	}
}

func TestServerCloseRemovesSocket(t *testing.T) {
	srv, _, socket := startServer(t, testsupport.NewQuestionService())
	srv.Close()
	if _, err := os.Stat(socket); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected socket to be removed, stat err=%v", err)
	}
	if _, err := ipc.Dial(socket); err == nil {
		t.Fatal("expected dial to fail after Close")
	}
}
