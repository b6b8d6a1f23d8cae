package grpcadapter

import (
	"context"
	"errors"
	"net"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	domain_todo "github.com/hijjiri/todo-list/internal/domain/todo"
	"github.com/hijjiri/todo-list/internal/infrastructure/memory"
	"github.com/hijjiri/todo-list/internal/metrics"
	todo_usecase "github.com/hijjiri/todo-list/internal/usecase/todo"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1024 * 1024

type testEnv struct {
	client *TodoListClient
	conn   *grpc.ClientConn
	repo   *memory.TodoRepository
	m      *metrics.Metrics
}

func newTestEnv(t *testing.T, uc todo_usecase.Usecase, seed ...domain_todo.Todo) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, uc, zap.NewNop(), seed...)
}

func newTestEnvWithLogger(t *testing.T, uc todo_usecase.Usecase, logger *zap.Logger, seed ...domain_todo.Todo) *testEnv {
	t.Helper()

	repo := memory.NewTodoRepositoryWithItems(seed...)
	if uc == nil {
		uc = todo_usecase.New(repo, zap.NewNop(), nil)
	}
	m := metrics.New(prometheus.NewRegistry())

	srv, _ := NewServer(uc, logger, m, 50*time.Millisecond)

	lis := bufconn.Listen(bufSize)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to dial bufnet: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &testEnv{
		client: NewTodoListClient(conn),
		conn:   conn,
		repo:   repo,
		m:      m,
	}
}

func TestCreateTodo_EmptyStore(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	got, err := env.client.CreateTodo(context.Background(), "Eat Pizza", domain_todo.StatusActive)
	if err != nil {
		t.Fatalf("CreateTodo returned error: %v", err)
	}

	want := []domain_todo.Todo{{ID: 1, Text: "Eat Pizza", Status: domain_todo.StatusActive}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %#v, got %#v", want, got)
	}
}

func TestListTodos_Seeded(t *testing.T) {
	t.Parallel()

	seed := domain_todo.Todo{ID: 1, Text: "Eat Pizza", Status: domain_todo.StatusActive}
	env := newTestEnv(t, nil, seed)

	got, err := env.client.ListTodos(context.Background())
	if err != nil {
		t.Fatalf("ListTodos returned error: %v", err)
	}
	if !reflect.DeepEqual(got, []domain_todo.Todo{seed}) {
		t.Errorf("unexpected list: %#v", got)
	}
}

func TestUpdateTodo_Upsert(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, domain_todo.Todo{ID: 1, Text: "Eat Pizza", Status: domain_todo.StatusActive})
	ctx := context.Background()

	got, err := env.client.UpdateTodo(ctx, 1, "Sleep", domain_todo.StatusDone)
	if err != nil {
		t.Fatalf("UpdateTodo returned error: %v", err)
	}
	want := []domain_todo.Todo{{ID: 1, Text: "Sleep", Status: domain_todo.StatusDone}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %#v, got %#v", want, got)
	}

	got, err = env.client.UpdateTodo(ctx, 40, "新規", domain_todo.StatusActive)
	if err != nil {
		t.Fatalf("UpdateTodo returned error: %v", err)
	}
	if len(got) != 2 || got[1].ID != 40 {
		t.Errorf("expected upserted id=40, got %#v", got)
	}
}

func TestDeleteTodo_MissingIsNoop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	got, err := env.client.DeleteTodo(context.Background(), 5)
	if err != nil {
		t.Fatalf("DeleteTodo returned error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list, got %#v", got)
	}
}

func TestCreateTodo_Concurrent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, text := range []string{"A", "B"} {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			if _, err := env.client.CreateTodo(ctx, text, domain_todo.StatusActive); err != nil {
				t.Errorf("CreateTodo returned error: %v", err)
			}
		}(text)
	}
	wg.Wait()

	got, err := env.client.ListTodos(ctx)
	if err != nil {
		t.Fatalf("ListTodos returned error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("expected ids {1,2}, got %#v", got)
	}
}

func TestInvalidArguments(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		method string
		in     *structpb.Struct
	}{
		{
			name:   "unknown status",
			method: methodCreateTodo,
			in:     todoRequestStruct(nil, "x", domain_todo.Status("PENDING")),
		},
		{
			name:   "missing text",
			method: methodCreateTodo,
			in:     &structpb.Struct{Fields: map[string]*structpb.Value{"status": structpb.NewStringValue("ACTIVE")}},
		},
		{
			name:   "text not string",
			method: methodCreateTodo,
			in: &structpb.Struct{Fields: map[string]*structpb.Value{
				"text":   structpb.NewNumberValue(1),
				"status": structpb.NewStringValue("ACTIVE"),
			}},
		},
		{
			name:   "update without id",
			method: methodUpdateTodo,
			in:     todoRequestStruct(nil, "x", domain_todo.StatusActive),
		},
		{
			name:   "fractional id",
			method: methodUpdateTodo,
			in: &structpb.Struct{Fields: map[string]*structpb.Value{
				"id":     structpb.NewNumberValue(1.5),
				"text":   structpb.NewStringValue("x"),
				"status": structpb.NewStringValue("ACTIVE"),
			}},
		},
		{
			name:   "negative id",
			method: methodUpdateTodo,
			in: &structpb.Struct{Fields: map[string]*structpb.Value{
				"id":     structpb.NewNumberValue(-1),
				"text":   structpb.NewStringValue("x"),
				"status": structpb.NewStringValue("ACTIVE"),
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := new(structpb.ListValue)
			err := env.conn.Invoke(ctx, tc.method, tc.in, out)
			if status.Code(err) != codes.InvalidArgument {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}

	got, _ := env.repo.List(ctx)
	if len(got) != 0 {
		t.Errorf("store was mutated: %#v", got)
	}
}

func TestIDExhausted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil, domain_todo.Todo{ID: 4294967295, Text: "last", Status: domain_todo.StatusDone})

	_, err := env.client.CreateTodo(context.Background(), "x", domain_todo.StatusActive)
	if status.Code(err) != codes.ResourceExhausted {
		t.Errorf("expected ResourceExhausted, got %v", err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	ctx := metadata.AppendToOutgoingContext(context.Background(), mdKeyRequestID, "rid-1")
	var header metadata.MD
	if _, err := env.client.ListTodos(ctx, grpc.Header(&header)); err != nil {
		t.Fatalf("ListTodos returned error: %v", err)
	}
	if got := header.Get(mdKeyRequestID); len(got) != 1 || got[0] != "rid-1" {
		t.Errorf("expected request id echoed, got %v", got)
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.client.CreateTodo(ctx, "A", domain_todo.StatusActive); err != nil {
		t.Fatalf("CreateTodo returned error: %v", err)
	}
	if got := testutil.ToFloat64(env.m.Requests.WithLabelValues("grpc", "CreateTodo", "OK")); got != 1 {
		t.Errorf("expected 1 CreateTodo OK, got %v", got)
	}
	if got := testutil.ToFloat64(env.m.Items); got != 1 {
		t.Errorf("expected items gauge 1, got %v", got)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	res, err := healthpb.NewHealthClient(env.conn).Check(context.Background(), &healthpb.HealthCheckRequest{
		Service: TodoListServiceName,
	})
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", res.GetStatus())
	}
}

// panic / 遅延を起こす Usecase
type faultyUsecase struct{ todo_usecase.Usecase }

func (faultyUsecase) List(ctx context.Context) ([]domain_todo.Todo, error) {
	panic("boom")
}

func (faultyUsecase) Delete(ctx context.Context, id uint32) ([]domain_todo.Todo, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (faultyUsecase) Create(ctx context.Context, text string, st domain_todo.Status) ([]domain_todo.Todo, error) {
	return nil, errors.New("store unavailable")
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, faultyUsecase{})

	_, err := env.client.ListTodos(context.Background())
	if status.Code(err) != codes.Internal {
		t.Errorf("expected Internal, got %v", err)
	}
}

func TestRecovery_LogsRequestID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	env := newTestEnvWithLogger(t, faultyUsecase{}, zap.New(core))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "abc-123")
	if _, err := env.client.ListTodos(ctx); status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}

	entries := logs.FilterMessage("panic recovered in unary handler").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 panic log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "abc-123" {
		t.Errorf("expected request_id abc-123, got %v", got)
	}
}

func TestInternalError_IsLoggedNotReturned(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	env := newTestEnvWithLogger(t, faultyUsecase{}, zap.New(core))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "rid-9")
	_, err := env.client.CreateTodo(ctx, "a", domain_todo.StatusActive)
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
	if msg := status.Convert(err).Message(); strings.Contains(msg, "store unavailable") {
		t.Errorf("internal cause leaked to client: %q", msg)
	}

	entries := logs.FilterMessage("todo rpc failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 error log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["error"] != "store unavailable" {
		t.Errorf("expected cause in log, got %v", fields["error"])
	}
	if fields["method"] != "CreateTodo" || fields["request_id"] != "rid-9" {
		t.Errorf("unexpected log fields: %v", fields)
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, faultyUsecase{})

	_, err := env.client.DeleteTodo(context.Background(), 1)
	if status.Code(err) != codes.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestFromProtoList_Rejects(t *testing.T) {
	t.Parallel()

	list := &structpb.ListValue{Values: []*structpb.Value{structpb.NewStringValue("nope")}}
	if _, err := fromProtoList(list); err == nil {
		t.Error("expected error for non-object element, got nil")
	}
}
