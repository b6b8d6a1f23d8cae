package grpcadapter

import (
	"context"
	"errors"
	"fmt"
	"math"

	domain_todo "github.com/hijjiri/todo-list/internal/domain/todo"
	"github.com/hijjiri/todo-list/internal/metrics"
	todo_usecase "github.com/hijjiri/todo-list/internal/usecase/todo"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var errInvalidArgument = errors.New("invalid argument")

type TodoHandler struct {
	uc      todo_usecase.Usecase
	logger  *zap.Logger
	metrics *metrics.Metrics
}

var _ TodoListServiceServer = (*TodoHandler)(nil)

func NewTodoHandler(uc todo_usecase.Usecase, logger *zap.Logger, m *metrics.Metrics) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoHandler{uc: uc, logger: logger, metrics: m}
}

// --- List ---
func (h *TodoHandler) ListTodos(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	todos, err := h.uc.List(ctx)
	return h.reply(ctx, "ListTodos", todos, err)
}

// --- Create ---
func (h *TodoHandler) CreateTodo(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	text, st, err := todoFields(req)
	if err != nil {
		return nil, toGRPCError(err)
	}
	todos, err := h.uc.Create(ctx, text, st)
	return h.reply(ctx, "CreateTodo", todos, err)
}

// --- Update (upsert) ---
func (h *TodoHandler) UpdateTodo(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	id, err := idField(req)
	if err != nil {
		return nil, toGRPCError(err)
	}
	text, st, err := todoFields(req)
	if err != nil {
		return nil, toGRPCError(err)
	}
	todos, err := h.uc.Update(ctx, id, text, st)
	return h.reply(ctx, "UpdateTodo", todos, err)
}

// --- Delete ---
func (h *TodoHandler) DeleteTodo(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.ListValue, error) {
	todos, err := h.uc.Delete(ctx, req.GetValue())
	return h.reply(ctx, "DeleteTodo", todos, err)
}

// reply は usecase の結果を ListValue に詰める。
// Internal に丸めるエラーは元の err をここでログに残す。
func (h *TodoHandler) reply(ctx context.Context, method string, todos []domain_todo.Todo, err error) (*structpb.ListValue, error) {
	if err != nil {
		gerr := toGRPCError(err)
		if status.Code(gerr) == codes.Internal {
			rid, _ := RequestIDFromContext(ctx)
			h.logger.Error("todo rpc failed",
				zap.String("method", method),
				zap.String("request_id", rid),
				zap.Error(err),
			)
		}
		return nil, gerr
	}
	h.metrics.SetItems(len(todos))
	return toProtoList(todos), nil
}

// --- converter (domain <-> proto) ---

func toProtoTodo(t domain_todo.Todo) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{
		Fields: map[string]*structpb.Value{
			"id":     structpb.NewNumberValue(float64(t.ID)),
			"text":   structpb.NewStringValue(t.Text),
			"status": structpb.NewStringValue(string(t.Status)),
		},
	})
}

func toProtoList(todos []domain_todo.Todo) *structpb.ListValue {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(todos))}
	for _, t := range todos {
		list.Values = append(list.Values, toProtoTodo(t))
	}
	return list
}

func fromProtoList(list *structpb.ListValue) ([]domain_todo.Todo, error) {
	todos := make([]domain_todo.Todo, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("todo #%d is not an object", i)
		}
		id, err := idField(s)
		if err != nil {
			return nil, fmt.Errorf("todo #%d: %w", i, err)
		}
		text, st, err := todoFields(s)
		if err != nil {
			return nil, fmt.Errorf("todo #%d: %w", i, err)
		}
		todos = append(todos, domain_todo.Todo{ID: id, Text: text, Status: st})
	}
	return todos, nil
}

// todoRequestStruct は Create / Update のリクエストを組み立てる。id は Update のときだけ。
func todoRequestStruct(id *uint32, text string, st domain_todo.Status) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"text":   structpb.NewStringValue(text),
		"status": structpb.NewStringValue(string(st)),
	}
	if id != nil {
		fields["id"] = structpb.NewNumberValue(float64(*id))
	}
	return &structpb.Struct{Fields: fields}
}

func todoFields(s *structpb.Struct) (string, domain_todo.Status, error) {
	textV, ok := s.GetFields()["text"]
	if !ok {
		return "", "", fmt.Errorf("%w: text is required", errInvalidArgument)
	}
	text, ok := textV.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", "", fmt.Errorf("%w: text must be a string", errInvalidArgument)
	}

	statusV, ok := s.GetFields()["status"].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", "", domain_todo.ErrInvalidStatus
	}
	st, err := domain_todo.ParseStatus(statusV.StringValue)
	if err != nil {
		return "", "", err
	}
	return text.StringValue, st, nil
}

// idField は number 型の "id" を uint32 として取り出す。小数や範囲外は弾く。
func idField(s *structpb.Struct) (uint32, error) {
	v, ok := s.GetFields()["id"].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: id must be a number", errInvalidArgument)
	}
	n := v.NumberValue
	if n < 0 || n > math.MaxUint32 || n != math.Trunc(n) {
		return 0, fmt.Errorf("%w: id must be an unsigned 32-bit integer", errInvalidArgument)
	}
	return uint32(n), nil
}

// --- error mapper ---
func toGRPCError(err error) error {
	switch {
	case errors.Is(err, errInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, todo_usecase.ErrInvalidStatus):
		return status.Error(codes.InvalidArgument, "status must be ACTIVE or DONE")

	case errors.Is(err, todo_usecase.ErrIDExhausted):
		return status.Error(codes.ResourceExhausted, "todo id space exhausted")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timeout")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")

	default:
		// Internal の詳細はクライアントに返さない（reply でログに残す）
		return status.Error(codes.Internal, "internal error")
	}
}
