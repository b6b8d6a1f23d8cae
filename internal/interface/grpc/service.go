package grpcadapter

import (
	"context"

	domain_todo "github.com/hijjiri/todo-list/internal/domain/todo"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TodoListService は HTTP の /v1/todo-list と同じ 4 操作を gRPC で公開する。
// メッセージは well-known types だけで組んでいるので .proto からの生成コードは不要。
//
//	ListTodos(Empty)        -> ListValue
//	CreateTodo(Struct)      -> ListValue   {text, status}
//	UpdateTodo(Struct)      -> ListValue   {id, text, status}
//	DeleteTodo(UInt32Value) -> ListValue
//
// どのメソッドも HTTP と同じく、操作後の一覧全体を返す。
const TodoListServiceName = "todolist.v1.TodoListService"

const (
	methodListTodos  = "/" + TodoListServiceName + "/ListTodos"
	methodCreateTodo = "/" + TodoListServiceName + "/CreateTodo"
	methodUpdateTodo = "/" + TodoListServiceName + "/UpdateTodo"
	methodDeleteTodo = "/" + TodoListServiceName + "/DeleteTodo"
)

type TodoListServiceServer interface {
	ListTodos(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	CreateTodo(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	UpdateTodo(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	DeleteTodo(context.Context, *wrapperspb.UInt32Value) (*structpb.ListValue, error)
}

var TodoListServiceDesc = grpc.ServiceDesc{
	ServiceName: TodoListServiceName,
	HandlerType: (*TodoListServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTodos", Handler: methodHandler(methodListTodos, TodoListServiceServer.ListTodos)},
		{MethodName: "CreateTodo", Handler: methodHandler(methodCreateTodo, TodoListServiceServer.CreateTodo)},
		{MethodName: "UpdateTodo", Handler: methodHandler(methodUpdateTodo, TodoListServiceServer.UpdateTodo)},
		{MethodName: "DeleteTodo", Handler: methodHandler(methodDeleteTodo, TodoListServiceServer.DeleteTodo)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "todolist/v1/todo_list.proto",
}

func RegisterTodoListServiceServer(s grpc.ServiceRegistrar, srv TodoListServiceServer) {
	s.RegisterService(&TodoListServiceDesc, srv)
}

// methodHandler は protoc-gen-go-grpc が生成する _Handler 関数と同じ形のものを作る。
func methodHandler[Req any](
	fullMethod string,
	call func(TodoListServiceServer, context.Context, *Req) (*structpb.ListValue, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(TodoListServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

//----------------------
// client
//----------------------

// TodoListClient は TodoListService のクライアント。結果は domain の Todo に戻して返す。
type TodoListClient struct {
	cc grpc.ClientConnInterface
}

func NewTodoListClient(cc grpc.ClientConnInterface) *TodoListClient {
	return &TodoListClient{cc: cc}
}

func (c *TodoListClient) ListTodos(ctx context.Context, opts ...grpc.CallOption) ([]domain_todo.Todo, error) {
	return c.invoke(ctx, methodListTodos, &emptypb.Empty{}, opts...)
}

func (c *TodoListClient) CreateTodo(ctx context.Context, text string, status domain_todo.Status, opts ...grpc.CallOption) ([]domain_todo.Todo, error) {
	return c.invoke(ctx, methodCreateTodo, todoRequestStruct(nil, text, status), opts...)
}

func (c *TodoListClient) UpdateTodo(ctx context.Context, id uint32, text string, status domain_todo.Status, opts ...grpc.CallOption) ([]domain_todo.Todo, error) {
	return c.invoke(ctx, methodUpdateTodo, todoRequestStruct(&id, text, status), opts...)
}

func (c *TodoListClient) DeleteTodo(ctx context.Context, id uint32, opts ...grpc.CallOption) ([]domain_todo.Todo, error) {
	return c.invoke(ctx, methodDeleteTodo, wrapperspb.UInt32(id), opts...)
}

func (c *TodoListClient) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) ([]domain_todo.Todo, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return fromProtoList(out)
}
