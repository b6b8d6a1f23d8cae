package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	domain_todo "github.com/hijjiri/todo-list/internal/domain/todo"
	grpcadapter "github.com/hijjiri/todo-list/internal/interface/grpc"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC server address")
	mode := flag.String("mode", "list", "mode: create | list | update | delete")
	text := flag.String("text", "", "text for create / update")
	rawStatus := flag.String("status", string(domain_todo.StatusActive), "status for create / update: ACTIVE | DONE")
	id := flag.Uint("id", 0, "id for update / delete")
	flag.Parse()

	conn, err := grpc.NewClient(
		*addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	client := grpcadapter.NewTodoListClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var todos []domain_todo.Todo

	switch *mode {
	case "list":
		todos, err = client.ListTodos(ctx)

	case "create":
		status := mustStatus(*rawStatus)
		todos, err = client.CreateTodo(ctx, *text, status)

	case "update":
		status := mustStatus(*rawStatus)
		todos, err = client.UpdateTodo(ctx, mustID(*id), *text, status)

	case "delete":
		todos, err = client.DeleteTodo(ctx, mustID(*id))

	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", *mode, err)
	}

	if len(todos) == 0 {
		fmt.Println("no todos")
		return
	}
	fmt.Println("todos:")
	for _, t := range todos {
		fmt.Printf("- id=%d status=%s text=%s\n", t.ID, t.Status, t.Text)
	}
}

func mustStatus(raw string) domain_todo.Status {
	s, err := domain_todo.ParseStatus(raw)
	if err != nil {
		log.Fatalf("invalid status: %v", err)
	}
	return s
}

func mustID(v uint) uint32 {
	if v > uint(^uint32(0)) {
		log.Fatalf("id out of range: %d", v)
	}
	return uint32(v)
}
