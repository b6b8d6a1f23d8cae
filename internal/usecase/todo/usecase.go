package todo_usecase

import (
	"context"

	domain_todo "github.com/hijjiri/todo-list/internal/domain/todo"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// ===== エラー定数（Handler側からも使う） =====

var (
	ErrInvalidStatus = domain_todo.ErrInvalidStatus
	ErrIDExhausted   = domain_todo.ErrIDExhausted
)

// ===== 外部に公開する Usecase インターフェース =====

// Usecase の各メソッドは、操作後の Todo 一覧をまるごと返す。
type Usecase interface {
	List(ctx context.Context) ([]domain_todo.Todo, error)
	Create(ctx context.Context, text string, status domain_todo.Status) ([]domain_todo.Todo, error)
	Update(ctx context.Context, id uint32, text string, status domain_todo.Status) ([]domain_todo.Todo, error)
	Delete(ctx context.Context, id uint32) ([]domain_todo.Todo, error)
}

// ===== 実装 =====

type usecase struct {
	repo   domain_todo.Repository
	logger *zap.Logger
	tracer trace.Tracer
}

// New は Usecase を組み立てる。tracer が nil なら noop を使う。
func New(repo domain_todo.Repository, logger *zap.Logger, tracer trace.Tracer) Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &usecase{
		repo:   repo,
		logger: logger,
		tracer: tracer,
	}
}

// List ユースケース
func (u *usecase) List(ctx context.Context) ([]domain_todo.Todo, error) {
	ctx, span := u.tracer.Start(ctx, "todo.List")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, recordErr(span, err)
	}

	todos, err := u.repo.List(ctx)
	if err != nil {
		return nil, recordErr(span, err)
	}
	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	return todos, nil
}

// Create ユースケース
func (u *usecase) Create(ctx context.Context, text string, status domain_todo.Status) ([]domain_todo.Todo, error) {
	ctx, span := u.tracer.Start(ctx, "todo.Create")
	defer span.End()

	if !status.Valid() {
		return nil, recordErr(span, ErrInvalidStatus)
	}
	if err := ctx.Err(); err != nil {
		return nil, recordErr(span, err)
	}

	todos, err := u.repo.Create(ctx, text, status)
	if err != nil {
		u.logger.Error("failed to create todo", zap.Error(err))
		return nil, recordErr(span, err)
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	u.logger.Debug("todo created",
		zap.String("status", string(status)),
		zap.Int("count", len(todos)),
	)
	return todos, nil
}

// Update ユースケース（upsert）
func (u *usecase) Update(ctx context.Context, id uint32, text string, status domain_todo.Status) ([]domain_todo.Todo, error) {
	ctx, span := u.tracer.Start(ctx, "todo.Update",
		trace.WithAttributes(attribute.Int64("todo.id", int64(id))),
	)
	defer span.End()

	if !status.Valid() {
		return nil, recordErr(span, ErrInvalidStatus)
	}
	if err := ctx.Err(); err != nil {
		return nil, recordErr(span, err)
	}

	todos, err := u.repo.Update(ctx, id, text, status)
	if err != nil {
		u.logger.Error("failed to update todo", zap.Uint32("id", id), zap.Error(err))
		return nil, recordErr(span, err)
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	u.logger.Debug("todo updated",
		zap.Uint32("id", id),
		zap.String("status", string(status)),
	)
	return todos, nil
}

// Delete ユースケース（存在しなくてもエラーにしない）
func (u *usecase) Delete(ctx context.Context, id uint32) ([]domain_todo.Todo, error) {
	ctx, span := u.tracer.Start(ctx, "todo.Delete",
		trace.WithAttributes(attribute.Int64("todo.id", int64(id))),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, recordErr(span, err)
	}

	todos, err := u.repo.Delete(ctx, id)
	if err != nil {
		u.logger.Error("failed to delete todo", zap.Uint32("id", id), zap.Error(err))
		return nil, recordErr(span, err)
	}

	span.SetAttributes(attribute.Int("todo.count", len(todos)))
	u.logger.Debug("todo deleted", zap.Uint32("id", id))
	return todos, nil
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
