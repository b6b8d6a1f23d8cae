package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	domain_todo "github.com/hijjiri/todo-list/internal/domain/todo"
	"github.com/hijjiri/todo-list/internal/metrics"
	todo_usecase "github.com/hijjiri/todo-list/internal/usecase/todo"

	"go.uber.org/zap"
)

const (
	basePath = "/v1/todo-list"

	// リクエストボディの上限
	maxBodyBytes = 1 << 20
)

var (
	errBadRequest  = errors.New("bad request")
	errMissingText = errors.New("text is required")
	errInvalidID   = errors.New("id must be an unsigned 32-bit integer")
)

// todoRequest は POST / PATCH のボディ。id は来ても無視する。
type todoRequest struct {
	ID     *uint32            `json:"id,omitempty"`
	Text   *string            `json:"text"`
	Status domain_todo.Status `json:"status"`
}

type todoResponse struct {
	ID     *uint32            `json:"id,omitempty"`
	Text   string             `json:"text"`
	Status domain_todo.Status `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type TodoHandler struct {
	uc      todo_usecase.Usecase
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewTodoHandler(uc todo_usecase.Usecase, logger *zap.Logger, m *metrics.Metrics) *TodoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TodoHandler{
		uc:      uc,
		logger:  logger,
		metrics: m,
	}
}

// Register は /v1 配下のルートを mux に登録する。
func (h *TodoHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET "+basePath, h.instrument("list", h.ListTodos))
	mux.Handle("POST "+basePath, h.instrument("create", h.CreateTodo))
	mux.Handle("PATCH "+basePath+"/{id}", h.instrument("update", h.UpdateTodo))
	mux.Handle("DELETE "+basePath+"/{id}", h.instrument("delete", h.DeleteTodo))
}

// --- List ---
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.uc.List(r.Context())
	h.respond(w, r, todos, err)
}

// --- Create ---
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	text, status, err := decodeTodo(w, r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}

	todos, err := h.uc.Create(r.Context(), text, status)
	h.respond(w, r, todos, err)
}

// --- Update (upsert) ---
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}

	text, status, err := decodeTodo(w, r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}

	todos, err := h.uc.Update(r.Context(), id, text, status)
	h.respond(w, r, todos, err)
}

// --- Delete ---
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respond(w, r, nil, err)
		return
	}

	todos, err := h.uc.Delete(r.Context(), id)
	h.respond(w, r, todos, err)
}

// respond は成功なら一覧全体を 200 で、失敗ならエラーを JSON で返す。
func (h *TodoHandler) respond(w http.ResponseWriter, r *http.Request, todos []domain_todo.Todo, err error) {
	if err != nil {
		code := toHTTPStatus(err)
		if code >= http.StatusInternalServerError {
			rid, _ := RequestIDFromContext(r.Context())
			h.logger.Error("todo request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", rid),
				zap.Error(err),
			)
		}
		writeJSON(w, code, errorResponse{Error: errorMessage(err, code)})
		return
	}

	h.metrics.SetItems(len(todos))
	writeJSON(w, http.StatusOK, toResponse(todos))
}

// instrument はルート単位のメトリクスを取る。
// panic は 500 として数えてから recovery に渡す。
func (h *TodoHandler) instrument(op string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		defer func() {
			code := rec.status
			rv := recover()
			if rv != nil {
				code = http.StatusInternalServerError
			}
			h.metrics.Observe("http", op, strconv.Itoa(code), time.Since(start))
			if rv != nil {
				panic(rv)
			}
		}()

		fn(rec, r)
	})
}

func decodeTodo(w http.ResponseWriter, r *http.Request) (string, domain_todo.Status, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	var req todoRequest
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, domain_todo.ErrInvalidStatus) || isMaxBytesErr(err) {
			return "", "", err
		}
		return "", "", fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	// JSON の後ろにゴミが付いていたら弾く
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return "", "", fmt.Errorf("%w: unexpected data after json body", errBadRequest)
	}

	if req.Text == nil {
		return "", "", errMissingText
	}
	if !req.Status.Valid() {
		return "", "", domain_todo.ErrInvalidStatus
	}
	return *req.Text, req.Status, nil
}

func pathID(r *http.Request) (uint32, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return uint32(id), nil
}

// --- converter (domain -> wire) ---
func toResponse(todos []domain_todo.Todo) []todoResponse {
	// 空でも null ではなく [] を返す
	resp := make([]todoResponse, 0, len(todos))
	for _, t := range todos {
		id := t.ID
		resp = append(resp, todoResponse{
			ID:     &id,
			Text:   t.Text,
			Status: t.Status,
		})
	}
	return resp
}

// --- error mapper ---
func toHTTPStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, errMissingText),
		errors.Is(err, errInvalidID),
		errors.Is(err, todo_usecase.ErrInvalidStatus):
		return http.StatusBadRequest

	case isMaxBytesErr(err):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, todo_usecase.ErrIDExhausted):
		return http.StatusInsufficientStorage

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

func isMaxBytesErr(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// Internal の詳細はログ側にだけ残す
func errorMessage(err error, code int) string {
	if code == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

// writeJSON はエンコードしてからヘッダを書く。失敗したら 500 にする。
func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		code = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "internal error"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}
