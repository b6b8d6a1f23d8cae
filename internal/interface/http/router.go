package httpadapter

import (
	"net/http"
	"time"

	"github.com/hijjiri/todo-list/internal/metrics"
	todo_usecase "github.com/hijjiri/todo-list/internal/usecase/todo"

	"go.uber.org/zap"
)

// NewRouter は /v1 のルートとミドルウェアを組み立てた http.Handler を返す。
// 外側から CORS -> request id -> logging -> recovery -> timeout の順に通る。
// logging を recovery の外に置くので panic したリクエストもアクセスログに残る。
func NewRouter(uc todo_usecase.Usecase, logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	NewTodoHandler(uc, logger, m).Register(mux)

	var h http.Handler = mux
	h = WithTimeout(timeout)(h)
	h = WithRecovery(logger)(h)
	h = WithLogging(logger)(h)
	h = WithRequestID(h)
	h = WithCORS(h)
	return h
}
