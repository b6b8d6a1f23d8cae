package todo

import "context"

// Repository は Todo コレクションの保管場所。
// 更新系も含め、すべての操作は「操作後のコレクション全体」を返す。
type Repository interface {
	List(ctx context.Context) ([]Todo, error)
	Create(ctx context.Context, text string, status Status) ([]Todo, error)
	// Update は upsert。存在しない id でもその id で作成する。
	Update(ctx context.Context, id uint32, text string, status Status) ([]Todo, error)
	// Delete は存在しない id なら何もしない（エラーにしない）。
	Delete(ctx context.Context, id uint32) ([]Todo, error)
}
