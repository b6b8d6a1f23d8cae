package todo

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status は Todo の状態。ACTIVE / DONE の2値のみ。
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusDone   Status = "DONE"
)

// Todo は Todo 集約のルートエンティティ。
// ストアに保存された Todo は必ず ID（= map のキー）を持つ。
type Todo struct {
	ID     uint32
	Text   string
	Status Status
}

// ---- ドメインエラー（sentinel error） ----

var (
	// ACTIVE / DONE 以外のステータスが来たときに使う共通エラー。
	ErrInvalidStatus = errors.New("todo status must be ACTIVE or DONE")

	// 採番カウンタが uint32 を使い切ったとき。ID は再利用しない。
	ErrIDExhausted = errors.New("todo id space exhausted")
)

// Valid reports whether s is one of the two known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusDone:
		return true
	default:
		return false
	}
}

// ParseStatus は文字列を Status に変換する。大文字小文字は区別する。
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// UnmarshalJSON は未知の値をデフォルトに丸めず、デシリアライズの時点で弾く。
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, string(b))
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
	return json.Marshal(string(s))
}
