package repository

import "errors"

var (
	// ErrNotFound はドキュメントが存在しない。
	ErrNotFound = errors.New("not found")

	// ErrConflict は期待した version と保存済みの version が一致しない（楽観ロック）。
	ErrConflict = errors.New("version conflict")

	// ErrDuplicate は一意キー（注文ID / 冪等キー）の重複。
	ErrDuplicate = errors.New("duplicate")
)
