package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	repo "github.com/Fazaarycode/Scalable-Ecommerce-Platform-React-Firebase-GraphQL/internal/repository"
)

// RetryPolicy は楽観ロック競合時の再試行設定。
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        5,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

func (p RetryPolicy) tries() uint {
	if p.MaxTries == 0 {
		return 1
	}
	return p.MaxTries
}

// retryOnConflict は op が repo.ErrConflict を返す間だけ再試行する。
// それ以外のエラーは即座に返す。回数を使い切ったら ErrConflict のまま返す。
func retryOnConflict[T any](ctx context.Context, p RetryPolicy, op func() (T, error)) (T, error) {
	res, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, repo.ErrConflict) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(p.backOff()), backoff.WithMaxTries(p.tries()))

	// 最終試行が Permanent の場合は包まれたまま返ってくる
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}

// retryTransient はストア障害（競合以外も含む）を再試行する。
// 非トランザクション構成でのカートクリアに使う。
func retryTransient(ctx context.Context, p RetryPolicy, op func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	}, backoff.WithBackOff(p.backOff()), backoff.WithMaxTries(p.tries()))
	return err
}
