package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrShutdownTimeout = errors.New("background tasks did not finish before shutdown deadline")

// Runner はレスポンスと切り離してタスクを実行する。
// タスクはリクエストのcontextを引き継がず、それぞれtimeoutで区切る。
type Runner struct {
	logger  *zap.Logger
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewRunner(logger *zap.Logger, timeout time.Duration) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		logger:  logger,
		timeout: timeout,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Go はタスクを起動してすぐ戻る。エラーとpanicはログに残すだけ。
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("background task rejected after shutdown", zap.String("task", name))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("background task panicked",
					zap.String("task", name),
					zap.Any("panic", rec),
					zap.Stack("stack"))
			}
		}()

		ctx, cancel := context.WithTimeout(r.baseCtx, r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.logger.Warn("background task failed",
				zap.String("task", name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return
		}
		r.logger.Debug("background task done",
			zap.String("task", name),
			zap.Duration("elapsed", time.Since(start)))
	}()
}

// Wait は起動済みタスクがすべて終わるまで待つ（テスト用）。
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown は新規受付を止め、実行中のタスクを ctx の期限まで待つ。
// 期限を過ぎたら残りのタスクのcontextをキャンセルする。
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}
