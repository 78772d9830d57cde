package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/BaSui01/courtflow/types"
	"go.uber.org/zap"
)

// Policy 定义重试策略配置
type Policy struct {
	Attempts     int                                               // 总尝试次数（含第一次），<= 0 视为 1
	InitialDelay time.Duration                                     // 第一次重试前的延迟
	MaxDelay     time.Duration                                     // 最大延迟时间
	Multiplier   float64                                           // 延迟倍增因子（指数退避）
	Jitter       bool                                              // 是否添加随机抖动
	Retryable    func(error) bool                                  // 自定义可重试判定，默认 types.IsRetryable
	OnRetry      func(attempt int, err error, delay time.Duration) // 重试回调
}

// DefaultPolicy returns the reference configuration: 1s initial delay, 6 attempts.
func DefaultPolicy() *Policy {
	return &Policy{
		Attempts:     6,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}
}

// Retryer 重试器接口
type Retryer interface {
	// Do 执行函数，瞬时失败时根据策略重试
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// DoWithResult 执行函数并返回结果
	DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error)
}

// backoffRetryer 基于指数退避的重试器实现
type backoffRetryer struct {
	policy Policy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewBackoffRetryer 创建指数退避重试器
func NewBackoffRetryer(policy *Policy, logger *zap.Logger) Retryer {
	p := DefaultPolicy()
	if policy != nil {
		p = policy
	}
	normalized := *p

	if normalized.Attempts <= 0 {
		normalized.Attempts = 1
	}
	if normalized.InitialDelay < 0 {
		normalized.InitialDelay = 0
	}
	if normalized.MaxDelay <= 0 {
		normalized.MaxDelay = 30 * time.Second
	}
	if normalized.Multiplier < 1.0 {
		normalized.Multiplier = 2.0
	}
	if normalized.Retryable == nil {
		normalized.Retryable = types.IsRetryable
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &backoffRetryer{
		policy: normalized,
		logger: logger.With(zap.String("component", "retry")),
		sleep:  sleepContext,
	}
}

// Do 实现 Retryer.Do
func (r *backoffRetryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := r.DoWithResult(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// DoWithResult 实现 Retryer.DoWithResult
func (r *backoffRetryer) DoWithResult(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var lastErr error

	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		if attempt > 1 {
			delay := r.calculateDelay(attempt - 1)

			r.logger.Debug("retrying",
				zap.Int("attempt", attempt),
				zap.Int("attempts", r.policy.Attempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			if r.policy.OnRetry != nil {
				r.policy.OnRetry(attempt, lastErr, delay)
			}

			if err := r.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("retry cancelled: %w", err)
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return result, nil
		}
		lastErr = err

		if !r.policy.Retryable(err) {
			r.logger.Debug("error not retryable", zap.Error(err))
			return nil, err
		}
	}

	r.logger.Warn("retry attempts exhausted",
		zap.Int("attempts", r.policy.Attempts),
		zap.Error(lastErr),
	)

	return nil, types.Errorf(types.ErrBackendFailure, "failed after %d attempts", r.policy.Attempts).
		WithCause(lastErr)
}

// calculateDelay 计算第 n 次重试前的延迟
func (r *backoffRetryer) calculateDelay(retry int) time.Duration {
	delay := float64(r.policy.InitialDelay) * math.Pow(r.policy.Multiplier, float64(retry-1))

	if delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}

	if r.policy.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
