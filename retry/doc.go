// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package retry 提供后端调用的有界重试包装器。

只有瞬时故障（types.IsRetryable 为 true）才会被重试；Task 自身的错误
（例如违反契约的工具参数）立即返回。重试预算耗尽后，最后一次错误被包装为
types.ErrBackendFailure 且不可再重试，避免外层包装器重复重试。

延迟从 InitialDelay 开始，每次按 Multiplier 指数增长，上限为 MaxDelay，
可选 ±25% 抖动。
*/
package retry
