// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 courtflow 的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 workflow、retry、backend、
research、court 等上层模块提供统一的错误契约。

# 核心类型

  - Error / ErrorCode：结构化错误（Code、Component、Retryable、Cause）
  - HasCode：沿整条错误链（含 errors.Join）查找错误码
  - IsRetryable：判断错误是否为可重试的瞬时故障

# 错误分类

  - TRANSIENT_BACKEND_FAILURE：后端或研究源的瞬时故障，会被 retry 包装器重试
  - BACKEND_FAILURE：重试次数耗尽或永久性后端故障
  - TASK_CONTRACT_VIOLATION：Task 违反声明的操作/字段契约，立即上抛，不重试
  - COMPOSITION_FAILURE：Sequential / Parallel / Loop 组合器包装子节点失败
  - PERSISTENCE_FAILURE：报告写入失败
  - INVALID_CONFIG：构造期参数非法（例如 maxIterations <= 0）
*/
package types
