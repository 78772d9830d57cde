// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的工作流指标采集。

# 概述

Collector 实现 workflow.Observer，挂到 Engine 上即可记录任务、
有界循环与整次运行的指标；同一实例也作为研究缓存的命中观察者
（CacheHit / CacheMiss）以及 retry.Policy.OnRetry 的回调
（RetryHook）。指标通过 promauto.With 注册到调用方给定的
Registry，为空时使用默认 Registry。

# 指标

  - task_executions_total{task,status,code}、task_duration_seconds、
    tasks_in_flight
  - loop_iterations_total{loop}、loop_outcomes_total{loop,state}
  - runs_total{workflow,status}、run_duration_seconds、report_tokens
  - retries_total{component}
  - cache_hits_total / cache_misses_total{cache_type}
  - db_connections_open / db_connections_idle{database}
*/
package metrics
