// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供会话状态、任务契约与组合执行引擎。

# 概述

workflow 包实现了 courtflow 的编排内核：一次运行持有一个 SessionState，
由 Sequential、Parallel、BoundedLoop 三种组合器驱动任务，
任务只能通过 TaskContext.Do 发出声明过的操作来读写状态或产生副作用。

# 核心接口与类型

  - SessionState：单次运行共享的字段存储（Set / Append / Get / Reset / Snapshot）
  - Operation：封闭的操作集合：SetField、AppendField、ResetState、
    RaiseTermination、WriteArtifact、Query
  - Task / Policy：任务接口与其声明的操作、可写字段
  - Outcome：Continue / ContinueWithFeedback / Terminate
  - Composer：组合节点接口；Step 把 Task 适配为 Composer
  - Sequential：顺序执行，首个失败立即终止
  - Parallel：并发执行并等待全部子节点，失败合并上报
  - BoundedLoop：有上限的循环，按 TerminationSignal 提前结束
  - Engine / RunReport：创建运行、执行组合树并返回最终快照

# 主要能力

  - 契约检查：未声明的操作、越权字段、重复 Reset、重复终止均返回
    TASK_CONTRACT_VIOLATION
  - 冲突检测：WithConflictDetection 开启后，Parallel 对各分支写集求交
  - 可观测性：Observer 回调、OpenTelemetry span、WorkflowStreamEmitter 事件流
  - 执行历史：ExecutionHistory 记录每个节点在每轮迭代中的执行情况
*/
package workflow
