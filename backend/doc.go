// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package backend 定义工作者执行后端边界，以及基于规则的内置实现。

# 核心类型

  - Backend / Invocation：执行某个工作者角色；后端只能通过 Invocation.Tools
    （即 workflow.TaskContext）产生状态副作用
  - RetryingBackend：以 retry.Retryer 包装后端，仅对瞬时错误重试
  - AgentTask：把后端角色适配为 workflow.Task，渲染 {field} 占位符
  - RuleBackend：确定性实现：resetter、clerk、admirer、critic、verdict_scribe

# 规则

admirer 与 critic 先完成全部检索再写入状态，每轮最多追加 ItemsPerRound 条
不重复的证据并递增各自的轮次计数；当 judge_feedback 指向本方时优先使用
细化检索词。verdict_scribe 生成三段式报告并写入
{ReportDir}/{topic}_verdict.txt。
*/
package backend
