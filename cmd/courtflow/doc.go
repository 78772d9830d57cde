// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 courtflow 命令行程序入口。

# 概述

cmd/courtflow 是历史法庭工作流的可执行入口，提供一次性审判、报告回看、
审计记录查询、审计库迁移和版本查询等子命令。程序支持 YAML 配置文件与
COURTFLOW_ 前缀环境变量、结构化日志（zap）、Prometheus textfile 指标
以及 OpenTelemetry 追踪。

# 子命令

  - run：运行一次审判，输出裁决摘要与报告（--json 输出完整裁决）
  - show：按运行 ID 回读审计记录与报告
  - history：按主题、状态列出审计记录
  - migrate：up / down / down-all / steps / goto / force / version / status / info
  - cache：stats / show / forget，查看或清除检索结果缓存
  - version：构建注入的 Version、BuildTime、GitCommit
*/
package main
