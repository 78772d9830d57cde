// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 persistence 提供法庭运行审计记录的持久化存储抽象及多后端实现。

每次运行结束后，court.Service 写入一条 RunRecord：最终的 SessionState
（主题、正反证据、轮次计数、法官反馈）、审判循环的结束方式、报告路径
以及失败时的错误信息。记录以运行 ID 为键，重复保存即覆盖。

# 核心接口

  - Store: 基础接口，提供 Close 和 Ping 健康检查。
  - RunStore: SaveRun / GetRun / ListRuns / DeleteRun，ListRuns 按创建时间倒序。

# 后端实现

  - Memory: 内存实现，适合开发与测试。
  - File: 原子写入 JSON 索引，适合单节点部署。
  - Redis: JSON 字符串 + Sorted Set 索引（全部 / 按主题），事务 Pipeline 写入。
  - SQL: gorm 实现，表结构由 internal/migration 管理。
  - Mongo: 每次运行一个文档，按 created_at 与 topic 建索引。

# 使用方式

	store, err := persistence.NewRunStore(ctx, config, db)
*/
package persistence
