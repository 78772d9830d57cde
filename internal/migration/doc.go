// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理审计表 run_records 的 Schema 版本，基于
golang-migrate 实现，支持 PostgreSQL、MySQL 与 SQLite。

# 概述

各方言的 SQL 迁移文件通过 embed.FS 内嵌，列定义与
persistence.SQLRunStore 的 gorm 模型保持一致；Config.MigrationsPath
非空时改为从磁盘目录读取。SQLite 走纯 Go 的 modernc 驱动。
迁移过程日志通过 zap 输出，ctx 结束后在当前迁移完成时停止。

# 核心类型

  - Migrator / DefaultMigrator：Up、Down、DownAll、Steps、Goto、Force、
    Version、Status、Info、Close。
  - Config：数据库类型、连接 URL、迁移表名、锁超时与日志。
  - CLI：courtflow migrate 子命令的格式化输出。

# 工厂函数

NewMigratorFromDatabaseConfig 从 config 包的
数据库配置构建连接 URL；NewMigratorFromURL 直接使用驱动名与 URL。
*/
package migration
