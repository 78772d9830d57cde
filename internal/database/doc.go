// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 负责打开审计库的 GORM 连接并管理连接池。

# 概述

Open 按驱动名（postgres / mysql / sqlite / sqlite3）选择 GORM 方言，
SQL 日志经 zap 以 warn 级别输出慢查询与错误。sqlite 使用纯 Go 的
modernc 驱动，与 internal/migration 共用同一个驱动注册名；sqlite3
使用 cgo 的 mattn 驱动。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、GetStats()、Close()，后台按间隔探活，Close 后停止。
  - PoolConfig：最大空闲/打开连接数、生命周期、空闲超时与健康检查
    间隔，Validate 拒绝非正值以及空闲数大于打开数的配置。
  - PoolStats：友好格式的连接池统计信息。
*/
package database
