// Package config 提供 courtflow 的配置加载。
//
// 配置按 默认值 → YAML 文件 → 环境变量（默认前缀 COURTFLOW）的顺序
// 合并，覆盖审判参数、重试策略、Wikipedia 检索、Redis 缓存、审计存储、
// 数据库、日志、遥测与指标。Validate 汇总所有不合法的字段。
package config
