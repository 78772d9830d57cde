// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的缓存管理能力，用于缓存检索摘要，
支持键前缀命名空间、健康检查、JSON 序列化与命中率统计。

# 核心类型

  - Manager：缓存管理器，持有 Redis 客户端，提供 Get/Set/Delete/TTL
    以及 GetJSON/SetJSON 便捷方法。所有键都会加上 Config.KeyPrefix。
  - Config：地址、密码、连接池、默认 TTL、TLS 开关与健康检查间隔。
  - Stats：命中、未命中与键数量，HitRate 计算命中率。

# 错误语义

未命中返回 ErrCacheMiss（可用 IsCacheMiss 判断），关闭后的调用返回 ErrClosed。
调用方应把缓存错误视为非致命错误，回退到真实数据源。
*/
package cache
