// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package research 提供法庭调查使用的外部检索协作者。

WikipediaSource 通过 MediaWiki API 检索前 K 个页面并拉取纯文本简介，
输出 "Page: 标题\nSummary: 简介" 块，超出 MaxChars 的部分被截断。
HTTP 429、5xx 与网络错误被标记为瞬时故障，其余失败为 ErrBackendFailure。
出站请求经 golang.org/x/time/rate 限流，并使用 tlsutil 的加固 TLS 客户端。

装饰器：

  - WithRetry：使用 retry.Retryer 重试瞬时故障。
  - WithCache：把结果缓存到 Redis（internal/cache），缓存故障不致命。

典型组合：

	src := research.NewWikipediaSource(research.DefaultWikipediaConfig(), logger)
	r := research.WithCache(research.WithRetry(src, retryer), manager, time.Hour, logger)
*/
package research
