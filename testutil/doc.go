// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 courtflow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertErrorCode / AssertEvidenceCounts
  - 数据工具: MustParseJSON

# 子包

  - testutil/mocks: Mock 实现，包括 CorpusResearcher（确定性检索结果）、
    FlakyResearcher（瞬时失败注入）、MemoryArtifactWriter（内存报告存储），
    均支持 Builder 模式与错误注入

# 使用示例

	ctx := testutil.TestContext(t)
	researcher := mocks.NewCorpusResearcher().WithSilence("rivalry")
	flaky := mocks.NewFlakyResearcher(researcher).FailFirst(3).OnlyMatching("controversy")
	testutil.AssertErrorCode(t, err, types.ErrBackendFailure)
*/
package testutil
