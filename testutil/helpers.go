// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	testutil.AssertErrorCode(t, err, types.ErrBackendFailure)
//	testutil.AssertEvidenceCounts(t, report.State, 4, 4)
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/BaSui01/courtflow/types"
	"github.com/BaSui01/courtflow/workflow"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertErrorCode 断言错误链中包含指定错误码
func AssertErrorCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	if !types.HasCode(err, code) {
		t.Errorf("expected error code %s in chain, got %v", code, err)
	}
}

// AssertEvidenceCounts 断言快照中正反两方证据条数
func AssertEvidenceCounts(t *testing.T, snap workflow.Snapshot, pos, neg int) {
	t.Helper()

	if len(snap.PositiveEvidence) != pos {
		t.Errorf("positive evidence: expected %d items, got %d: %v", pos, len(snap.PositiveEvidence), snap.PositiveEvidence)
	}
	if len(snap.NegativeEvidence) != neg {
		t.Errorf("negative evidence: expected %d items, got %d: %v", neg, len(snap.NegativeEvidence), snap.NegativeEvidence)
	}
}

// =============================================================================
// 📦 数据工具
// =============================================================================

// MustParseJSON 解析 JSON 字符串，失败时 panic
func MustParseJSON[T any](s string) T {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}
