// =============================================================================
// 📄 MemoryArtifactWriter - 报告存储模拟实现
// =============================================================================
// 用于测试的内存报告存储，支持写入错误注入与回读
//
// 使用方法:
//
//	writer := mocks.NewMemoryArtifactWriter()
//	path, _ := writer.Write(ctx, "court_reports", "x_verdict.txt", report)
//	content, _ := writer.Read(ctx, path)
// =============================================================================
package mocks

import (
	"context"
	"fmt"
	"path"
	"sync"
)

// MemoryArtifactWriter 是 workflow.ArtifactWriter 的内存实现
type MemoryArtifactWriter struct {
	mu sync.RWMutex

	files    map[string]string
	order    []string
	writeErr error
}

// NewMemoryArtifactWriter 创建新的 MemoryArtifactWriter
func NewMemoryArtifactWriter() *MemoryArtifactWriter {
	return &MemoryArtifactWriter{files: make(map[string]string)}
}

// WithWriteError 设置 Write 返回的错误
func (w *MemoryArtifactWriter) WithWriteError(err error) *MemoryArtifactWriter {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeErr = err
	return w
}

// Write 实现 workflow.ArtifactWriter
func (w *MemoryArtifactWriter) Write(ctx context.Context, directory, filename, content string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writeErr != nil {
		return "", w.writeErr
	}
	p := path.Join(directory, filename)
	if _, exists := w.files[p]; !exists {
		w.order = append(w.order, p)
	}
	w.files[p] = content
	return p, nil
}

// Read 回读报告
func (w *MemoryArtifactWriter) Read(ctx context.Context, p string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	content, ok := w.files[p]
	if !ok {
		return "", fmt.Errorf("artifact not found: %s", p)
	}
	return content, nil
}

// Paths 按首次写入顺序返回所有路径
func (w *MemoryArtifactWriter) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string{}, w.order...)
}
