package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRunStore是一个基于文件的"RunStore"实现.
// 适合单节点部署，所有记录保存在一个 JSON 索引中.
type FileRunStore struct {
	baseDir string
	runs    map[string]*RunRecord // in-memory cache
	mu      sync.RWMutex
	closed  bool
}

// NewFileRunStore 新建文件运行记录存储
func NewFileRunStore(baseDir string) (*FileRunStore, error) {
	dir := filepath.Join(baseDir, "runs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run store directory: %w", err)
	}

	store := &FileRunStore{
		baseDir: dir,
		runs:    make(map[string]*RunRecord),
	}

	// 装入已存在的记录
	if err := store.loadFromDisk(); err != nil {
		return nil, fmt.Errorf("failed to load runs from disk: %w", err)
	}

	return store, nil
}

func (s *FileRunStore) indexPath() string {
	return filepath.Join(s.baseDir, "index.json")
}

// 从磁盘加载所有记录到内存
func (s *FileRunStore) loadFromDisk() error {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var runs map[string]*RunRecord
	if err := json.Unmarshal(data, &runs); err != nil {
		return err
	}
	if runs != nil {
		s.runs = runs
	}
	return nil
}

// 原子写: 写入临时文件后重命名
func (s *FileRunStore) saveToDisk() error {
	data, err := json.MarshalIndent(s.runs, "", "  ")
	if err != nil {
		return err
	}

	tempPath := s.indexPath() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, s.indexPath())
}

// Close 关闭存储
func (s *FileRunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.saveToDisk()
}

// Ping 检查存储是否可用
func (s *FileRunStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// SaveRun 保存运行记录并立即落盘
func (s *FileRunStore) SaveRun(ctx context.Context, record *RunRecord) error {
	if err := prepare(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.runs[record.ID] = cloneRecord(record)
	return s.saveToDisk()
}

// GetRun 按 ID 获取运行记录
func (s *FileRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(r), nil
}

// ListRuns 按过滤条件列出记录，最新的在前
func (s *FileRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	out := make([]*RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		if filter.matches(r) {
			out = append(out, cloneRecord(r))
		}
	}
	return newestFirst(out, filter.Limit), nil
}

// DeleteRun 删除记录
func (s *FileRunStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.runs[id]; !ok {
		return ErrNotFound
	}
	delete(s.runs, id)
	return s.saveToDisk()
}
