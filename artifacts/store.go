package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Artifact describes one persisted report.
type Artifact struct {
	Path      string    `json:"path"`
	Directory string    `json:"directory"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// indexPath is where the store keeps its metadata, relative to the base path.
var indexPath = filepath.Join(".courtflow", "artifacts.json")

// FileStore使用本地文件系统保存报告.
// Paths returned by Write are relative to the base path, so a store rooted
// at "." reproduces "court_reports/{topic}_verdict.txt".
type FileStore struct {
	basePath string
	logger   *zap.Logger
	mu       sync.RWMutex
	index    map[string]*Artifact
}

// NewFileStore创建了一个新的基于文件的报告存储.
func NewFileStore(basePath string, logger *zap.Logger) (*FileStore, error) {
	if basePath == "" {
		basePath = "."
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store := &FileStore{
		basePath: basePath,
		logger:   logger.With(zap.String("component", "artifact_store")),
		index:    make(map[string]*Artifact),
	}

	if err := store.loadIndex(); err != nil {
		return nil, err
	}

	return store, nil
}

// Write creates directory if needed and replaces filename's content.
// It implements workflow.ArtifactWriter.
func (s *FileStore) Write(ctx context.Context, directory, filename, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := SanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	rel := filepath.Join(filepath.Clean(directory), name)
	if strings.HasPrefix(rel, "..") || filepath.IsAbs(directory) {
		return "", fmt.Errorf("directory %q escapes the store", directory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.basePath, filepath.Dir(rel))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}

	// 先写临时文件再重命名
	data := []byte(content)
	full := filepath.Join(s.basePath, rel)
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to commit data: %w", err)
	}

	hash := sha256.Sum256(data)
	s.index[rel] = &Artifact{
		Path:      rel,
		Directory: filepath.Dir(rel),
		Filename:  name,
		Size:      int64(len(data)),
		Checksum:  hex.EncodeToString(hash[:]),
		CreatedAt: time.Now(),
	}
	if err := s.saveIndex(); err != nil {
		return "", err
	}

	s.logger.Debug("artifact written", zap.String("path", rel), zap.Int("bytes", len(data)))
	return rel, nil
}

// Read returns the content stored at path, as returned by Write.
func (s *FileStore) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.Clean(path)))
	if err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	return string(data), nil
}

// GetMetadata returns the index entry for path.
func (s *FileStore) GetMetadata(ctx context.Context, path string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, ok := s.index[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("artifact not found: %s", path)
	}
	cp := *artifact
	return &cp, nil
}

// Verify reports whether the bytes on disk still match the recorded checksum.
func (s *FileStore) Verify(ctx context.Context, path string) (bool, error) {
	meta, err := s.GetMetadata(ctx, path)
	if err != nil {
		return false, err
	}
	content, err := s.Read(ctx, path)
	if err != nil {
		return false, err
	}
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:]) == meta.Checksum, nil
}

// List returns artifacts under directory ("" for all), newest first.
func (s *FileStore) List(ctx context.Context, directory string) ([]*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := ""
	if directory != "" {
		dir = filepath.Clean(directory)
	}
	var results []*Artifact
	for _, artifact := range s.index {
		if dir != "" && artifact.Directory != dir {
			continue
		}
		cp := *artifact
		results = append(results, &cp)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	return results, nil
}

// SanitizeFilename replaces path separators and control characters so a
// topic can be used verbatim in a filename.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == 0:
			b.WriteRune('_')
		case r < 0x20:
			continue
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "." || out == ".." {
		return ""
	}
	return out
}

func (s *FileStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.basePath, indexPath))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	if err := json.Unmarshal(data, &s.index); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}
	return nil
}

func (s *FileStore) saveIndex() error {
	full := filepath.Join(s.basePath, indexPath)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	return os.WriteFile(full, data, 0644)
}
