package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// runRecordModel is the gorm row for a RunRecord. The table is created by
// the embedded migrations; AutoMigrate exists for tests and sqlite setups.
type runRecordModel struct {
	ID               string    `gorm:"primaryKey;size:64"`
	Topic            string    `gorm:"size:255;index"`
	Input            string    `gorm:"type:text"`
	Status           string    `gorm:"size:32;index"`
	LoopState        string    `gorm:"size:32"`
	Iterations       int       `gorm:"not null;default:0"`
	RaisedBy         string    `gorm:"size:255"`
	PositiveEvidence []string  `gorm:"type:text;serializer:json"`
	NegativeEvidence []string  `gorm:"type:text;serializer:json"`
	JudgeFeedback    string    `gorm:"type:text"`
	PositiveRounds   int       `gorm:"not null;default:0"`
	NegativeRounds   int       `gorm:"not null;default:0"`
	ReportPath       string    `gorm:"size:1024"`
	ReportTokens     int       `gorm:"not null;default:0"`
	ErrorMessage     string    `gorm:"type:text"`
	DurationMs       int64     `gorm:"not null;default:0"`
	CreatedAt        time.Time `gorm:"index"`
}

// TableName 指定表名
func (runRecordModel) TableName() string {
	return "run_records"
}

func toModel(r *RunRecord) *runRecordModel {
	return &runRecordModel{
		ID:               r.ID,
		Topic:            r.Topic,
		Input:            r.Input,
		Status:           string(r.Status),
		LoopState:        r.LoopState,
		Iterations:       r.Iterations,
		RaisedBy:         r.RaisedBy,
		PositiveEvidence: r.PositiveEvidence,
		NegativeEvidence: r.NegativeEvidence,
		JudgeFeedback:    r.JudgeFeedback,
		PositiveRounds:   r.PositiveRounds,
		NegativeRounds:   r.NegativeRounds,
		ReportPath:       r.ReportPath,
		ReportTokens:     r.ReportTokens,
		ErrorMessage:     r.ErrorMessage,
		DurationMs:       r.Duration.Milliseconds(),
		CreatedAt:        r.CreatedAt,
	}
}

func (m *runRecordModel) toRecord() *RunRecord {
	r := &RunRecord{
		ID:               m.ID,
		Topic:            m.Topic,
		Input:            m.Input,
		Status:           RunStatus(m.Status),
		LoopState:        m.LoopState,
		Iterations:       m.Iterations,
		RaisedBy:         m.RaisedBy,
		PositiveEvidence: m.PositiveEvidence,
		NegativeEvidence: m.NegativeEvidence,
		JudgeFeedback:    m.JudgeFeedback,
		PositiveRounds:   m.PositiveRounds,
		NegativeRounds:   m.NegativeRounds,
		ReportPath:       m.ReportPath,
		ReportTokens:     m.ReportTokens,
		ErrorMessage:     m.ErrorMessage,
		Duration:         time.Duration(m.DurationMs) * time.Millisecond,
		CreatedAt:        m.CreatedAt,
	}
	if r.PositiveEvidence == nil {
		r.PositiveEvidence = []string{}
	}
	if r.NegativeEvidence == nil {
		r.NegativeEvidence = []string{}
	}
	return r
}

// SQLRunStore 是基于 gorm 的 RunStore 实现，支持 postgres、mysql 与 sqlite.
type SQLRunStore struct {
	db *gorm.DB
}

// NewSQLRunStore 在已打开的连接上创建存储，连接生命周期由调用方管理
func NewSQLRunStore(db *gorm.DB) *SQLRunStore {
	return &SQLRunStore{db: db}
}

// AutoMigrate 创建或更新 run_records 表
func (s *SQLRunStore) AutoMigrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&runRecordModel{})
}

// Close 不关闭共享连接
func (s *SQLRunStore) Close() error {
	return nil
}

// Ping 检查数据库连接
func (s *SQLRunStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SaveRun 插入或覆盖记录
func (s *SQLRunStore) SaveRun(ctx context.Context, record *RunRecord) error {
	if err := prepare(record); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(toModel(record)).Error
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}
	return nil
}

// GetRun 按 ID 获取记录
func (s *SQLRunStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var m runRecordModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.toRecord(), nil
}

// ListRuns 列出记录，最新的在前
func (s *SQLRunStore) ListRuns(ctx context.Context, filter RunFilter) ([]*RunRecord, error) {
	q := s.db.WithContext(ctx).Model(&runRecordModel{})
	if filter.Topic != "" {
		q = q.Where("topic = ?", filter.Topic)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var models []runRecordModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*RunRecord, len(models))
	for i := range models {
		out[i] = models[i].toRecord()
	}
	return out, nil
}

// DeleteRun 删除记录
func (s *SQLRunStore) DeleteRun(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&runRecordModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
