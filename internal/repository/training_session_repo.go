package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"training-eval/internal/model"
)

// SessionFilter 场次列表筛选条件，空字段表示不限
type SessionFilter struct {
	Instructor   string
	TrainingName string
	BatchID      string
}

// TrainingSessionRepository 培训场次数据访问接口
type TrainingSessionRepository interface {
	Create(ctx context.Context, s *model.TrainingSession) error
	GetByID(ctx context.Context, id string) (*model.TrainingSession, error)
	GetByTrainingAndBatch(ctx context.Context, trainingID, batchID string) (*model.TrainingSession, error)
	List(ctx context.Context, filter SessionFilter) ([]model.TrainingSession, error)
	Update(ctx context.Context, s *model.TrainingSession) error
	Delete(ctx context.Context, id string) error
}

// trainingSessionRepo TrainingSessionRepository 的 GORM 实现
type trainingSessionRepo struct {
	db *gorm.DB
}

// NewTrainingSessionRepo 创建 TrainingSessionRepository 实例
func NewTrainingSessionRepo(db *gorm.DB) TrainingSessionRepository {
	return &trainingSessionRepo{db: db}
}

func (r *trainingSessionRepo) Create(ctx context.Context, s *model.TrainingSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *trainingSessionRepo) GetByID(ctx context.Context, id string) (*model.TrainingSession, error) {
	var s model.TrainingSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *trainingSessionRepo) GetByTrainingAndBatch(ctx context.Context, trainingID, batchID string) (*model.TrainingSession, error) {
	var s model.TrainingSession
	err := r.db.WithContext(ctx).
		Where("training_id = ? AND batch_id = ?", trainingID, batchID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *trainingSessionRepo) List(ctx context.Context, filter SessionFilter) ([]model.TrainingSession, error) {
	query := r.db.WithContext(ctx).Model(&model.TrainingSession{})

	if v := strings.TrimSpace(filter.Instructor); v != "" {
		query = query.Where("instructor_name ILIKE ?", likePattern(v))
	}
	if v := strings.TrimSpace(filter.TrainingName); v != "" {
		query = query.Where("training_name ILIKE ?", likePattern(v))
	}
	if v := strings.TrimSpace(filter.BatchID); v != "" {
		query = query.Where("batch_id ILIKE ?", likePattern(v))
	}

	sessions := []model.TrainingSession{}
	err := query.Order("created_at DESC").Find(&sessions).Error
	return sessions, err
}

// Update 按主键覆盖全部字段；行已被删除时返回 gorm.ErrRecordNotFound，不会重新插入
func (r *trainingSessionRepo) Update(ctx context.Context, s *model.TrainingSession) error {
	result := r.db.WithContext(ctx).
		Model(s).
		Select("*").
		Omit("id", "created_at").
		Updates(s)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除场次，评估由外键 ON DELETE CASCADE 级联删除；id 不存在时不报错
func (r *trainingSessionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.TrainingSession{}).Error
}

// likePattern 转义 LIKE 通配符后包成子串匹配
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
