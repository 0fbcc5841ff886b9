package repository

import (
	"context"

	"gorm.io/gorm"

	"training-eval/internal/model"
)

// EvaluationRepository 评估数据访问接口
// 评估只增不改，没有 Update / Delete
type EvaluationRepository interface {
	Create(ctx context.Context, e *model.Evaluation) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Evaluation, error)
	ListAll(ctx context.Context) ([]model.Evaluation, error)
}

// evaluationRepo EvaluationRepository 的 GORM 实现
type evaluationRepo struct {
	db *gorm.DB
}

// NewEvaluationRepo 创建 EvaluationRepository 实例
func NewEvaluationRepo(db *gorm.DB) EvaluationRepository {
	return &evaluationRepo{db: db}
}

func (r *evaluationRepo) Create(ctx context.Context, e *model.Evaluation) error {
	// 关联对象不随评估写入
	return r.db.WithContext(ctx).Omit("TrainingSession").Create(e).Error
}

func (r *evaluationRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Evaluation, error) {
	evals := []model.Evaluation{}
	err := r.db.WithContext(ctx).
		Preload("TrainingSession").
		Where("training_session_id = ?", sessionID).
		Order("submitted_at DESC").
		Find(&evals).Error
	return evals, err
}

func (r *evaluationRepo) ListAll(ctx context.Context) ([]model.Evaluation, error) {
	evals := []model.Evaluation{}
	err := r.db.WithContext(ctx).
		Preload("TrainingSession").
		Order("submitted_at DESC").
		Find(&evals).Error
	return evals, err
}
