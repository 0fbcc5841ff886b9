package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"training-eval/internal/dto"
	"training-eval/internal/model"
	"training-eval/internal/repository"
	pkgerrors "training-eval/pkg/errors"
)

// ── 培训场次模块业务错误 ──

var (
	ErrSessionNotFound    = errors.New("培训场次不存在")
	ErrSessionCodeTaken   = errors.New("培训编号与批次号组合已存在")
	ErrSessionDateInvalid = errors.New("日期格式错误或结束日期早于开始日期")
)

// SessionService 培训场次业务接口
//
// 查询类方法在记录不存在时返回 (nil, nil)，"不存在"不是错误。
type SessionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SessionResponse, error)
	GetByTrainingAndBatch(ctx context.Context, trainingID, batchID string) (*dto.SessionResponse, error)
	List(ctx context.Context, req *dto.SessionListRequest) ([]dto.SessionResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSessionRequest) (*dto.SessionResponse, error)
	// Delete 删除场次并级联删除其全部评估；id 不存在时视为成功
	Delete(ctx context.Context, id string) error
}

type sessionService struct {
	repo    *repository.Repository
	baseURL string
	logger  *zap.Logger
}

// NewSessionService 创建 SessionService 实例
// baseURL 用于拼接学员填写评估的链接
func NewSessionService(repo *repository.Repository, baseURL string, logger *zap.Logger) SessionService {
	return &sessionService{
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	trainingID := strings.TrimSpace(req.TrainingID)
	batchID := strings.TrimSpace(req.BatchID)

	if err := s.ensureCodesFree(ctx, trainingID, batchID, ""); err != nil {
		return nil, err
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	session := &model.TrainingSession{
		TrainingID:     trainingID,
		BatchID:        batchID,
		TrainingName:   strings.TrimSpace(req.TrainingName),
		InstructorName: trimOptional(req.InstructorName),
		Description:    trimOptional(req.Description),
		StartDate:      start,
		EndDate:        end,
	}

	if err := s.repo.TrainingSession.Create(ctx, session); err != nil {
		s.logger.Error("创建培训场次失败",
			zap.String("training_id", trainingID),
			zap.String("batch_id", batchID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("培训场次已创建", zap.String("id", session.ID))
	return s.toSessionResponse(session), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *sessionService) GetByID(ctx context.Context, id string) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil || session == nil {
		return nil, err
	}
	return s.toSessionResponse(session), nil
}

// ────────────────────── GetByTrainingAndBatch ──────────────────────

func (s *sessionService) GetByTrainingAndBatch(ctx context.Context, trainingID, batchID string) (*dto.SessionResponse, error) {
	session, err := s.repo.TrainingSession.GetByTrainingAndBatch(ctx, strings.TrimSpace(trainingID), strings.TrimSpace(batchID))
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, nil
		}
		s.logger.Error("按编号查询培训场次失败",
			zap.String("training_id", trainingID),
			zap.String("batch_id", batchID),
			zap.Error(err),
		)
		return nil, err
	}
	return s.toSessionResponse(session), nil
}

// ────────────────────── List ──────────────────────

func (s *sessionService) List(ctx context.Context, req *dto.SessionListRequest) ([]dto.SessionResponse, error) {
	var filter repository.SessionFilter
	if req != nil {
		filter = repository.SessionFilter{
			Instructor:   req.Instructor,
			TrainingName: req.TrainingName,
			BatchID:      req.BatchID,
		}
	}

	sessions, err := s.repo.TrainingSession.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出培训场次失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *s.toSessionResponse(&sessions[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *sessionService) Update(ctx context.Context, id string, req *dto.UpdateSessionRequest) (*dto.SessionResponse, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	trainingID, batchID := session.TrainingID, session.BatchID
	if req.TrainingID != nil {
		trainingID = strings.TrimSpace(*req.TrainingID)
	}
	if req.BatchID != nil {
		batchID = strings.TrimSpace(*req.BatchID)
	}
	if trainingID != session.TrainingID || batchID != session.BatchID {
		if err := s.ensureCodesFree(ctx, trainingID, batchID, session.ID); err != nil {
			return nil, err
		}
		session.TrainingID, session.BatchID = trainingID, batchID
	}

	if req.TrainingName != nil {
		session.TrainingName = strings.TrimSpace(*req.TrainingName)
	}
	if req.InstructorName != nil {
		session.InstructorName = trimOptional(req.InstructorName)
	}
	if req.Description != nil {
		session.Description = trimOptional(req.Description)
	}

	// 日期：未传保持原值，传空字符串清空
	startRaw, endRaw := model.FormatDate(session.StartDate), model.FormatDate(session.EndDate)
	if req.StartDate != nil {
		startRaw = *req.StartDate
	}
	if req.EndDate != nil {
		endRaw = *req.EndDate
	}
	start, end, err := parseDateRange(startRaw, endRaw)
	if err != nil {
		return nil, err
	}
	session.StartDate, session.EndDate = start, end
	session.UpdatedAt = time.Now()

	if err := s.repo.TrainingSession.Update(ctx, session); err != nil {
		if pkgerrors.IsNotFound(err) {
			// 加载之后被其他管理员删除
			return nil, ErrSessionNotFound
		}
		s.logger.Error("更新培训场次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toSessionResponse(session), nil
}

// ────────────────────── Delete ──────────────────────

func (s *sessionService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if err := s.repo.TrainingSession.Delete(ctx, id); err != nil {
		s.logger.Error("删除培训场次失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("培训场次已删除", zap.String("id", id))
	return nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *sessionService) load(ctx context.Context, id string) (*model.TrainingSession, error) {
	return findSession(ctx, s.repo, s.logger, id)
}

// findSession 查询场次，不存在（含非法 id）返回 (nil, nil)
func findSession(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.TrainingSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	session, err := repo.TrainingSession.GetByID(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, nil
		}
		logger.Error("查询培训场次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return session, nil
}

// ensureCodesFree 检查 training_id + batch_id 是否已被其他场次占用
func (s *sessionService) ensureCodesFree(ctx context.Context, trainingID, batchID, selfID string) error {
	existing, err := s.repo.TrainingSession.GetByTrainingAndBatch(ctx, trainingID, batchID)
	if err != nil && !pkgerrors.IsNotFound(err) {
		s.logger.Error("查询培训场次失败", zap.Error(err))
		return err
	}
	if existing != nil && existing.ID != selfID {
		return ErrSessionCodeTaken
	}
	return nil
}

func (s *sessionService) toSessionResponse(session *model.TrainingSession) *dto.SessionResponse {
	return toSessionResponse(session, s.baseURL)
}

func toSessionResponse(session *model.TrainingSession, baseURL string) *dto.SessionResponse {
	return &dto.SessionResponse{
		ID:             session.ID,
		TrainingID:     session.TrainingID,
		BatchID:        session.BatchID,
		TrainingName:   session.TrainingName,
		InstructorName: session.InstructorName,
		Description:    session.Description,
		StartDate:      model.FormatDate(session.StartDate),
		EndDate:        model.FormatDate(session.EndDate),
		EvaluationURL:  baseURL + "/evaluation/" + session.ID,
		CreatedAt:      session.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      session.UpdatedAt.Format(time.RFC3339),
	}
}

// parseDateRange 解析起止日期，结束日期不得早于开始日期
func parseDateRange(startRaw, endRaw string) (*time.Time, *time.Time, error) {
	start, err := model.ParseDate(strings.TrimSpace(startRaw))
	if err != nil {
		return nil, nil, ErrSessionDateInvalid
	}
	end, err := model.ParseDate(strings.TrimSpace(endRaw))
	if err != nil {
		return nil, nil, ErrSessionDateInvalid
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, ErrSessionDateInvalid
	}
	return start, end, nil
}

// trimOptional 去掉首尾空白，空串视为未填写
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
