package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"training-eval/internal/catalog"
	"training-eval/internal/dto"
	"training-eval/internal/model"
	"training-eval/internal/repository"
	pkgerrors "training-eval/pkg/errors"
)

// ── 评估模块业务错误 ──

var (
	ErrRatingsIncomplete        = errors.New("评分须按题库顺序覆盖全部题目")
	ErrUnknownSource            = errors.New("未知的信息来源")
	ErrOverallEvaluationInvalid = errors.New("未知的总体评价")
	ErrCourseDateInvalid        = errors.New("课程日期格式错误")
)

// EvaluationService 评估业务接口
type EvaluationService interface {
	// Submit 提交评估；返回错误即表示未持久化
	Submit(ctx context.Context, sessionID string, req *dto.SubmitEvaluationRequest) (*dto.EvaluationResponse, error)
	// ListBySession 某场次的全部评估，按提交时间倒序
	ListBySession(ctx context.Context, sessionID string) ([]dto.EvaluationResponse, error)
	// ListAll 全部评估，按提交时间倒序
	ListAll(ctx context.Context) ([]dto.EvaluationResponse, error)
}

type evaluationService struct {
	repo    *repository.Repository
	catalog *catalog.Catalog
	baseURL string
	logger  *zap.Logger
}

// NewEvaluationService 创建 EvaluationService 实例
func NewEvaluationService(repo *repository.Repository, cat *catalog.Catalog, baseURL string, logger *zap.Logger) EvaluationService {
	return &evaluationService{
		repo:    repo,
		catalog: cat,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ────────────────────── Submit ──────────────────────

func (s *evaluationService) Submit(ctx context.Context, sessionID string, req *dto.SubmitEvaluationRequest) (*dto.EvaluationResponse, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	ratings, err := s.buildRatings(req.Ratings)
	if err != nil {
		return nil, err
	}
	sources, err := s.buildSources(req.Sources, req.OverallEvaluation)
	if err != nil {
		return nil, err
	}
	courseDate, err := model.ParseDate(strings.TrimSpace(req.CourseDate))
	if err != nil {
		return nil, ErrCourseDateInvalid
	}

	eval := &model.Evaluation{
		TrainingSessionID:  sessionID,
		InstructorName:     strings.TrimSpace(req.InstructorName),
		Course:             strings.TrimSpace(req.Course),
		CourseDate:         courseDate,
		ParticipantName:    trimOptional(req.ParticipantName),
		ParticipantEmail:   trimOptional(req.ParticipantEmail),
		Ratings:            ratings,
		OpenEndedResponses: s.alignOpenEnded(req.OpenEndedResponses),
		Sources:            sources,
		AdditionalComments: trimOptional(req.AdditionalComments),
		Suggestions:        buildSuggestions(req.Suggestions),
	}

	if err := s.repo.Evaluation.Create(ctx, eval); err != nil {
		if pkgerrors.IsForeignKeyViolation(err) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("提交评估失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("评估已提交",
		zap.String("id", eval.ID),
		zap.String("session_id", sessionID),
	)
	return s.toEvaluationResponse(eval), nil
}

// buildRatings 校验评分与题库一一对应（同序、同分组、同题目、合法档位）
func (s *evaluationService) buildRatings(in []dto.RatingInput) ([]model.RatingEntry, error) {
	questions := s.catalog.Questions()
	if len(in) != len(questions) {
		return nil, ErrRatingsIncomplete
	}

	out := make([]model.RatingEntry, len(in))
	for i, r := range in {
		q := questions[i]
		if r.Group != q.Group || r.Question != q.Question || !r.Rating.Valid() {
			return nil, ErrRatingsIncomplete
		}
		out[i] = model.RatingEntry{Group: q.Group, Question: q.Question, Rating: r.Rating}
	}
	return out, nil
}

// alignOpenEnded 按题库开放题顺序整理回答，未作答的题目记为空字符串，题库外的题目丢弃
func (s *evaluationService) alignOpenEnded(in []dto.OpenEndedInput) []model.OpenEndedResponse {
	answers := make(map[string]string, len(in))
	for _, r := range in {
		answers[strings.TrimSpace(r.Question)] = strings.TrimSpace(r.Response)
	}

	prompts := s.catalog.OpenEndedQuestions()
	out := make([]model.OpenEndedResponse, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, model.OpenEndedResponse{
			Question: p.Question,
			Response: answers[strings.TrimSpace(p.Question)],
		})
	}
	return out
}

// buildSources 去重后校验来源，总体评价追加在末尾与来源同列存储
func (s *evaluationService) buildSources(in []string, overall string) ([]string, error) {
	out := make([]string, 0, len(in)+1)
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if seen[v] {
			continue
		}
		if !s.catalog.IsSourceOption(v) || s.catalog.IsOverallEvaluation(v) {
			return nil, ErrUnknownSource
		}
		seen[v] = true
		out = append(out, v)
	}

	if overall = strings.TrimSpace(overall); overall != "" {
		if !s.catalog.IsOverallEvaluation(overall) {
			return nil, ErrOverallEvaluationInvalid
		}
		out = append(out, overall)
	}
	return out, nil
}

// buildSuggestions 丢弃姓名、电话、邮箱全空的推荐
func buildSuggestions(in []dto.SuggestionInput) []model.Suggestion {
	out := make([]model.Suggestion, 0, len(in))
	for _, sg := range in {
		m := model.Suggestion{
			Name:  strings.TrimSpace(sg.Name),
			Phone: strings.TrimSpace(sg.Phone),
			Email: strings.TrimSpace(sg.Email),
		}
		if m.HasContent() {
			out = append(out, m)
		}
	}
	return out
}

// ────────────────────── ListBySession ──────────────────────

func (s *evaluationService) ListBySession(ctx context.Context, sessionID string) ([]dto.EvaluationResponse, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return []dto.EvaluationResponse{}, nil
	}

	evals, err := s.repo.Evaluation.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询场次评估失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return s.toEvaluationResponses(evals), nil
}

// ────────────────────── ListAll ──────────────────────

func (s *evaluationService) ListAll(ctx context.Context) ([]dto.EvaluationResponse, error) {
	evals, err := s.repo.Evaluation.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询全部评估失败", zap.Error(err))
		return nil, err
	}
	return s.toEvaluationResponses(evals), nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *evaluationService) toEvaluationResponses(evals []model.Evaluation) []dto.EvaluationResponse {
	result := make([]dto.EvaluationResponse, 0, len(evals))
	for i := range evals {
		result = append(result, *s.toEvaluationResponse(&evals[i]))
	}
	return result
}

func (s *evaluationService) toEvaluationResponse(e *model.Evaluation) *dto.EvaluationResponse {
	resp := &dto.EvaluationResponse{
		ID:                 e.ID,
		TrainingSessionID:  e.TrainingSessionID,
		InstructorName:     e.InstructorName,
		Course:             e.Course,
		CourseDate:         model.FormatDate(e.CourseDate),
		ParticipantName:    e.ParticipantName,
		ParticipantEmail:   e.ParticipantEmail,
		Ratings:            nonNil(e.Ratings),
		OpenEndedResponses: nonNil(e.OpenEndedResponses),
		Sources:            nonNil(e.Sources),
		AdditionalComments: e.AdditionalComments,
		Suggestions:        nonNil(e.Suggestions),
		SubmittedAt:        e.SubmittedAt.Format(time.RFC3339),
	}
	if e.TrainingSession != nil {
		resp.TrainingSession = toSessionResponse(e.TrainingSession, s.baseURL)
	}
	return resp
}

// nonNil 空列表序列化为 [] 而不是 null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
