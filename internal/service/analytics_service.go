package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"training-eval/internal/analytics"
	"training-eval/internal/catalog"
	"training-eval/internal/dto"
	"training-eval/internal/model"
	"training-eval/internal/repository"
)

// AnalyticsOptions 统计服务参数
type AnalyticsOptions struct {
	SessionScale     analytics.Scale
	InstructorScale  analytics.Scale
	TrendMonths      int
	FetchConcurrency int
	Location         *time.Location
	BaseURL          string
}

// AnalyticsService 统计分析业务接口
type AnalyticsService interface {
	// SessionAnalytics 单场次统计；场次不存在返回 ErrSessionNotFound，暂无评估时 Summary 为 nil
	SessionAnalytics(ctx context.Context, sessionID string) (*dto.SessionAnalyticsResponse, error)
	// InstructorAnalytics 讲师维度统计（筛选 + 排序）
	InstructorAnalytics(ctx context.Context, req *dto.InstructorAnalyticsRequest) (*dto.InstructorAnalyticsResponse, error)
}

type analyticsService struct {
	repo    *repository.Repository
	catalog *catalog.Catalog
	opts    AnalyticsOptions
	now     func() time.Time
	logger  *zap.Logger
}

// NewAnalyticsService 创建 AnalyticsService 实例
func NewAnalyticsService(repo *repository.Repository, cat *catalog.Catalog, opts AnalyticsOptions, logger *zap.Logger) AnalyticsService {
	if opts.SessionScale == nil {
		opts.SessionScale = analytics.DefaultSessionScale()
	}
	if opts.InstructorScale == nil {
		opts.InstructorScale = analytics.DefaultInstructorScale()
	}
	if opts.TrendMonths <= 0 {
		opts.TrendMonths = 6
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 8
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &analyticsService{
		repo:    repo,
		catalog: cat,
		opts:    opts,
		now:     time.Now,
		logger:  logger,
	}
}

// ────────────────────── SessionAnalytics ──────────────────────

func (s *analyticsService) SessionAnalytics(ctx context.Context, sessionID string) (*dto.SessionAnalyticsResponse, error) {
	session, err := findSession(ctx, s.repo, s.logger, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	evals, err := s.repo.Evaluation.ListBySession(ctx, session.ID)
	if err != nil {
		s.logger.Error("查询场次评估失败", zap.String("session_id", session.ID), zap.Error(err))
		return nil, err
	}

	return &dto.SessionAnalyticsResponse{
		Session: *toSessionResponse(session, s.opts.BaseURL),
		Summary: analytics.SummarizeSession(evals, s.catalog, s.opts.SessionScale),
	}, nil
}

// ────────────────────── InstructorAnalytics ──────────────────────

func (s *analyticsService) InstructorAnalytics(ctx context.Context, req *dto.InstructorAnalyticsRequest) (*dto.InstructorAnalyticsResponse, error) {
	sessions, err := s.repo.TrainingSession.List(ctx, repository.SessionFilter{})
	if err != nil {
		s.logger.Error("列出培训场次失败", zap.Error(err))
		return nil, err
	}

	input, err := s.fetchEvaluations(ctx, sessions)
	if err != nil {
		return nil, err
	}

	reports := analytics.BuildInstructorReports(input, s.opts.InstructorScale, s.opts.Location)
	reports = analytics.FilterInstructors(reports, analytics.InstructorFilter{
		Search:    req.Search,
		MinRating: req.MinRating,
		Range:     analytics.TimeRange(req.Range),
		Now:       s.now(),
	}, s.opts.InstructorScale)
	analytics.SortInstructors(reports, analytics.SortKey(req.SortBy))

	resp := &dto.InstructorAnalyticsResponse{
		Scale:       s.opts.InstructorScale.Max(),
		Instructors: make([]dto.InstructorResponse, 0, len(reports)),
	}
	var avgSum float64
	for i := range reports {
		r := &reports[i]
		resp.Instructors = append(resp.Instructors, dto.InstructorResponse{
			Name:             r.Name,
			Sessions:         r.Sessions,
			AvgRating:        r.AvgRating,
			TotalSessions:    r.TotalSessions,
			TotalEvaluations: r.TotalEvaluations,
			FeedbackCount:    r.FeedbackCount,
			Trends:           r.RecentTrends(s.opts.TrendMonths),
		})
		avgSum += r.AvgRating
		resp.Overview.TotalSessions += r.TotalSessions
		resp.Overview.TotalEvaluations += r.TotalEvaluations
	}
	resp.Overview.TotalInstructors = len(reports)
	if len(reports) > 0 {
		resp.Overview.AvgRating = math.Round(avgSum/float64(len(reports))*100) / 100
	}

	return resp, nil
}

// fetchEvaluations 并发拉取每个有讲师的场次的评估
// 结果按 sessions 的顺序写入，与并发完成顺序无关
func (s *analyticsService) fetchEvaluations(ctx context.Context, sessions []model.TrainingSession) ([]analytics.SessionEvaluations, error) {
	out := make([]analytics.SessionEvaluations, len(sessions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FetchConcurrency)

	for i := range sessions {
		out[i].Session = sessions[i]
		if sessions[i].Instructor() == "" {
			continue
		}
		g.Go(func() error {
			evals, err := s.repo.Evaluation.ListBySession(gctx, sessions[i].ID)
			if err != nil {
				s.logger.Error("查询场次评估失败", zap.String("session_id", sessions[i].ID), zap.Error(err))
				return err
			}
			out[i].Evaluations = evals
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
