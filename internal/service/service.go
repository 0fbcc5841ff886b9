package service

import (
	"go.uber.org/zap"

	"training-eval/internal/catalog"
	"training-eval/internal/repository"
	"training-eval/pkg/jwt"
)

// Deps 构建 Service 聚合所需的依赖
type Deps struct {
	Repo      *repository.Repository
	Catalog   *catalog.Catalog
	JWT       *jwt.Manager
	Blacklist TokenBlacklist // 可为 nil
	Events    *AuthEventBus
	Analytics AnalyticsOptions
	Logger    *zap.Logger
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Session    SessionService
	Evaluation EvaluationService
	Analytics  AnalyticsService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	return &Service{
		Auth:       NewAuthService(d.Repo, d.JWT, d.Blacklist, d.Events, d.Logger),
		Session:    NewSessionService(d.Repo, d.Analytics.BaseURL, d.Logger),
		Evaluation: NewEvaluationService(d.Repo, d.Catalog, d.Analytics.BaseURL, d.Logger),
		Analytics:  NewAnalyticsService(d.Repo, d.Catalog, d.Analytics, d.Logger),
		Export:     NewExportService(d.Repo, d.Analytics.Location, d.Logger),
	}
}
