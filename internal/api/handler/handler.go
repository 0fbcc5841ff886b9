package handler

import (
	"go.uber.org/zap"

	"training-eval/config"
	"training-eval/internal/catalog"
	"training-eval/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Session    *SessionHandler
	Evaluation *EvaluationHandler
	Analytics  *AnalyticsHandler
	Export     *ExportHandler
	Catalog    *CatalogHandler
	Page       *PageHandler
	Health     *HealthHandler
}

// NewHandler 创建 Handler 聚合
// db 用于健康检查，可为 nil
func NewHandler(cfg *config.Config, svc *service.Service, cat *catalog.Catalog, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, cfg.Auth.Cookie, logger),
		Session:    NewSessionHandler(svc.Session),
		Evaluation: NewEvaluationHandler(svc.Evaluation),
		Analytics:  NewAnalyticsHandler(svc.Analytics),
		Export:     NewExportHandler(svc.Export),
		Catalog:    NewCatalogHandler(cat),
		Page:       NewPageHandler(svc.Session, svc.Analytics, cat),
		Health:     NewHealthHandler(db, logger),
	}
}
