package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"training-eval/internal/analytics"
	"training-eval/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRecommendations = errors.New("该场次暂无推荐名单")
	ErrExportGenerateFail      = errors.New("生成 Excel 文件失败")
)

const recommendationsSheet = "Recommendations"

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 版式：A1 培训名称、A2 导出日期（均合并到 D 列），第 3 行留空，
//     第 4 行表头，第 5 行起为数据
type ExportService interface {
	// ExportRecommendations 导出场次的推荐名单，返回文件内容与建议文件名
	ExportRecommendations(ctx context.Context, sessionID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
// loc 决定导出日期按哪个时区取值
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &exportService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRecommendations — 导出推荐名单为 Excel
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportRecommendations(ctx context.Context, sessionID string) (*bytes.Buffer, string, error) {
	// 1. 查询场次
	session, err := findSession(ctx, s.repo, s.logger, sessionID)
	if err != nil {
		return nil, "", err
	}
	if session == nil {
		return nil, "", ErrSessionNotFound
	}

	// 2. 收集推荐
	evals, err := s.repo.Evaluation.ListBySession(ctx, session.ID)
	if err != nil {
		s.logger.Error("查询场次评估失败", zap.String("session_id", session.ID), zap.Error(err))
		return nil, "", err
	}
	recs := analytics.CollectRecommendations(evals)
	if len(recs) == 0 {
		return nil, "", ErrExportNoRecommendations
	}

	// 3. 生成 Excel
	date := s.now().In(s.loc).Format("2006-01-02")
	buf, err := buildRecommendationsWorkbook(session.TrainingName, date, recs)
	if err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("session_id", session.ID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("%s_Recommendations_%s.xlsx", session.TrainingName, date)
	return buf, filename, nil
}

func buildRecommendationsWorkbook(trainingName, date string, recs []analytics.Recommendation) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	// 默认 Sheet1 直接改名
	if err := f.SetSheetName("Sheet1", recommendationsSheet); err != nil {
		return nil, err
	}
	sheet := recommendationsSheet

	// 列宽
	widths := map[string]float64{"A": 8, "B": 25, "C": 20, "D": 30}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, err
		}
	}

	// 标题行
	if err := f.SetCellValue(sheet, "A1", "Training: "+trainingName); err != nil {
		return nil, err
	}
	if err := f.MergeCell(sheet, "A1", "D1"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, "A2", "Export Date: "+date); err != nil {
		return nil, err
	}
	if err := f.MergeCell(sheet, "A2", "D2"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, err
	}

	// 表头
	if err := f.SetSheetRow(sheet, "A4", &[]interface{}{"No.", "Name", "Phone Number", "Email Address"}); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A4", "D4", headerStyle); err != nil {
		return nil, err
	}

	// 数据行
	for i, r := range recs {
		row := []interface{}{r.No, r.Name, r.Phone, r.Email}
		if err := f.SetSheetRow(sheet, cell("A", 5+i), &row); err != nil {
			return nil, err
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ── 辅助函数 ──

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
