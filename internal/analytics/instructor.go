package analytics

import (
	"sort"
	"strings"
	"time"

	"training-eval/internal/model"
)

// SessionEvaluations 一个场次及其全部评估
type SessionEvaluations struct {
	Session     model.TrainingSession
	Evaluations []model.Evaluation
}

// SessionRef 讲师报告中引用的场次摘要
type SessionRef struct {
	ID           string `json:"id"`
	TrainingID   string `json:"training_id"`
	BatchID      string `json:"batch_id"`
	TrainingName string `json:"training_name"`
}

// TrendBucket 一个自然月的评分汇总
// Count 为该月评分作答次数，Evaluations 为该月提交的评估份数
type TrendBucket struct {
	Month       string  `json:"month"` // YYYY-MM
	AvgRating   float64 `json:"avg_rating"`
	Count       int     `json:"count"`
	Evaluations int     `json:"evaluations"`
}

// InstructorReport 单个讲师的统计
type InstructorReport struct {
	Name             string        `json:"name"`
	Sessions         []SessionRef  `json:"sessions"`
	AvgRating        float64       `json:"avg_rating"`
	TotalSessions    int           `json:"total_sessions"`
	TotalEvaluations int           `json:"total_evaluations"`
	FeedbackCount    int           `json:"feedback_count"`
	Trends           []TrendBucket `json:"trends"`

	evaluations []model.Evaluation
}

// RecentTrends 最近 n 个月的趋势（Trends 已按月份升序）
func (r *InstructorReport) RecentTrends(n int) []TrendBucket {
	if n <= 0 || len(r.Trends) <= n {
		return r.Trends
	}
	return r.Trends[len(r.Trends)-n:]
}

// BuildInstructorReports 按讲师聚合场次与评估
//
// 没有讲师姓名的场次整体排除。结果按讲师在 sessions 中首次出现的顺序排列，
// 展示顺序由 SortInstructors 决定。loc 决定按哪个时区划分自然月。
func BuildInstructorReports(sessions []SessionEvaluations, scale Scale, loc *time.Location) []InstructorReport {
	if loc == nil {
		loc = time.UTC
	}

	index := make(map[string]int)
	var reports []InstructorReport

	for _, se := range sessions {
		name := se.Session.Instructor()
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(reports)
			index[name] = i
			reports = append(reports, InstructorReport{Name: name, Sessions: []SessionRef{}})
		}
		r := &reports[i]
		r.Sessions = append(r.Sessions, SessionRef{
			ID:           se.Session.ID,
			TrainingID:   se.Session.TrainingID,
			BatchID:      se.Session.BatchID,
			TrainingName: se.Session.TrainingName,
		})
		r.evaluations = append(r.evaluations, se.Evaluations...)
	}

	for i := range reports {
		r := &reports[i]
		sum, count := ratingSum(r.evaluations, scale)
		r.AvgRating = average(sum, count)
		r.TotalSessions = len(r.Sessions)
		r.TotalEvaluations = len(r.evaluations)
		for j := range r.evaluations {
			if r.evaluations[j].Comment() != "" {
				r.FeedbackCount++
			}
		}
		r.Trends = monthlyTrends(r.evaluations, scale, loc)
	}

	return reports
}

// ratingSum 所有评分作答的分值总和与次数，未知档位不计入
func ratingSum(evals []model.Evaluation, scale Scale) (float64, int) {
	var sum float64
	var count int
	for i := range evals {
		for _, r := range evals[i].Ratings {
			if v, ok := scale.Value(r.Rating); ok {
				sum += v
				count++
			}
		}
	}
	return sum, count
}

// monthlyTrends 按提交月份分桶，桶按 YYYY-MM 升序
func monthlyTrends(evals []model.Evaluation, scale Scale, loc *time.Location) []TrendBucket {
	type acc struct {
		sum   float64
		count int
		evals int
	}
	buckets := make(map[string]*acc)

	for i := range evals {
		key := evals[i].SubmittedAt.In(loc).Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &acc{}
			buckets[key] = b
		}
		b.evals++
		for _, r := range evals[i].Ratings {
			if v, ok := scale.Value(r.Rating); ok {
				b.sum += v
				b.count++
			}
		}
	}

	trends := make([]TrendBucket, 0, len(buckets))
	for month, b := range buckets {
		trends = append(trends, TrendBucket{
			Month:       month,
			AvgRating:   average(b.sum, b.count),
			Count:       b.count,
			Evaluations: b.evals,
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month < trends[j].Month })
	return trends
}

// ── 筛选 ──

// TimeRange 时间窗口
type TimeRange string

const (
	RangeAll     TimeRange = "all"
	RangeMonth   TimeRange = "month"
	RangeQuarter TimeRange = "quarter"
	RangeYear    TimeRange = "year"
)

// Valid 是否为已知时间窗口（空值视为 all）
func (tr TimeRange) Valid() bool {
	switch tr {
	case "", RangeAll, RangeMonth, RangeQuarter, RangeYear:
		return true
	}
	return false
}

// Cutoff 时间窗口的起点；all 返回 false
func (tr TimeRange) Cutoff(now time.Time) (time.Time, bool) {
	switch tr {
	case RangeMonth:
		return now.AddDate(0, -1, 0), true
	case RangeQuarter:
		return now.AddDate(0, -3, 0), true
	case RangeYear:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}

// InstructorFilter 讲师列表筛选条件
type InstructorFilter struct {
	Search    string    // 姓名子串，大小写不敏感
	MinRating int       // 评分档：n 表示平均分落在 [n, n+0.99]；0 表示不限
	Range     TimeRange // 时间窗口
	Now       time.Time // 计算时间窗口的基准时间
}

// FilterInstructors 依次应用姓名、评分档和时间窗口筛选
//
// 时间窗口会只用窗口内的评估重新计算平均分和评估份数，窗口内没有评估的讲师被剔除。
// 输入切片不会被修改。
func FilterInstructors(reports []InstructorReport, f InstructorFilter, scale Scale) []InstructorReport {
	out := make([]InstructorReport, 0, len(reports))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	for _, r := range reports {
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		if f.MinRating > 0 {
			lo := float64(f.MinRating)
			if r.AvgRating < lo || r.AvgRating > lo+0.99 {
				continue
			}
		}
		out = append(out, r)
	}

	cutoff, ok := f.Range.Cutoff(f.Now)
	if !ok {
		return out
	}

	windowed := out[:0]
	for _, r := range out {
		var recent []model.Evaluation
		for _, e := range r.evaluations {
			if !e.SubmittedAt.Before(cutoff) {
				recent = append(recent, e)
			}
		}
		if len(recent) == 0 {
			continue
		}
		sum, count := ratingSum(recent, scale)
		r.AvgRating = average(sum, count)
		r.TotalEvaluations = len(recent)
		windowed = append(windowed, r)
	}
	return windowed
}

// ── 排序 ──

// SortKey 排序字段
type SortKey string

const (
	SortByRating   SortKey = "rating"
	SortByName     SortKey = "name"
	SortBySessions SortKey = "sessions"
)

// Valid 是否为已知排序字段（空值视为 rating）
func (k SortKey) Valid() bool {
	switch k {
	case "", SortByRating, SortByName, SortBySessions:
		return true
	}
	return false
}

// SortInstructors 原地稳定排序：rating 降序（默认）、name 升序、sessions 降序
func SortInstructors(reports []InstructorReport, by SortKey) {
	var less func(a, b *InstructorReport) bool
	switch by {
	case SortByName:
		less = func(a, b *InstructorReport) bool {
			la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if la != lb {
				return la < lb
			}
			return a.Name < b.Name
		}
	case SortBySessions:
		less = func(a, b *InstructorReport) bool { return a.TotalSessions > b.TotalSessions }
	default:
		less = func(a, b *InstructorReport) bool { return a.AvgRating > b.AvgRating }
	}
	sort.SliceStable(reports, func(i, j int) bool { return less(&reports[i], &reports[j]) })
}
