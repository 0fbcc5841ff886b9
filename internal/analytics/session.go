package analytics

import (
	"sort"
	"time"

	"training-eval/internal/catalog"
	"training-eval/internal/model"
)

// RatingCount 某一档位的作答次数
type RatingCount struct {
	Rating model.Rating `json:"rating"`
	Label  string       `json:"label"`
	Count  int          `json:"count"`
}

// QuestionAverage 单题平均分
type QuestionAverage struct {
	Group    string  `json:"group"`
	Question string  `json:"question"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

// GroupAverages 按分组聚合的单题平均分，分组与题目均保持首次出现顺序
type GroupAverages struct {
	Group     string            `json:"group"`
	Questions []QuestionAverage `json:"questions"`
}

// Tally 计数项
type Tally struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Recommendation 推荐名单中的一行，No 为汇总后的序号
type Recommendation struct {
	No    int    `json:"no"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Comment 附加意见
type Comment struct {
	EvaluationID string    `json:"evaluation_id"`
	Text         string    `json:"text"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// SessionSummary 单个培训场次的统计结果
type SessionSummary struct {
	TotalResponses     int                  `json:"total_responses"`
	RatingCounts       map[model.Rating]int `json:"rating_counts"`
	RatingDistribution []RatingCount        `json:"rating_distribution"`
	QuestionAverages   []QuestionAverage    `json:"question_averages"`
	Groups             []GroupAverages      `json:"groups"`
	OverallEvaluations []Tally              `json:"overall_evaluations"`
	Sources            []Tally              `json:"sources"`
	Recommendations    []Recommendation     `json:"recommendations"`
	Comments           []Comment            `json:"comments"`
}

type questionAcc struct {
	sum   float64
	count int
}

// SummarizeSession 汇总一个场次的全部评估
//
// 没有任何评估时返回 nil（空状态），而不是全零结构。
func SummarizeSession(evals []model.Evaluation, cat *catalog.Catalog, scale Scale) *SessionSummary {
	if len(evals) == 0 {
		return nil
	}

	summary := &SessionSummary{
		TotalResponses: len(evals),
		RatingCounts:   make(map[model.Rating]int),
		Comments:       []Comment{},
	}

	// ── 评分分布 + 单题平均 ──
	var order []catalog.QuestionRef
	acc := make(map[catalog.QuestionRef]*questionAcc)
	for i := range evals {
		for _, r := range evals[i].Ratings {
			value, ok := scale.Value(r.Rating)
			if !ok {
				continue
			}
			summary.RatingCounts[r.Rating]++

			key := catalog.QuestionRef{Group: r.Group, Question: r.Question}
			a, seen := acc[key]
			if !seen {
				a = &questionAcc{}
				acc[key] = a
				order = append(order, key)
			}
			a.sum += value
			a.count++
		}
	}

	for _, r := range model.Ratings {
		if n := summary.RatingCounts[r]; n > 0 {
			summary.RatingDistribution = append(summary.RatingDistribution, RatingCount{
				Rating: r,
				Label:  cat.RatingLabel(r),
				Count:  n,
			})
		}
	}

	groupIndex := make(map[string]int)
	for _, key := range order {
		a := acc[key]
		qa := QuestionAverage{
			Group:    key.Group,
			Question: key.Question,
			Average:  average(a.sum, a.count),
			Count:    a.count,
		}
		summary.QuestionAverages = append(summary.QuestionAverages, qa)

		idx, ok := groupIndex[key.Group]
		if !ok {
			idx = len(summary.Groups)
			groupIndex[key.Group] = idx
			summary.Groups = append(summary.Groups, GroupAverages{Group: key.Group})
		}
		summary.Groups[idx].Questions = append(summary.Groups[idx].Questions, qa)
	}

	// ── 总体评价 / 信息来源拆分 ──
	summary.OverallEvaluations, summary.Sources = splitSources(evals, cat)

	// ── 推荐名单 + 附加意见 ──
	summary.Recommendations = CollectRecommendations(evals)
	for i := range evals {
		if text := evals[i].Comment(); text != "" {
			summary.Comments = append(summary.Comments, Comment{
				EvaluationID: evals[i].ID,
				Text:         text,
				SubmittedAt:  evals[i].SubmittedAt,
			})
		}
	}

	return summary
}

// CollectRecommendations 按收集顺序列出全部非空推荐，序号从 1 开始
func CollectRecommendations(evals []model.Evaluation) []Recommendation {
	out := []Recommendation{}
	for i := range evals {
		for _, s := range evals[i].Suggestions {
			if !s.HasContent() {
				continue
			}
			out = append(out, Recommendation{
				No:    len(out) + 1,
				Name:  s.Name,
				Phone: s.Phone,
				Email: s.Email,
			})
		}
	}
	return out
}

// splitSources 把 sources 中的每一项归入总体评价或信息来源之一
// 总体评价按题库固定顺序输出，信息来源按次数降序（次数相同保持首次出现顺序）
func splitSources(evals []model.Evaluation, cat *catalog.Catalog) (overall, sources []Tally) {
	overallCounts := make(map[string]int)
	sourceCounts := make(map[string]int)
	var sourceOrder []string

	for i := range evals {
		for _, s := range evals[i].Sources {
			if cat.IsOverallEvaluation(s) {
				overallCounts[s]++
				continue
			}
			if _, seen := sourceCounts[s]; !seen {
				sourceOrder = append(sourceOrder, s)
			}
			sourceCounts[s]++
		}
	}

	overall = []Tally{}
	for _, label := range cat.OverallEvaluations() {
		if n := overallCounts[label]; n > 0 {
			overall = append(overall, Tally{Value: label, Label: label, Count: n})
		}
	}

	sources = make([]Tally, 0, len(sourceOrder))
	for _, s := range sourceOrder {
		sources = append(sources, Tally{Value: s, Label: cat.SourceLabel(s), Count: sourceCounts[s]})
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Count > sources[j].Count
	})

	return overall, sources
}
