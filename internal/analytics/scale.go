// Package analytics 评估数据的纯聚合计算，不做任何 I/O。
package analytics

import (
	"fmt"
	"math"

	"training-eval/internal/model"
)

// Scale 评分档位到分值的换算表
//
// 场次维度与讲师维度历史上使用了两套不同的分值（4/3/2/1 与 5/4/3/2），
// 两者都通过配置注入，不在计算代码里写死。
type Scale map[model.Rating]float64

// DefaultSessionScale 场次统计默认分值
func DefaultSessionScale() Scale {
	return Scale{
		model.RatingExcellent:        4,
		model.RatingVeryGood:         3,
		model.RatingGood:             2,
		model.RatingNeedsImprovement: 1,
	}
}

// DefaultInstructorScale 讲师统计默认分值
func DefaultInstructorScale() Scale {
	return Scale{
		model.RatingExcellent:        5,
		model.RatingVeryGood:         4,
		model.RatingGood:             3,
		model.RatingNeedsImprovement: 2,
	}
}

// ScaleFromConfig 由配置中的 map 构造 Scale，四个档位必须齐全
func ScaleFromConfig(m map[string]float64) (Scale, error) {
	s := make(Scale, len(model.Ratings))
	for _, r := range model.Ratings {
		v, ok := m[string(r)]
		if !ok {
			return nil, fmt.Errorf("评分换算表缺少档位 %s", r)
		}
		s[r] = v
	}
	return s, nil
}

// Value 档位对应分值；未知档位返回 false
func (s Scale) Value(r model.Rating) (float64, bool) {
	v, ok := s[r]
	return v, ok
}

// Max 换算表中的最高分
func (s Scale) Max() float64 {
	var max float64
	for _, v := range s {
		if v > max {
			max = v
		}
	}
	return max
}

// round2 保留两位小数
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// average 求平均并保留两位小数，count 为 0 时返回 0
func average(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return round2(sum / float64(count))
}
