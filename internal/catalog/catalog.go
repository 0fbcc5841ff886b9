// Package catalog 评估问卷题库。
//
// 题库在进程启动时加载一次，之后只读；所有统计逻辑显式接收 *Catalog，
// 不通过全局变量引用。
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"training-eval/internal/model"
)

//go:embed default.yaml
var defaultYAML []byte

// Option 选项（值 + 展示文本）
type Option struct {
	Value string `yaml:"value" json:"value" validate:"required"`
	Label string `yaml:"label" json:"label" validate:"required"`
}

// RatingGroup 评分题分组
type RatingGroup struct {
	ID        int      `yaml:"id"        json:"id"`
	Group     string   `yaml:"group"     json:"group"     validate:"required"`
	Questions []string `yaml:"questions" json:"questions" validate:"min=1,dive,required"`
}

// OpenEndedQuestion 开放题
type OpenEndedQuestion struct {
	ID       int    `yaml:"id"       json:"id"`
	Question string `yaml:"question" json:"question" validate:"required"`
}

// QuestionRef 评分题在题库中的位置（分组 + 题目）
type QuestionRef struct {
	Group    string `json:"group"`
	Question string `json:"question"`
}

// document 题库文件结构
type document struct {
	RatingGroups       []RatingGroup       `yaml:"rating_groups"        json:"rating_groups"        validate:"min=1,dive"`
	RatingOptions      []Option            `yaml:"rating_options"       json:"rating_options"       validate:"len=4,dive"`
	OpenEndedQuestions []OpenEndedQuestion `yaml:"open_ended_questions" json:"open_ended_questions" validate:"dive"`
	SourceOptions      []Option            `yaml:"source_options"       json:"source_options"       validate:"min=1,dive"`
	OverallEvaluations []string            `yaml:"overall_evaluations"  json:"overall_evaluations"  validate:"len=5,unique,dive,required"`
}

// Catalog 只读题库
type Catalog struct {
	doc          document
	questions    []QuestionRef
	overallIndex map[string]int
	sourceLabels map[string]string
	ratingLabels map[model.Rating]string
}

// Default 返回内置题库
func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("内置题库无效: %v", err))
	}
	return c
}

// Load 从文件加载题库，path 为空时返回内置题库
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取题库文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析并校验 YAML 题库
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析题库失败: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("题库校验失败: %w", err)
	}

	c := &Catalog{
		doc:          doc,
		overallIndex: make(map[string]int, len(doc.OverallEvaluations)),
		sourceLabels: make(map[string]string, len(doc.SourceOptions)),
		ratingLabels: make(map[model.Rating]string, len(doc.RatingOptions)),
	}

	seen := make(map[QuestionRef]bool)
	for _, g := range doc.RatingGroups {
		for _, q := range g.Questions {
			ref := QuestionRef{Group: g.Group, Question: q}
			if seen[ref] {
				return nil, fmt.Errorf("题库校验失败: 分组 %q 中题目重复: %q", g.Group, q)
			}
			seen[ref] = true
			c.questions = append(c.questions, ref)
		}
	}
	for i, label := range doc.OverallEvaluations {
		c.overallIndex[label] = i
	}
	for _, o := range doc.SourceOptions {
		c.sourceLabels[o.Value] = o.Label
	}
	for _, o := range doc.RatingOptions {
		r := model.Rating(o.Value)
		if !r.Valid() {
			return nil, fmt.Errorf("题库校验失败: 未知评分档位 %q", o.Value)
		}
		c.ratingLabels[r] = o.Label
	}
	if len(c.ratingLabels) != len(model.Ratings) {
		return nil, fmt.Errorf("题库校验失败: rating_options 必须覆盖全部四个档位")
	}

	return c, nil
}

// Questions 按题库顺序返回全部评分题
func (c *Catalog) Questions() []QuestionRef {
	return append([]QuestionRef(nil), c.questions...)
}

// QuestionCount 每份评估应包含的评分题数量
func (c *Catalog) QuestionCount() int { return len(c.questions) }

// OpenEndedQuestions 开放题列表
func (c *Catalog) OpenEndedQuestions() []OpenEndedQuestion {
	return append([]OpenEndedQuestion(nil), c.doc.OpenEndedQuestions...)
}

// OverallEvaluations 总体评价选项（固定展示顺序）
func (c *Catalog) OverallEvaluations() []string {
	return append([]string(nil), c.doc.OverallEvaluations...)
}

// IsOverallEvaluation 判断 sources 中的一项是否为总体评价。
//
// 历史数据把总体评价与信息来源混存在同一个 sources 列表里，只能按展示文本
// 精确匹配区分；若某个来源的文本恰好等于总体评价选项会被误判，修正时只需改这里。
func (c *Catalog) IsOverallEvaluation(label string) bool {
	_, ok := c.overallIndex[label]
	return ok
}

// OverallRank 总体评价在固定顺序中的位置，未知返回 -1
func (c *Catalog) OverallRank(label string) int {
	if i, ok := c.overallIndex[label]; ok {
		return i
	}
	return -1
}

// SourceLabel 来源值的展示文本，未登记的值原样返回
func (c *Catalog) SourceLabel(value string) string {
	if l, ok := c.sourceLabels[value]; ok {
		return l
	}
	return value
}

// IsSourceOption 是否为题库登记的来源选项
func (c *Catalog) IsSourceOption(value string) bool {
	_, ok := c.sourceLabels[value]
	return ok
}

// RatingLabel 评分档位的展示文本
func (c *Catalog) RatingLabel(r model.Rating) string {
	if l, ok := c.ratingLabels[r]; ok {
		return l
	}
	return string(r)
}

// MarshalJSON 输出完整题库，供表单渲染
func (c *Catalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.doc)
}
