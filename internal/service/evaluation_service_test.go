package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"training-eval/internal/catalog"
	"training-eval/internal/dto"
	"training-eval/internal/model"
)

// ── 测试辅助 ──

func setupTestEvaluationService() (EvaluationService, *mockRepos) {
	repos := newMockRepos()
	svc := NewEvaluationService(repos.repo, catalog.Default(), "https://eval.example.com", zap.NewNop())
	return svc, repos
}

// fullRatings 按题库顺序为每道题填同一档位
func fullRatings(r model.Rating) []dto.RatingInput {
	var out []dto.RatingInput
	for _, q := range catalog.Default().Questions() {
		out = append(out, dto.RatingInput{Group: q.Group, Question: q.Question, Rating: r})
	}
	return out
}

func validSubmission() *dto.SubmitEvaluationRequest {
	return &dto.SubmitEvaluationRequest{
		InstructorName:    "Kaleb",
		Course:            "Leadership",
		CourseDate:        "2026-06-01",
		Ratings:           fullRatings(model.RatingExcellent),
		Sources:           []string{"facebook", "colleague"},
		OverallEvaluation: "Very Good",
		Suggestions: []dto.SuggestionInput{
			{Name: "Abebe", Phone: "0911000000"},
			{Name: "  ", Phone: "", Email: ""},
		},
	}
}

// ── Submit 测试 ──

func TestEvaluationService_Submit_Success(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	s := repos.seedSession("TR-01", "B1", "Leadership", "Kaleb")

	got, err := svc.Submit(context.Background(), s.ID, validSubmission())
	if err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if got.ID == "" || got.SubmittedAt == "" {
		t.Error("期望分配 id 与 submitted_at")
	}
	if got.TrainingSessionID != s.ID {
		t.Errorf("场次 ID 不符: %s", got.TrainingSessionID)
	}
	if len(got.Ratings) != catalog.Default().QuestionCount() {
		t.Errorf("评分数量不符: %d", len(got.Ratings))
	}
	want := []string{"facebook", "colleague", "Very Good"}
	if len(got.Sources) != len(want) {
		t.Fatalf("来源不符: %v", got.Sources)
	}
	for i := range want {
		if got.Sources[i] != want[i] {
			t.Errorf("来源第 %d 项期望 %s，实际 %s", i, want[i], got.Sources[i])
		}
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0].Name != "Abebe" {
		t.Errorf("空推荐应被丢弃: %+v", got.Suggestions)
	}
	if got.CourseDate != "2026-06-01" {
		t.Errorf("课程日期不符: %s", got.CourseDate)
	}
}

func TestEvaluationService_Submit_OpenEndedAligned(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	s := repos.seedSession("TR-01", "B1", "Leadership", "")
	prompts := catalog.Default().OpenEndedQuestions()

	req := validSubmission()
	req.OpenEndedResponses = []dto.OpenEndedInput{
		{Question: "Something not in the catalog", Response: "dropped"},
		{Question: prompts[1].Question, Response: "  More group work  "},
	}

	got, err := svc.Submit(context.Background(), s.ID, req)
	if err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if len(got.OpenEndedResponses) != len(prompts) {
		t.Fatalf("期望 %d 条开放题回答，实际 %d", len(prompts), len(got.OpenEndedResponses))
	}
	for i, p := range prompts {
		if got.OpenEndedResponses[i].Question != p.Question {
			t.Errorf("第 %d 条应对应题库题目 %q", i, p.Question)
		}
	}
	if got.OpenEndedResponses[0].Response != "" || got.OpenEndedResponses[1].Response != "More group work" {
		t.Errorf("回答对齐不符: %+v", got.OpenEndedResponses)
	}
}

func TestEvaluationService_Submit_WithoutOverall(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	s := repos.seedSession("TR-01", "B1", "Leadership", "")

	req := validSubmission()
	req.OverallEvaluation = ""
	req.Sources = []string{"linkedin", "linkedin"}

	got, err := svc.Submit(context.Background(), s.ID, req)
	if err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
	if len(got.Sources) != 1 || got.Sources[0] != "linkedin" {
		t.Errorf("期望去重且不追加总体评价: %v", got.Sources)
	}
}

func TestEvaluationService_Submit_UnknownSession(t *testing.T) {
	svc, _ := setupTestEvaluationService()

	for _, id := range []string{"00000000-0000-0000-0000-000000000000", "bogus"} {
		_, err := svc.Submit(context.Background(), id, validSubmission())
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("%q: 期望 ErrSessionNotFound，实际: %v", id, err)
		}
	}
}

func TestEvaluationService_Submit_RatingsIncomplete(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	s := repos.seedSession("TR-01", "B1", "Leadership", "")

	missing := validSubmission()
	missing.Ratings = missing.Ratings[:len(missing.Ratings)-1]

	reordered := validSubmission()
	reordered.Ratings[0], reordered.Ratings[1] = reordered.Ratings[1], reordered.Ratings[0]

	badEnum := validSubmission()
	badEnum.Ratings[3].Rating = "outstanding"

	for name, req := range map[string]*dto.SubmitEvaluationRequest{
		"缺题":   missing,
		"顺序错误": reordered,
		"未知档位": badEnum,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Submit(context.Background(), s.ID, req); !errors.Is(err, ErrRatingsIncomplete) {
				t.Errorf("期望 ErrRatingsIncomplete，实际: %v", err)
			}
		})
	}

	all, _ := repos.evals.ListAll(context.Background())
	if len(all) != 0 {
		t.Errorf("失败的提交不应持久化，实际 %d 条", len(all))
	}
}

func TestEvaluationService_Submit_SourceValidation(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	s := repos.seedSession("TR-01", "B1", "Leadership", "")

	unknown := validSubmission()
	unknown.Sources = []string{"carrier-pigeon"}
	if _, err := svc.Submit(context.Background(), s.ID, unknown); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("期望 ErrUnknownSource，实际: %v", err)
	}

	overallInSources := validSubmission()
	overallInSources.Sources = []string{"Excellent"}
	if _, err := svc.Submit(context.Background(), s.ID, overallInSources); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("总体评价不能混入来源列表，实际: %v", err)
	}

	badOverall := validSubmission()
	badOverall.OverallEvaluation = "Superb"
	if _, err := svc.Submit(context.Background(), s.ID, badOverall); !errors.Is(err, ErrOverallEvaluationInvalid) {
		t.Errorf("期望 ErrOverallEvaluationInvalid，实际: %v", err)
	}
}

func TestEvaluationService_Submit_CourseDateInvalid(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	s := repos.seedSession("TR-01", "B1", "Leadership", "")

	req := validSubmission()
	req.CourseDate = "June 1st"
	if _, err := svc.Submit(context.Background(), s.ID, req); !errors.Is(err, ErrCourseDateInvalid) {
		t.Errorf("期望 ErrCourseDateInvalid，实际: %v", err)
	}
}

func TestEvaluationService_Submit_RepoError(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	s := repos.seedSession("TR-01", "B1", "Leadership", "")
	repos.evals.err = errDBDown

	if _, err := svc.Submit(context.Background(), s.ID, validSubmission()); !errors.Is(err, errDBDown) {
		t.Errorf("期望透传仓储错误，实际: %v", err)
	}
}

// ── List 测试 ──

func TestEvaluationService_ListBySession(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	s := repos.seedSession("TR-01", "B1", "Leadership", "Kaleb")
	other := repos.seedSession("TR-02", "B1", "Sales", "Sara")
	older := repos.seedEvaluation(s.ID, testNow.Add(-time.Hour), model.RatingGood)
	newer := repos.seedEvaluation(s.ID, testNow, model.RatingExcellent)
	repos.seedEvaluation(other.ID, testNow, model.RatingGood)

	list, err := svc.ListBySession(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("ListBySession 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 条，实际 %d", len(list))
	}
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Error("期望按提交时间倒序")
	}
	if list[0].TrainingSession == nil || list[0].TrainingSession.TrainingName != "Leadership" {
		t.Error("期望带上所属场次")
	}
	if list[0].Sources == nil || list[0].Suggestions == nil {
		t.Error("空列表字段应序列化为 []")
	}
}

func TestEvaluationService_ListBySession_Empty(t *testing.T) {
	svc, _ := setupTestEvaluationService()

	for _, id := range []string{"00000000-0000-0000-0000-000000000000", "bogus"} {
		list, err := svc.ListBySession(context.Background(), id)
		if err != nil || list == nil || len(list) != 0 {
			t.Errorf("%q: 期望空列表，实际 %v / %v", id, list, err)
		}
	}
}

func TestEvaluationService_ListAll(t *testing.T) {
	svc, repos := setupTestEvaluationService()
	a := repos.seedSession("TR-01", "B1", "Leadership", "")
	b := repos.seedSession("TR-02", "B1", "Sales", "")
	repos.seedEvaluation(a.ID, testNow.Add(-2*time.Hour))
	last := repos.seedEvaluation(b.ID, testNow)

	list, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll 应成功: %v", err)
	}
	if len(list) != 2 || list[0].ID != last.ID {
		t.Errorf("ListAll 结果不符: %+v", list)
	}
}
