package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"training-eval/internal/model"
	"training-eval/internal/repository"
)

// ── Mock TrainingSessionRepository ──

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.TrainingSession
	evals    *mockEvaluationRepo // 用于模拟级联删除
	seq      int
	err      error // 非 nil 时所有方法返回该错误
	// beforeUpdate 在 Update 写入前调用（不持有锁），用于模拟并发删除
	beforeUpdate func()
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.TrainingSession)}
}

func (m *mockSessionRepo) Create(_ context.Context, s *model.TrainingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	// created_at 严格递增，便于断言排序
	m.seq++
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Minute)
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetByTrainingAndBatch(_ context.Context, trainingID, batchID string) (*model.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.sessions {
		if s.TrainingID == trainingID && s.BatchID == batchID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) List(_ context.Context, filter repository.SessionFilter) ([]model.TrainingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	contains := func(field, q string) bool {
		return q == "" || strings.Contains(strings.ToLower(field), strings.ToLower(q))
	}
	result := []model.TrainingSession{}
	for _, s := range m.sessions {
		if contains(s.Instructor(), filter.Instructor) &&
			contains(s.TrainingName, filter.TrainingName) &&
			contains(s.BatchID, filter.BatchID) {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockSessionRepo) Update(_ context.Context, s *model.TrainingSession) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.sessions[s.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return m.err
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.evals != nil {
		m.evals.deleteBySession(id)
	}
	return nil
}

func (m *mockSessionRepo) exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

func (m *mockSessionRepo) get(id string) *model.TrainingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp
	}
	return nil
}

// ── Mock EvaluationRepository ──

type mockEvaluationRepo struct {
	mu       sync.Mutex
	evals    []model.Evaluation
	sessions *mockSessionRepo // 用于模拟外键约束与预加载
	now      func() time.Time
	err      error
	calls    int
}

func newMockEvaluationRepo(sessions *mockSessionRepo) *mockEvaluationRepo {
	return &mockEvaluationRepo{sessions: sessions, now: time.Now}
}

func (m *mockEvaluationRepo) Create(_ context.Context, e *model.Evaluation) error {
	if !m.sessions.exists(e.TrainingSessionID) {
		return fmt.Errorf("insert evaluation: %w", gorm.ErrForeignKeyViolated)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = m.now()
	}
	m.evals = append(m.evals, *e)
	return nil
}

func (m *mockEvaluationRepo) ListBySession(_ context.Context, sessionID string) ([]model.Evaluation, error) {
	return m.list(func(e *model.Evaluation) bool { return e.TrainingSessionID == sessionID })
}

func (m *mockEvaluationRepo) ListAll(_ context.Context) ([]model.Evaluation, error) {
	return m.list(func(*model.Evaluation) bool { return true })
}

func (m *mockEvaluationRepo) list(keep func(*model.Evaluation) bool) ([]model.Evaluation, error) {
	m.mu.Lock()
	m.calls++
	if m.err != nil {
		m.mu.Unlock()
		return nil, m.err
	}
	result := []model.Evaluation{}
	for i := range m.evals {
		if keep(&m.evals[i]) {
			result = append(result, m.evals[i])
		}
	}
	m.mu.Unlock()

	for i := range result {
		result[i].TrainingSession = m.sessions.get(result[i].TrainingSessionID)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].SubmittedAt.After(result[j].SubmittedAt) })
	return result, nil
}

func (m *mockEvaluationRepo) deleteBySession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.evals[:0]
	for _, e := range m.evals {
		if e.TrainingSessionID != sessionID {
			kept = append(kept, e)
		}
	}
	m.evals = kept
}

// ── Mock AdminUserRepository ──

type mockAdminUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.AdminUser // key: id
	err   error
}

func newMockAdminUserRepo() *mockAdminUserRepo {
	return &mockAdminUserRepo{users: make(map[string]*model.AdminUser)}
}

func (m *mockAdminUserRepo) Create(_ context.Context, u *model.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockAdminUserRepo) GetByID(_ context.Context, id string) (*model.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAdminUserRepo) GetByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAdminUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LastLoginAt = &at
	return nil
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	mu   sync.Mutex
	jtis map[string]time.Duration
	err  error
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{jtis: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jtis[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.jtis[jti]
	return ok, nil
}

// ── 测试辅助 ──

var errDBDown = errors.New("connection refused")

// mockRepos 一组相互关联的 mock 仓储
type mockRepos struct {
	sessions *mockSessionRepo
	evals    *mockEvaluationRepo
	admins   *mockAdminUserRepo
	repo     *repository.Repository
}

func newMockRepos() *mockRepos {
	sessions := newMockSessionRepo()
	evals := newMockEvaluationRepo(sessions)
	sessions.evals = evals
	admins := newMockAdminUserRepo()
	return &mockRepos{
		sessions: sessions,
		evals:    evals,
		admins:   admins,
		repo: &repository.Repository{
			TrainingSession: sessions,
			Evaluation:      evals,
			AdminUser:       admins,
		},
	}
}

// seedSession 直接写入一条场次
func (m *mockRepos) seedSession(trainingID, batchID, name, instructor string) *model.TrainingSession {
	s := &model.TrainingSession{TrainingID: trainingID, BatchID: batchID, TrainingName: name}
	if instructor != "" {
		s.InstructorName = &instructor
	}
	_ = m.sessions.Create(context.Background(), s)
	return s
}

// seedEvaluation 直接写入一条评估
func (m *mockRepos) seedEvaluation(sessionID string, at time.Time, ratings ...model.Rating) *model.Evaluation {
	e := &model.Evaluation{TrainingSessionID: sessionID, SubmittedAt: at}
	for i, r := range ratings {
		e.Ratings = append(e.Ratings, model.RatingEntry{Group: "G", Question: fmt.Sprintf("Q%d", i), Rating: r})
	}
	_ = m.evals.Create(context.Background(), e)
	return e
}

// testNow 测试用的固定"当前时间"
var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
