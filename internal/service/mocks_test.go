package service

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/teamgrid/server-go/internal/model"
	"github.com/teamgrid/server-go/internal/repository"
	"github.com/teamgrid/server-go/internal/util"
)

// fakeSessionRepo is a map-backed in-memory SessionRepository.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	findErr  error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	s := &model.Session{
		ID:           params.ID,
		UserID:       params.UserID,
		TeamID:       params.TeamID,
		CreatedAt:    now,
		ExpiresAt:    params.ExpiresAt,
		LastAccessed: now,
		IPAddress:    params.IPAddress,
		UserAgent:    params.UserAgent,
	}
	f.sessions[params.ID] = s
	copied := *s
	return &copied, nil
}

func (f *fakeSessionRepo) UpdateLastAccessed(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.LastAccessed = at
	}
	return nil
}

func (f *fakeSessionRepo) UpdateLastActivity(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.LastActivityAt = &at
	}
	return nil
}

func (f *fakeSessionRepo) UpdateTeam(ctx context.Context, id string, teamID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return false, nil
	}
	s.TeamID = &teamID
	return true, nil
}

func (f *fakeSessionRepo) UpdateCSRFToken(ctx context.Context, id string, token *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.CSRFToken = token
	}
	return nil
}

func (f *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionRepo) DeleteByUserID(ctx context.Context, userID string, exceptID *string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for id, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		if exceptID != nil && id == *exceptID {
			continue
		}
		delete(f.sessions, id)
		count++
	}
	return count, nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	now := time.Now()
	for id, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionRepo) get(id string) *model.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

// fakeAttemptRepo is an in-memory AttemptLogRepository stamping rows
// with an injectable clock.
type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []model.LoginAttempt
	now      func() time.Time
}

func newFakeAttemptRepo(now func() time.Time) *fakeAttemptRepo {
	if now == nil {
		now = time.Now
	}
	return &fakeAttemptRepo{now: now}
}

func (f *fakeAttemptRepo) Record(ctx context.Context, params model.RecordLoginAttemptParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := util.GenerateToken()
	f.attempts = append(f.attempts, model.LoginAttempt{
		ID:            id[:32],
		Email:         params.Email,
		IPAddress:     params.IPAddress,
		UserAgent:     params.UserAgent,
		AttemptedAt:   f.now(),
		Success:       params.Success,
		FailureReason: params.FailureReason,
	})
	return nil
}

func (f *fakeAttemptRepo) CountFailedSince(ctx context.Context, email string, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, a := range f.attempts {
		if a.Email == email && !a.Success && a.AttemptedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeAttemptRepo) LastFailedAt(ctx context.Context, email string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *time.Time
	for i := range f.attempts {
		a := f.attempts[i]
		if a.Email == email && !a.Success {
			if last == nil || a.AttemptedAt.After(*last) {
				at := a.AttemptedAt
				last = &at
			}
		}
	}
	return last, nil
}

func (f *fakeAttemptRepo) ClearFailed(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.attempts[:0]
	for _, a := range f.attempts {
		if a.Email == email && !a.Success {
			continue
		}
		kept = append(kept, a)
	}
	f.attempts = kept
	return nil
}

func (f *fakeAttemptRepo) ListRecent(ctx context.Context, email string, limit int) ([]model.LoginAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LoginAttempt
	for i := len(f.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		if f.attempts[i].Email == email {
			out = append(out, f.attempts[i])
		}
	}
	return out, nil
}

func (f *fakeAttemptRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	kept := f.attempts[:0]
	for _, a := range f.attempts {
		if a.AttemptedAt.Before(cutoff) {
			count++
			continue
		}
		kept = append(kept, a)
	}
	f.attempts = kept
	return count, nil
}

func (f *fakeAttemptRepo) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

type mockUserRepo struct {
	findByIDFunc           func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc        func(ctx context.Context, email string) (*model.User, error)
	updatePasswordFunc     func(ctx context.Context, id, passwordHash string) error
	updateLockoutStateFunc func(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, id string, params model.CreateUserParams) (*model.User, error) {
	return &model.User{ID: id, Name: params.Name, Email: params.Email, Role: params.Role, IsActive: true}, nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	if m.updatePasswordFunc != nil {
		return m.updatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	return nil
}

func (m *mockUserRepo) UpdateLockoutState(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	if m.updateLockoutStateFunc != nil {
		return m.updateLockoutStateFunc(ctx, id, failedAttempts, lockedUntil)
	}
	return nil
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

type mockTeamRepo struct {
	findByIDFunc    func(ctx context.Context, id string) (*model.Team, error)
	listForUserFunc func(ctx context.Context, userID string) ([]model.Team, error)
}

func (m *mockTeamRepo) FindByID(ctx context.Context, id string) (*model.Team, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTeamRepo) ListForUser(ctx context.Context, userID string) ([]model.Team, error) {
	if m.listForUserFunc != nil {
		return m.listForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockTeamRepo) Create(ctx context.Context, id, name, accountType string, createdByUserID *string) (*model.Team, error) {
	return &model.Team{ID: id, Name: name, AccountType: accountType, CreatedByUserID: createdByUserID}, nil
}

func (m *mockTeamRepo) WithTx(tx *sqlx.Tx) repository.TeamRepository {
	return m
}

type mockMembershipRepo struct {
	findFunc             func(ctx context.Context, teamID, userID string) (*model.TeamMembership, error)
	roleFunc             func(ctx context.Context, teamID, userID string) (*model.TeamRole, error)
	firstTeamForUserFunc func(ctx context.Context, userID string) (*string, error)
	countAdminsFunc      func(ctx context.Context, teamID string) (int, error)
	updateRoleFunc       func(ctx context.Context, teamID, userID string, role model.TeamRole) (bool, error)
	deleteFunc           func(ctx context.Context, teamID, userID string) (bool, error)
}

func (m *mockMembershipRepo) Find(ctx context.Context, teamID, userID string) (*model.TeamMembership, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, teamID, userID)
	}
	return nil, nil
}

func (m *mockMembershipRepo) Role(ctx context.Context, teamID, userID string) (*model.TeamRole, error) {
	if m.roleFunc != nil {
		return m.roleFunc(ctx, teamID, userID)
	}
	return nil, nil
}

func (m *mockMembershipRepo) FirstTeamForUser(ctx context.Context, userID string) (*string, error) {
	if m.firstTeamForUserFunc != nil {
		return m.firstTeamForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockMembershipRepo) ListMembers(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	return nil, nil
}

func (m *mockMembershipRepo) Insert(ctx context.Context, id, teamID, userID string, role model.TeamRole) (*model.TeamMembership, error) {
	return &model.TeamMembership{ID: id, TeamID: teamID, UserID: userID, Role: role}, nil
}

func (m *mockMembershipRepo) UpdateRole(ctx context.Context, teamID, userID string, role model.TeamRole) (bool, error) {
	if m.updateRoleFunc != nil {
		return m.updateRoleFunc(ctx, teamID, userID, role)
	}
	return true, nil
}

func (m *mockMembershipRepo) Delete(ctx context.Context, teamID, userID string) (bool, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, teamID, userID)
	}
	return true, nil
}

func (m *mockMembershipRepo) CountAdmins(ctx context.Context, teamID string) (int, error) {
	if m.countAdminsFunc != nil {
		return m.countAdminsFunc(ctx, teamID)
	}
	return 1, nil
}

func (m *mockMembershipRepo) WithTx(tx *sqlx.Tx) repository.MembershipRepository {
	return m
}
