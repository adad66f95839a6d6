package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"quizarena/internal/common"
	"quizarena/internal/domain/model"
	"quizarena/internal/domain/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTxRunner runs the transactional closure directly; the fake repositories
// ignore the nil *sql.Tx they are handed.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

// fakeStore is the shared in-memory backing state for the fake repositories.
type fakeStore struct {
	mu             sync.Mutex
	contests       map[string]*model.Contest
	questions      map[string]map[int]*model.Question // contestID -> position
	participations map[string]*model.Participation    // contestID|userID
	answers        map[string][]model.Answer          // participationID
	entries        map[string]*model.LeaderboardEntry // participationID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contests:       make(map[string]*model.Contest),
		questions:      make(map[string]map[int]*model.Question),
		participations: make(map[string]*model.Participation),
		answers:        make(map[string][]model.Answer),
		entries:        make(map[string]*model.LeaderboardEntry),
	}
}

func (s *fakeStore) addContest(c model.Contest) {
	s.contests[c.ID] = &c
}

func (s *fakeStore) addQuestions(contestID string, questions ...model.Question) {
	byPos, ok := s.questions[contestID]
	if !ok {
		byPos = make(map[int]*model.Question)
		s.questions[contestID] = byPos
	}
	for i := range questions {
		q := questions[i]
		byPos[q.Position] = &q
	}
}

func participationKey(contestID, userID string) string {
	return contestID + "|" + userID
}

type fakeContestRepo struct {
	store *fakeStore
	// findForUpdateFailures makes FindByIDForUpdate fail with a retryable
	// serialization error this many times before succeeding.
	findForUpdateFailures int
}

func serializationFailure() error {
	return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
}

func (r *fakeContestRepo) Create(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.contests {
		if existing.Slug == c.Slug {
			return common.Errorf("contest with this slug already exists: %w", common.ErrConflict)
		}
	}
	copied := *c
	r.store.contests[c.ID] = &copied
	return nil
}

func (r *fakeContestRepo) Update(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.contests[c.ID]; !ok {
		return common.ErrNotFound
	}
	copied := *c
	r.store.contests[c.ID] = &copied
	return nil
}

func (r *fakeContestRepo) Delete(ctx context.Context, tx *sql.Tx, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.contests[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.store.contests, id)
	return nil
}

func (r *fakeContestRepo) UpdateStatus(ctx context.Context, id string, status model.ContestStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.contests[id]
	if !ok {
		return common.ErrNotFound
	}
	c.Status = status
	return nil
}

func (r *fakeContestRepo) FindByID(ctx context.Context, id string) (*model.Contest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.contests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeContestRepo) FindBySlug(ctx context.Context, slug string) (*model.Contest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, c := range r.store.contests {
		if c.Slug == slug {
			copied := *c
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeContestRepo) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Contest, error) {
	if r.findForUpdateFailures > 0 {
		r.findForUpdateFailures--
		return nil, serializationFailure()
	}
	return r.FindByID(ctx, id)
}

func (r *fakeContestRepo) IncrementParticipantsCount(ctx context.Context, tx *sql.Tx, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c, ok := r.store.contests[id]
	if !ok {
		return common.ErrNotFound
	}
	c.ParticipantsCount++
	return nil
}

func (r *fakeContestRepo) List(ctx context.Context, filter repository.ContestFilter, limit, offset int) ([]model.Contest, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var all []model.Contest
	for _, c := range r.store.contests {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.VipOnly != nil && c.IsVipOnly != *filter.VipOnly {
			continue
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *fakeContestRepo) MarkLiveDue(ctx context.Context, now time.Time) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var moved []string
	for _, c := range r.store.contests {
		if c.Status == model.ContestPending && !c.StartTime.After(now) && c.ParticipantsCount >= c.MinParticipants {
			c.Status = model.ContestLive
			moved = append(moved, c.ID)
		}
	}
	return moved, nil
}

func (r *fakeContestRepo) MarkCompleteDue(ctx context.Context, now time.Time) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var moved []string
	for _, c := range r.store.contests {
		if c.Status == model.ContestLive && !c.EndTime.After(now) {
			c.Status = model.ContestComplete
			moved = append(moved, c.ID)
		}
	}
	return moved, nil
}

func (r *fakeContestRepo) CancelUnderfilledDue(ctx context.Context, now time.Time) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var moved []string
	for _, c := range r.store.contests {
		if c.Status == model.ContestPending && !c.StartTime.After(now) && c.ParticipantsCount < c.MinParticipants {
			c.Status = model.ContestCancelled
			moved = append(moved, c.ID)
		}
	}
	return moved, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return common.Errorf("email already registered: %w", common.ErrConflict)
		}
	}
	copied := *u
	r.users[u.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) UpdateType(ctx context.Context, id, userType string, isAdmin *bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if userType != "" {
		u.UserType = userType
	}
	if isAdmin != nil {
		u.IsAdmin = *isAdmin
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) List(ctx context.Context, userType string, isAdmin *bool, limit, offset int) ([]model.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.User
	for _, u := range r.users {
		if userType != "" && u.UserType != userType {
			continue
		}
		if isAdmin != nil && u.IsAdmin != *isAdmin {
			continue
		}
		all = append(all, *u)
	}
	return all, len(all), nil
}

type fakePrizeRepo struct {
	mu     sync.Mutex
	prizes []model.Prize
}

func (r *fakePrizeRepo) Create(ctx context.Context, p *model.Prize) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.prizes {
		if existing.ContestID == p.ContestID && existing.UserID == p.UserID {
			return common.Errorf("prize already awarded for this contest and user: %w", common.ErrConflict)
		}
	}
	r.prizes = append(r.prizes, *p)
	return nil
}

func (r *fakePrizeRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Prize, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Prize
	for _, p := range r.prizes {
		if p.UserID == userID {
			all = append(all, p)
		}
	}
	return all, len(all), nil
}

func (r *fakePrizeRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Prize, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Prize(nil), r.prizes...), len(r.prizes), nil
}

type fakeQuestionRepo struct {
	store *fakeStore
}

func (r *fakeQuestionRepo) CreateBatch(ctx context.Context, tx *sql.Tx, questions []model.Question) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range questions {
		q := questions[i]
		byPos, ok := r.store.questions[q.ContestID]
		if !ok {
			byPos = make(map[int]*model.Question)
			r.store.questions[q.ContestID] = byPos
		}
		byPos[q.Position] = &q
	}
	return nil
}

func (r *fakeQuestionRepo) FindByContestAndPosition(ctx context.Context, contestID string, position int) (*model.Question, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	q, ok := r.store.questions[contestID][position]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *q
	return &copied, nil
}

func (r *fakeQuestionRepo) ListByContest(ctx context.Context, contestID string) ([]model.Question, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var questions []model.Question
	for _, q := range r.store.questions[contestID] {
		questions = append(questions, *q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	return questions, nil
}

func (r *fakeQuestionRepo) DeleteByContest(ctx context.Context, tx *sql.Tx, contestID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.questions, contestID)
	return nil
}

type fakeParticipationRepo struct {
	store *fakeStore
}

func (r *fakeParticipationRepo) Create(ctx context.Context, tx *sql.Tx, p *model.Participation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := participationKey(p.ContestID, p.UserID)
	if _, ok := r.store.participations[key]; ok {
		return common.ErrAlreadyJoined
	}
	copied := *p
	r.store.participations[key] = &copied
	return nil
}

func (r *fakeParticipationRepo) FindByContestAndUser(ctx context.Context, contestID, userID string) (*model.Participation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.participations[participationKey(contestID, userID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeParticipationRepo) FindByContestAndUserForUpdate(ctx context.Context, tx *sql.Tx, contestID, userID string) (*model.Participation, error) {
	return r.FindByContestAndUser(ctx, contestID, userID)
}

func (r *fakeParticipationRepo) FindActiveByUser(ctx context.Context, userID string) (*model.Participation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.participations {
		if p.UserID != userID || p.SubmissionState != model.SubmissionPending {
			continue
		}
		contest, ok := r.store.contests[p.ContestID]
		if !ok || !contest.IsActive() {
			continue
		}
		copied := *p
		return &copied, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeParticipationRepo) UpdateProgress(ctx context.Context, tx *sql.Tx, p *model.Participation, now time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := participationKey(p.ContestID, p.UserID)
	if _, ok := r.store.participations[key]; !ok {
		return common.ErrNotFound
	}
	copied := *p
	copied.UpdatedAt = now
	r.store.participations[key] = &copied
	p.UpdatedAt = now
	return nil
}

func (r *fakeParticipationRepo) AppendAnswer(ctx context.Context, tx *sql.Tx, a *model.Answer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.answers[a.ParticipationID] = append(r.store.answers[a.ParticipationID], *a)
	return nil
}

func (r *fakeParticipationRepo) ListAnswers(ctx context.Context, participationID string) ([]model.Answer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]model.Answer(nil), r.store.answers[participationID]...), nil
}

func (r *fakeParticipationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Participation, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var all []model.Participation
	for _, p := range r.store.participations {
		if p.UserID == userID {
			all = append(all, *p)
		}
	}
	return all, len(all), nil
}

func (r *fakeParticipationRepo) ListByContest(ctx context.Context, contestID string, limit, offset int) ([]model.Participation, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var all []model.Participation
	for _, p := range r.store.participations {
		if p.ContestID == contestID {
			all = append(all, *p)
		}
	}
	return all, len(all), nil
}

type fakeLeaderboardRepo struct {
	store *fakeStore
}

func (r *fakeLeaderboardRepo) Create(ctx context.Context, tx *sql.Tx, entry *model.LeaderboardEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.entries[entry.ParticipationID]; ok {
		return common.ErrDuplicateEntry
	}
	copied := *entry
	r.store.entries[entry.ParticipationID] = &copied
	return nil
}

func (r *fakeLeaderboardRepo) ranked(contestID string) []model.LeaderboardEntry {
	var all []model.LeaderboardEntry
	for _, e := range r.store.entries {
		if e.ContestID == contestID {
			all = append(all, *e)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].SubmissionTime.Before(all[j].SubmissionTime)
	})
	return all
}

func (r *fakeLeaderboardRepo) ListByContest(ctx context.Context, contestID string, limit, offset int) ([]model.LeaderboardEntry, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	all := r.ranked(contestID)
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *fakeLeaderboardRepo) FindByContestAndUser(ctx context.Context, contestID, userID string) (*model.LeaderboardEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.entries {
		if e.ContestID == contestID && e.UserID == userID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeLeaderboardRepo) CountBetter(ctx context.Context, contestID string, score int, submissionTime time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, e := range r.store.entries {
		if e.ContestID != contestID {
			continue
		}
		if e.Score > score || (e.Score == score && e.SubmissionTime.Before(submissionTime)) {
			count++
		}
	}
	return count, nil
}
