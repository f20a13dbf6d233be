package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bracketlab/esports-server/models"
	"github.com/bracketlab/esports-server/repositories"
)

// In-memory repository fakes. They mirror the guard semantics of the Postgres
// implementations (capacity check on increment, CAS on match completion) so
// service behavior under contention can be tested without a database.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTournamentRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, items: map[int]*models.Tournament{}}
}

func (r *fakeTournamentRepo) add(t *models.Tournament) *models.Tournament {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == 0 {
		t.ID = r.nextID
		r.nextID++
	}
	r.items[t.ID] = t
	return t
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.add(t)
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Tournament
	for _, t := range r.items {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	cp := *t
	r.items[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	if reason != nil {
		t.CancellationReason = reason
	}
	return nil
}

func (r *fakeTournamentRepo) UpdateWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerTeamID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerTeamID = winnerTeamID
	return nil
}

func (r *fakeTournamentRepo) UpdateBannerKey(ctx context.Context, id int, bannerKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.BannerKey = bannerKey
	return nil
}

func (r *fakeTournamentRepo) IncrementParticipantCount(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.ParticipantCount >= t.MaxParticipants {
		return repositories.ErrTournamentCapacity
	}
	t.ParticipantCount++
	return nil
}

func (r *fakeTournamentRepo) DecrementParticipantCount(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.ParticipantCount > 0 {
		t.ParticipantCount--
	}
	return nil
}

func (r *fakeTournamentRepo) ListDueToStart(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.items {
		if t.Status == models.TournamentUpcoming && !t.StartDate.After(now) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeRegistrationRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[int]*models.Registration
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{nextID: 1, items: map[int]*models.Registration{}}
}

func (r *fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.TournamentID == reg.TournamentID && existing.TeamID == reg.TeamID &&
			existing.Status == models.RegistrationConfirmed {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = r.nextID
	r.nextID++
	reg.CreatedAt = time.Now()
	cp := *reg
	r.items[reg.ID] = &cp
	return nil
}

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, id int) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r *fakeRegistrationRepo) FindActive(ctx context.Context, tournamentID, teamID int) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.items {
		if reg.TournamentID == tournamentID && reg.TeamID == teamID &&
			reg.Status == models.RegistrationConfirmed {
			cp := *reg
			return &cp, nil
		}
	}
	return nil, repositories.ErrRegistrationNotFound
}

func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int, status *models.RegistrationStatus) ([]*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Registration
	for _, reg := range r.items {
		if reg.TournamentID != tournamentID {
			continue
		}
		if status != nil && reg.Status != *status {
			continue
		}
		cp := *reg
		out = append(out, &cp)
	}
	// Seed order, matching the ORDER BY seed of the real repository.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Seed < out[i].Seed {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeRegistrationRepo) Cancel(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.items[id]
	if !ok || reg.Status != models.RegistrationConfirmed {
		return repositories.ErrRegistrationNotFound
	}
	reg.Status = models.RegistrationCancelled
	return nil
}

func (r *fakeRegistrationRepo) NextSeed(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, reg := range r.items {
		if reg.TournamentID == tournamentID && reg.Seed > max {
			max = reg.Seed
		}
	}
	return max + 1, nil
}

type fakeTeamRepo struct {
	mu    sync.Mutex
	items map[int]*models.Team
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	r := &fakeTeamRepo{items: map[int]*models.Team{}}
	for _, t := range teams {
		r.items[t.ID] = t
	}
	return r
}

func (r *fakeTeamRepo) Create(ctx context.Context, t *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = len(r.items) + 1
	r.items[t.ID] = t
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) GetByIDs(ctx context.Context, ids []int) (map[int]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int]*models.Team{}
	for _, id := range ids {
		if t, ok := r.items[id]; ok {
			cp := *t
			out[id] = &cp
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) UpdateLogoKey(ctx context.Context, teamID int, logoKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[teamID]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (r *fakeTeamRepo) ApplyMatchResult(ctx context.Context, exec repositories.SQLExecutor, winnerID, loserID *int, drawTeamIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if winnerID != nil {
		if t, ok := r.items[*winnerID]; ok {
			t.Stats.MatchesPlayed++
			t.Stats.Wins++
			t.Stats.Points += 3
		}
	}
	if loserID != nil {
		if t, ok := r.items[*loserID]; ok {
			t.Stats.MatchesPlayed++
			t.Stats.Losses++
		}
	}
	for _, id := range drawTeamIDs {
		if t, ok := r.items[id]; ok {
			t.Stats.MatchesPlayed++
			t.Stats.Points++
		}
	}
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	items map[int]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{items: map[int]*models.User{}}
	for _, u := range users {
		r.items[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Email == u.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = len(r.items) + 1
	r.items[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.items {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

type fakeRosterRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[int]*models.TeamMember
	users  *fakeUserRepo
}

func newFakeRosterRepo(users *fakeUserRepo) *fakeRosterRepo {
	return &fakeRosterRepo{nextID: 1, items: map[int]*models.TeamMember{}, users: users}
}

func (r *fakeRosterRepo) Add(ctx context.Context, exec repositories.SQLExecutor, member *models.TeamMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.TeamID == member.TeamID && existing.UserID == member.UserID {
			return repositories.ErrRosterConflict
		}
	}
	member.ID = r.nextID
	r.nextID++
	member.CreatedAt = time.Now()
	cp := *member
	r.items[member.ID] = &cp
	return nil
}

func (r *fakeRosterRepo) Remove(ctx context.Context, exec repositories.SQLExecutor, teamID, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range r.items {
		if entry.TeamID == teamID && entry.UserID == userID {
			delete(r.items, id)
			return nil
		}
	}
	return repositories.ErrRosterEntryNotFound
}

func (r *fakeRosterRepo) ListByTeam(ctx context.Context, teamID int) ([]*models.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.TeamMember, 0)
	for id := 1; id < r.nextID; id++ {
		entry, ok := r.items[id]
		if !ok || entry.TeamID != teamID {
			continue
		}
		cp := *entry
		if r.users != nil {
			if u, err := r.users.GetByID(ctx, entry.UserID); err == nil {
				cp.User = u
			}
		}
		out = append(out, &cp)
	}
	return out, nil
}

type fakeBracketRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[int]*models.Bracket // keyed by tournament ID
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{nextID: 1, items: map[int]*models.Bracket{}}
}

func (r *fakeBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, b *models.Bracket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = r.nextID
	r.nextID++
	b.GeneratedAt = time.Now()
	cp := *b
	r.items[b.TournamentID] = &cp
	return nil
}

func (r *fakeBracketRepo) GetByTournament(ctx context.Context, tournamentID int) (*models.Bracket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[tournamentID]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBracketRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, tournamentID)
	return nil
}

type fakeMatchRepo struct {
	mu     sync.Mutex
	nextID int
	items  map[int]*models.Match
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, items: map[int]*models.Match{}}
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = r.nextID
	r.nextID++
	cp := *m
	r.items[m.ID] = &cp
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.items[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) GetByUID(ctx context.Context, tournamentID int, uid string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.findByUID(tournamentID, uid)
	if m == nil {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) findByUID(tournamentID int, uid string) *models.Match {
	for _, m := range r.items {
		if m.TournamentID == tournamentID && m.UID == uid {
			return m
		}
	}
	return nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Match
	for id := 1; id < r.nextID; id++ {
		if m, ok := r.items[id]; ok && m.TournamentID == tournamentID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) CompletePending(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[m.ID]
	if !ok || stored.Status != models.MatchPending {
		return repositories.ErrMatchNotPending
	}
	now := time.Now()
	stored.Status = models.MatchCompleted
	stored.WinnerTeamID = m.WinnerTeamID
	stored.Score1 = m.Score1
	stored.Score2 = m.Score2
	stored.IsDraw = m.IsDraw
	stored.CompletedAt = &now
	stored.CompletedBy = m.CompletedBy
	m.Status = models.MatchCompleted
	m.CompletedAt = &now
	return nil
}

func (r *fakeMatchRepo) SetSlot(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, uid string, slot int, teamID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.findByUID(tournamentID, uid)
	if m == nil {
		return repositories.ErrMatchNotFound
	}
	if slot == 1 {
		m.Slot1TeamID = &teamID
	} else {
		m.Slot2TeamID = &teamID
	}
	return nil
}

func (r *fakeMatchRepo) CountByTournament(ctx context.Context, tournamentID int) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, completed := 0, 0
	for _, m := range r.items {
		if m.TournamentID != tournamentID {
			continue
		}
		total++
		if m.Status == models.MatchCompleted {
			completed++
		}
	}
	return total, completed, nil
}
