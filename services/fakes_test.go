package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// passTxRunner runs the unit of work directly, without a database.
type passTxRunner struct{}

func (passTxRunner) InTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type recordedMessage struct {
	room    string
	payload interface{}
}

type fakeBroadcaster struct {
	messages []recordedMessage
}

func (b *fakeBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	b.messages = append(b.messages, recordedMessage{room: roomID, payload: message})
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
}

func newFakeMatchRepo(matches ...*models.Match) *fakeMatchRepo {
	repo := &fakeMatchRepo{matches: make(map[int]*models.Match)}
	for _, m := range matches {
		repo.matches[m.ID] = m
	}
	return repo
}

func (r *fakeMatchRepo) Create(ctx context.Context, m *models.Match) error {
	m.ID = len(r.matches) + 1
	r.matches[m.ID] = m
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	matches := make([]*models.Match, 0)
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			matches = append(matches, m)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.MatchStatus) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	return nil
}

func (r *fakeMatchRepo) SetActualStart(ctx context.Context, exec repositories.SQLExecutor, id int, at time.Time) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.ActualStart = &at
	return nil
}

func (r *fakeMatchRepo) SetActualEnd(ctx context.Context, exec repositories.SQLExecutor, id int, at time.Time) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.ActualEnd = &at
	return nil
}

func (r *fakeMatchRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

type fakeMatchParticipantRepo struct {
	participants []*models.MatchParticipant
	nextID       int
}

func newFakeMatchParticipantRepo(participants ...*models.MatchParticipant) *fakeMatchParticipantRepo {
	repo := &fakeMatchParticipantRepo{nextID: 1}
	for _, p := range participants {
		if p.ID == 0 {
			p.ID = repo.nextID
		}
		if p.ID >= repo.nextID {
			repo.nextID = p.ID + 1
		}
		repo.participants = append(repo.participants, p)
	}
	return repo
}

func (r *fakeMatchParticipantRepo) Create(ctx context.Context, p *models.MatchParticipant) error {
	for _, existing := range r.participants {
		if existing.MatchID == p.MatchID && existing.UserID == p.UserID {
			return repositories.ErrMatchParticipantConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	r.participants = append(r.participants, p)
	return nil
}

func (r *fakeMatchParticipantRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.MatchParticipant, error) {
	result := make([]*models.MatchParticipant, 0)
	for _, p := range r.participants {
		if p.MatchID == matchID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeMatchParticipantRepo) FindByMatchAndUser(ctx context.Context, exec repositories.SQLExecutor, matchID, userID int) (*models.MatchParticipant, error) {
	for _, p := range r.participants {
		if p.MatchID == matchID && p.UserID == userID {
			return p, nil
		}
	}
	return nil, repositories.ErrMatchParticipantNotFound
}

func (r *fakeMatchParticipantRepo) LockByMatchAndUser(ctx context.Context, exec repositories.SQLExecutor, matchID, userID int) (*models.MatchParticipant, error) {
	return r.FindByMatchAndUser(ctx, exec, matchID, userID)
}

func (r *fakeMatchParticipantRepo) UpdateResult(ctx context.Context, exec repositories.SQLExecutor, id int, finishingScore, position *int) error {
	for _, p := range r.participants {
		if p.ID == id {
			p.FinishingScore = finishingScore
			p.Position = position
			return nil
		}
	}
	return repositories.ErrMatchParticipantNotFound
}

func (r *fakeMatchParticipantRepo) SetConfirmed(ctx context.Context, exec repositories.SQLExecutor, id int, confirmed bool) error {
	for _, p := range r.participants {
		if p.ID == id {
			p.IsConfirmed = confirmed
			return nil
		}
	}
	return repositories.ErrMatchParticipantNotFound
}

func (r *fakeMatchParticipantRepo) CountByMatch(ctx context.Context, matchID int) (int, error) {
	count := 0
	for _, p := range r.participants {
		if p.MatchID == matchID {
			count++
		}
	}
	return count, nil
}

// fakeThrowRepo keeps throws in insertion order, which doubles as
// chronological order for LatestByMatchAndPlayer.
type fakeThrowRepo struct {
	throws []*models.DartThrow
	nextID int
	clock  time.Time
}

func newFakeThrowRepo() *fakeThrowRepo {
	return &fakeThrowRepo{nextID: 1, clock: time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)}
}

func (r *fakeThrowRepo) Create(ctx context.Context, exec repositories.SQLExecutor, t *models.DartThrow) error {
	t.ID = r.nextID
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	t.ThrownAt = r.clock
	r.throws = append(r.throws, t)
	return nil
}

func (r *fakeThrowRepo) LatestByMatchAndPlayer(ctx context.Context, exec repositories.SQLExecutor, matchID, userID int) (*models.DartThrow, error) {
	for i := len(r.throws) - 1; i >= 0; i-- {
		if r.throws[i].MatchID == matchID && r.throws[i].UserID == userID {
			return r.throws[i], nil
		}
	}
	return nil, repositories.ErrThrowNotFound
}

func (r *fakeThrowRepo) CountByMatchAndPlayer(ctx context.Context, exec repositories.SQLExecutor, matchID, userID int) (int, error) {
	count := 0
	for _, t := range r.throws {
		if t.MatchID == matchID && t.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *fakeThrowRepo) CountRoundsByMatchAndPlayer(ctx context.Context, exec repositories.SQLExecutor, matchID, userID int) (int, error) {
	rounds := make(map[int]bool)
	for _, t := range r.throws {
		if t.MatchID == matchID && t.UserID == userID {
			rounds[t.RoundNumber] = true
		}
	}
	return len(rounds), nil
}

func (r *fakeThrowRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.DartThrow, error) {
	result := make([]*models.DartThrow, 0)
	for _, t := range r.throws {
		if t.MatchID == matchID {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].UserID != result[j].UserID {
			return result[i].UserID < result[j].UserID
		}
		if result[i].RoundNumber != result[j].RoundNumber {
			return result[i].RoundNumber < result[j].RoundNumber
		}
		return result[i].ThrowNumber < result[j].ThrowNumber
	})
	return result, nil
}

func (r *fakeThrowRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	for i, t := range r.throws {
		if t.ID == id {
			r.throws = append(r.throws[:i], r.throws[i+1:]...)
			return nil
		}
	}
	return repositories.ErrThrowNotFound
}

type fakeConfirmationRepo struct {
	confirmations []*models.MatchConfirmation
	nextID        int
}

func newFakeConfirmationRepo() *fakeConfirmationRepo {
	return &fakeConfirmationRepo{nextID: 1}
}

func (r *fakeConfirmationRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, c *models.MatchConfirmation) error {
	for _, existing := range r.confirmations {
		if existing.MatchID == c.MatchID && existing.UserID == c.UserID {
			existing.Confirmed = c.Confirmed
			existing.ConfirmedAt = c.ConfirmedAt
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
			return nil
		}
	}
	c.ID = r.nextID
	r.nextID++
	c.CreatedAt = time.Now().UTC()
	stored := *c
	r.confirmations = append(r.confirmations, &stored)
	return nil
}

func (r *fakeConfirmationRepo) CountConfirmedByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) (int, error) {
	count := 0
	for _, c := range r.confirmations {
		if c.MatchID == matchID && c.Confirmed {
			count++
		}
	}
	return count, nil
}

func (r *fakeConfirmationRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchConfirmation, error) {
	result := make([]*models.MatchConfirmation, 0)
	for _, c := range r.confirmations {
		if c.MatchID == matchID {
			result = append(result, c)
		}
	}
	return result, nil
}

type fakeStatisticsRepo struct {
	stats  []*models.PlayerStatistics
	nextID int
}

func newFakeStatisticsRepo() *fakeStatisticsRepo {
	return &fakeStatisticsRepo{nextID: 1}
}

func (r *fakeStatisticsRepo) GetByTournamentAndUser(ctx context.Context, exec repositories.SQLExecutor, tournamentID, userID int) (*models.PlayerStatistics, error) {
	for _, s := range r.stats {
		if s.TournamentID == tournamentID && s.UserID == userID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repositories.ErrStatisticsNotFound
}

func (r *fakeStatisticsRepo) Upsert(ctx context.Context, exec repositories.SQLExecutor, upserted *models.PlayerStatistics) error {
	for i, s := range r.stats {
		if s.TournamentID == upserted.TournamentID && s.UserID == upserted.UserID {
			upserted.ID = s.ID
			stored := *upserted
			r.stats[i] = &stored
			return nil
		}
	}
	upserted.ID = r.nextID
	r.nextID++
	stored := *upserted
	r.stats = append(r.stats, &stored)
	return nil
}

func (r *fakeStatisticsRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.PlayerStatistics, error) {
	result := make([]*models.PlayerStatistics, 0)
	for _, s := range r.stats {
		if s.TournamentID == tournamentID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MatchesWon > result[j].MatchesWon })
	return result, nil
}

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
	for _, u := range users {
		if u.ID == 0 {
			u.ID = repo.nextID
		}
		if u.ID >= repo.nextID {
			repo.nextID = u.ID + 1
		}
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
		if existing.Nickname == user.Nickname {
			return repositories.ErrUserNicknameConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now().UTC()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.LastLoginAt = &at
	return nil
}

type fakeRefreshTokenRepo struct {
	tokens []*models.RefreshToken
	nextID int
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{nextID: 1}
}

func (r *fakeRefreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	token.ID = r.nextID
	r.nextID++
	token.CreatedAt = time.Now().UTC()
	stored := *token
	r.tokens = append(r.tokens, &stored)
	return nil
}

func (r *fakeRefreshTokenRepo) ListActiveByUser(ctx context.Context, userID int) ([]*models.RefreshToken, error) {
	now := time.Now().UTC()
	result := make([]*models.RefreshToken, 0)
	for _, t := range r.tokens {
		if t.UserID == userID && t.Active(now) {
			result = append(result, t)
		}
	}
	return result, nil
}

func (r *fakeRefreshTokenRepo) Revoke(ctx context.Context, id int, at time.Time) error {
	for _, t := range r.tokens {
		if t.ID == id && t.RevokedAt == nil {
			t.RevokedAt = &at
			return nil
		}
	}
	return repositories.ErrRefreshTokenNotFound
}

func (r *fakeRefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID int, at time.Time) error {
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &at
		}
	}
	return nil
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	nextID      int
}

func newFakeTournamentRepo(tournaments ...*models.Tournament) *fakeTournamentRepo {
	repo := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament), nextID: 1}
	for _, t := range tournaments {
		if t.ID == 0 {
			t.ID = repo.nextID
		}
		if t.ID >= repo.nextID {
			repo.nextID = t.ID + 1
		}
		repo.tournaments[t.ID] = t
	}
	return repo
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	t.ID = r.nextID
	r.nextID++
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	r.tournaments[t.ID] = t
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context) ([]*models.Tournament, error) {
	result := make([]*models.Tournament, 0, len(r.tournaments))
	for _, t := range r.tournaments {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	stored := *t
	r.tournaments[t.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = logoKey
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

type fakeParticipantRepo struct {
	registrations []*models.TournamentParticipant
	nextID        int
}

func newFakeParticipantRepo(registrations ...*models.TournamentParticipant) *fakeParticipantRepo {
	repo := &fakeParticipantRepo{nextID: 1}
	for _, p := range registrations {
		if p.ID == 0 {
			p.ID = repo.nextID
		}
		if p.ID >= repo.nextID {
			repo.nextID = p.ID + 1
		}
		repo.registrations = append(repo.registrations, p)
	}
	return repo
}

func (r *fakeParticipantRepo) Create(ctx context.Context, p *models.TournamentParticipant) error {
	for _, existing := range r.registrations {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.RegisteredAt = time.Now().UTC()
	r.registrations = append(r.registrations, p)
	return nil
}

func (r *fakeParticipantRepo) FindByTournamentAndUser(ctx context.Context, tournamentID, userID int) (*models.TournamentParticipant, error) {
	for _, p := range r.registrations {
		if p.TournamentID == tournamentID && p.UserID == userID {
			return p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	result := make([]*models.TournamentParticipant, 0)
	for _, p := range r.registrations {
		if p.TournamentID == tournamentID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeParticipantRepo) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	count := 0
	for _, p := range r.registrations {
		if p.TournamentID == tournamentID && p.Status != models.ParticipantStatusWithdrawn {
			count++
		}
	}
	return count, nil
}

func (r *fakeParticipantRepo) UpdateStatus(ctx context.Context, id int, status models.ParticipantStatus) error {
	for _, p := range r.registrations {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) UpdateGroup(ctx context.Context, id int, groupID *int) error {
	for _, p := range r.registrations {
		if p.ID == id {
			p.GroupID = groupID
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) Delete(ctx context.Context, id int) error {
	for i, p := range r.registrations {
		if p.ID == id {
			r.registrations = append(r.registrations[:i], r.registrations[i+1:]...)
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

type fakeGroupRepo struct {
	groups map[int]*models.TournamentGroup
	nextID int
}

func newFakeGroupRepo(groups ...*models.TournamentGroup) *fakeGroupRepo {
	repo := &fakeGroupRepo{groups: make(map[int]*models.TournamentGroup), nextID: 1}
	for _, g := range groups {
		if g.ID == 0 {
			g.ID = repo.nextID
		}
		if g.ID >= repo.nextID {
			repo.nextID = g.ID + 1
		}
		repo.groups[g.ID] = g
	}
	return repo
}

func (r *fakeGroupRepo) Create(ctx context.Context, g *models.TournamentGroup) error {
	for _, existing := range r.groups {
		if existing.TournamentID == g.TournamentID && existing.GroupNumber == g.GroupNumber {
			return repositories.ErrGroupNumberConflict
		}
	}
	g.ID = r.nextID
	r.nextID++
	g.CreatedAt = time.Now().UTC()
	r.groups[g.ID] = g
	return nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, id int) (*models.TournamentGroup, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	copied := *g
	return &copied, nil
}

func (r *fakeGroupRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error) {
	result := make([]*models.TournamentGroup, 0)
	for _, g := range r.groups {
		if g.TournamentID == tournamentID {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GroupNumber < result[j].GroupNumber })
	return result, nil
}

func (r *fakeGroupRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.groups[id]; !ok {
		return repositories.ErrGroupNotFound
	}
	delete(r.groups, id)
	return nil
}
