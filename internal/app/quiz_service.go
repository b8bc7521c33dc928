package app

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"case-reasons-training/internal/auth"
	"case-reasons-training/internal/domain"
	"case-reasons-training/internal/narrator"
	"case-reasons-training/internal/quiz"
	"case-reasons-training/internal/taxonomy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
// Get returns domain.ErrSessionNotFound for unknown or expired IDs.
// Save is a compare-and-set on session.Version: it fails with
// domain.ErrConcurrentUpdate when the stored session moved on since Get, and
// bumps session.Version when it succeeds.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*quiz.Session, error)
	Save(ctx context.Context, session *quiz.Session) error
	Delete(ctx context.Context, id string) error
}

// LeaderboardStore is the shared append-only score table.
type LeaderboardStore interface {
	Append(ctx context.Context, entry domain.LeaderboardEntry) error
	List(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

// Options carries the optional collaborators of QuizService.
type Options struct {
	Authenticator auth.Authenticator
	Narrator      narrator.Narrator
	Logger        *zap.Logger
	// Length is the number of scenarios per run, default quiz.DefaultLength.
	Length int
	// Top is the default leaderboard size, default 15.
	Top  int
	Now  func() time.Time
	Rand *rand.Rand
}

// QuizService contains the core quiz use cases. It keeps no per-user state of
// its own: every call names the session it works on.
type QuizService struct {
	sessions SessionRepository
	board    LeaderboardStore
	taxonomy *taxonomy.Taxonomy
	auth     auth.Authenticator
	narrator narrator.Narrator
	logger   *zap.Logger
	length   int
	top      int
	now      func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	locks keyedMutex
}

func NewQuizService(sessions SessionRepository, board LeaderboardStore, tax *taxonomy.Taxonomy, opts Options) *QuizService {
	s := &QuizService{
		sessions: sessions,
		board:    board,
		taxonomy: tax,
		auth:     opts.Authenticator,
		narrator: opts.Narrator,
		logger:   opts.Logger,
		length:   opts.Length,
		top:      opts.Top,
		now:      opts.Now,
		rng:      opts.Rand,
	}
	if s.auth == nil {
		s.auth = auth.NewBcryptAuthenticator(auth.Options{})
	}
	if s.narrator == nil {
		s.narrator = narrator.Fallback{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.length <= 0 {
		s.length = quiz.DefaultLength
	}
	if s.top <= 0 {
		s.top = 15
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Login authenticates the player and opens a fresh quiz session. The returned
// view's SessionID is the token for every later call.
func (s *QuizService) Login(ctx context.Context, creds auth.Credentials) (domain.ScenarioView, error) {
	player, err := s.auth.Authenticate(creds)
	if err != nil {
		return domain.ScenarioView{}, err
	}

	s.rngMu.Lock()
	session, err := quiz.New(uuid.NewString(), player, s.taxonomy.Scenarios(), s.length, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return domain.ScenarioView{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.ScenarioView{}, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("session started",
		zap.String("session", session.ID),
		zap.String("player", player.Name),
		zap.String("role", string(player.Role)))
	return s.view(ctx, session), nil
}

// Logout discards the session.
func (s *QuizService) Logout(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.sessions.Delete(ctx, sessionID)
}

// Player returns the identity bound to a session.
func (s *QuizService) Player(ctx context.Context, sessionID string) (domain.Player, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Player{}, err
	}
	return session.Player, nil
}

// Current returns the scenario the session is on.
func (s *QuizService) Current(ctx context.Context, sessionID string) (domain.ScenarioView, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.ScenarioView{}, err
	}
	return s.view(ctx, session), nil
}

// SubmitAnswer judges a classification for the current scenario.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID string, choice domain.Choice) (domain.AnswerResult, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	result, err := session.Submit(choice)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.AnswerResult{}, fmt.Errorf("save session: %w", err)
	}
	s.logger.Debug("answer submitted",
		zap.String("session", sessionID),
		zap.Int("position", result.Position),
		zap.Bool("correct", result.Correct),
		zap.Int("score", result.TotalScore))
	return result, nil
}

// Advance moves past a solved scenario. When the last scenario is passed the
// final score is appended to the leaderboard once and a Completion is returned.
// Only the caller whose save of the complete state wins appends; a racing
// instance gets domain.ErrConcurrentUpdate.
// A failed append is reported in Completion.Warning; the session still completes.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (domain.ScenarioView, *domain.Completion, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.ScenarioView{}, nil, err
	}
	completed, err := session.Advance()
	if err != nil {
		return domain.ScenarioView{}, nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.ScenarioView{}, nil, fmt.Errorf("save session: %w", err)
	}
	if !completed {
		return s.view(ctx, session), nil, nil
	}
	return s.view(ctx, session), s.submitScore(ctx, session), nil
}

func (s *QuizService) submitScore(ctx context.Context, session *quiz.Session) *domain.Completion {
	tier := quiz.Tier(session.Score)
	entry := domain.LeaderboardEntry{
		Name:       session.Player.Name,
		Country:    session.Player.Country,
		Score:      session.Score,
		Tier:       tier,
		RecordedAt: s.now().UTC(),
	}
	done := &domain.Completion{
		Score:  session.Score,
		Tier:   tier,
		Notice: fmt.Sprintf("Well done %s! Score: %d", session.Player.Name, session.Score),
	}

	if err := s.board.Append(ctx, entry); err != nil {
		s.logger.Warn("leaderboard append failed",
			zap.String("session", session.ID),
			zap.String("player", entry.Name),
			zap.Int("score", entry.Score),
			zap.Error(err))
		done.Warning = fmt.Sprintf("leaderboard sync failed: %v", err)
		return done
	}
	done.Synced = true
	done.Notice += fmt.Sprintf(". Sync complete! You earned %d logos.", tier)
	s.logger.Info("score recorded",
		zap.String("session", session.ID),
		zap.String("player", entry.Name),
		zap.Int("score", entry.Score),
		zap.Int("tier", tier))
	return done
}

// Restart reshuffles the scenarios and resets the score.
func (s *QuizService) Restart(ctx context.Context, sessionID string) (domain.ScenarioView, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.ScenarioView{}, err
	}
	s.rngMu.Lock()
	err = session.Restart(s.taxonomy.Scenarios(), s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return domain.ScenarioView{}, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.ScenarioView{}, fmt.Errorf("save session: %w", err)
	}
	return s.view(ctx, session), nil
}

// Options recomputes the dependent dropdowns for a partial selection.
func (s *QuizService) Options(choice domain.Choice) domain.Options {
	return s.taxonomy.Cascade(choice)
}

// Search backs the quick reference panel.
func (s *QuizService) Search(term string, limit int) []domain.Scenario {
	return s.taxonomy.Search(term, limit)
}

// Taxonomy returns the full table for the explanation page.
func (s *QuizService) Taxonomy() []domain.Scenario {
	return s.taxonomy.Records()
}

// Leaderboard returns the best scores first, at most limit rows.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.top
	}
	entries, err := s.board.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	slices.SortStableFunc(entries, func(a, b domain.LeaderboardEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := a.RecordedAt.Compare(b.RecordedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return entries[:min(limit, len(entries))], nil
}

// Audit returns the whole leaderboard in store order. Admin only.
func (s *QuizService) Audit(ctx context.Context, sessionID string) ([]domain.LeaderboardEntry, error) {
	player, err := s.Player(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAdmin(player); err != nil {
		return nil, err
	}
	entries, err := s.board.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	return entries, nil
}

func (s *QuizService) view(ctx context.Context, session *quiz.Session) domain.ScenarioView {
	v := domain.ScenarioView{
		SessionID: session.ID,
		Player:    session.Player,
		State:     string(session.State),
		Position:  session.Position,
		Length:    session.Length(),
		Score:     session.Score,
	}
	if session.State != quiz.StateComplete {
		// Narrators used here never fail; the fallback covers a misconfigured one.
		text, err := s.narrator.Narrate(ctx, session.Current().Description)
		if err != nil {
			text = narrator.FallbackText(session.Current().Description)
		}
		v.Message = text
	}
	return v
}
