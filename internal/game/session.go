package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/VladislavG32/telegram-memes-game-bot/internal/assets"
)

// State - фаза игровой сессии.
type State int

const (
	StateWaiting State = iota
	StateChoosingSituation
	StatePlayersChoosing
	StateVoting
	StateRoundComplete
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateChoosingSituation:
		return "choosing_situation"
	case StatePlayersChoosing:
		return "players_choosing"
	case StateVoting:
		return "voting"
	case StateRoundComplete:
		return "round_complete"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Player - участник игры. ID берется из Telegram и стабилен между играми.
type Player struct {
	ID          int64
	DisplayName string
}

// Limits - пределы числа игроков в одной сессии.
type Limits struct {
	MinPlayers int
	MaxPlayers int
}

// Session - одна игра в одном чате. Все мутирующие методы выполняются под
// общим мьютексом сессии, поэтому одновременные действия игроков применяются
// строго по очереди. Разные сессии друг друга не блокируют. Раздача мемов и
// отправка сообщений происходят вне критической секции - см. Dispatcher.
type Session struct {
	mu sync.Mutex

	chatID    int64
	creatorID int64
	limits    Limits

	state    State
	round    int
	players  []Player // порядок входа, без дубликатов
	leaderID int64
	scores   map[int64]int

	situationBatch []string
	situation      string

	memeBatches map[int64][]assets.Meme // выданные в этом раунде наборы
	submissions map[int64]assets.Meme
	submitOrder []int64 // порядок поступления заявок
	voteOptions []int64 // токен = индекс, значение = автор заявки

	lastAction time.Time
}

// SituationPicked - результат выбора ситуации: кому раздать мемы.
type SituationPicked struct {
	Chosen SituationChosen
	DealTo []Player
}

// SubmitOutcome - результат приема заявки. Voting заполнен, когда заявка
// оказалась последней и сессия перешла к голосованию.
type SubmitOutcome struct {
	Accepted SubmissionAccepted
	Voting   *VotingStarted
}

// EndSummary - снимок завершенной игры для фиксации статистики.
type EndSummary struct {
	Ended   GameEnded
	Players []Player
	Scores  map[int64]int
}

func NewSession(chatID int64, creator Player, limits Limits) *Session {
	return &Session{
		chatID:     chatID,
		creatorID:  creator.ID,
		limits:     limits,
		state:      StateWaiting,
		players:    []Player{creator},
		leaderID:   creator.ID,
		scores:     map[int64]int{creator.ID: 0},
		lastAction: time.Now(),
	}
}

func (s *Session) ChatID() int64 {
	return s.chatID
}

// State возвращает текущую фазу.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Players возвращает копию списка игроков в порядке входа.
func (s *Session) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Player(nil), s.players...)
}

// Leader возвращает текущего ведущего.
func (s *Session) Leader() Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerByID(s.leaderID)
}

// Join добавляет игрока в фазе ожидания.
func (s *Session) Join(p Player) (PlayerJoined, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWaiting {
		return PlayerJoined{}, ErrGameClosed
	}
	if s.isPlayer(p.ID) {
		return PlayerJoined{}, ErrAlreadyJoined
	}
	if len(s.players) >= s.limits.MaxPlayers {
		return PlayerJoined{}, ErrSessionFull
	}

	s.players = append(s.players, p)
	s.scores[p.ID] = 0
	s.touch()

	return PlayerJoined{Player: p, Count: len(s.players), Max: s.limits.MaxPlayers}, nil
}

// Begin запускает первый раунд. Набор ситуаций вытягивается вызывающей
// стороной заранее, чтобы не держать пул под замком сессии; при отказе
// набор просто пропадает.
func (s *Session) Begin(requesterID int64, situations []string) (RoundStarted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWaiting {
		return RoundStarted{}, ErrGameClosed
	}
	if requesterID != s.creatorID {
		return RoundStarted{}, ErrNotLeader
	}
	if len(s.players) < s.limits.MinPlayers {
		return RoundStarted{}, ErrNotEnoughPlayers
	}

	s.round = 1
	s.situationBatch = situations
	s.state = StateChoosingSituation
	s.touch()

	return s.roundStarted(), nil
}

// ChooseSituation фиксирует ситуацию раунда и сообщает, кому раздать мемы.
func (s *Session) ChooseSituation(requesterID int64, index int) (SituationPicked, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateChoosingSituation {
		return SituationPicked{}, ErrGameClosed
	}
	if requesterID != s.leaderID {
		return SituationPicked{}, ErrNotLeader
	}
	if index < 0 || index >= len(s.situationBatch) {
		return SituationPicked{}, ErrInvalidChoice
	}

	s.situation = s.situationBatch[index]
	s.memeBatches = make(map[int64][]assets.Meme)
	s.submissions = make(map[int64]assets.Meme)
	s.submitOrder = nil
	s.voteOptions = nil
	s.state = StatePlayersChoosing
	s.touch()

	var dealTo []Player
	for _, p := range s.players {
		if p.ID != s.leaderID {
			dealTo = append(dealTo, p)
		}
	}

	return SituationPicked{
		Chosen: SituationChosen{Round: s.round, Situation: s.situation},
		DealTo: dealTo,
	}, nil
}

// IssueMemes прикрепляет игроку набор, вытянутый из пула вне замка сессии.
// Заявка, пришедшая раньше набора, отклоняется как ErrBatchExpired.
func (s *Session) IssueMemes(playerID int64, memes []assets.Meme) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlayersChoosing {
		return ErrGameClosed
	}
	if playerID == s.leaderID || !s.isPlayer(playerID) {
		return ErrNotAPlayer
	}

	s.memeBatches[playerID] = memes
	return nil
}

// SubmitMeme принимает заявку игрока. Переход к голосованию проверяется
// ровно один раз, здесь, под замком сессии - одновременные последние заявки
// не могут обе его пропустить.
func (s *Session) SubmitMeme(requesterID int64, index int) (SubmitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlayersChoosing {
		return SubmitOutcome{}, ErrGameClosed
	}
	if requesterID == s.leaderID || !s.isPlayer(requesterID) {
		return SubmitOutcome{}, ErrNotAPlayer
	}
	if _, ok := s.submissions[requesterID]; ok {
		return SubmitOutcome{}, ErrAlreadySubmitted
	}

	batch, ok := s.memeBatches[requesterID]
	if !ok || len(batch) == 0 {
		return SubmitOutcome{}, ErrBatchExpired
	}
	if index < 0 || index >= len(batch) {
		return SubmitOutcome{}, ErrInvalidChoice
	}

	s.submissions[requesterID] = batch[index]
	s.submitOrder = append(s.submitOrder, requesterID)
	s.touch()

	outcome := SubmitOutcome{
		Accepted: SubmissionAccepted{
			Player:    s.playerByID(requesterID),
			Submitted: len(s.submissions),
			Expected:  len(s.players) - 1,
		},
	}

	if len(s.submissions) == len(s.players)-1 {
		voting := s.startVoting()
		outcome.Voting = &voting
	}

	return outcome, nil
}

// startVoting вызывается под s.mu. Токен опции - индекс заявки в порядке
// поступления: плотный и уникальный в рамках раунда.
func (s *Session) startVoting() VotingStarted {
	s.voteOptions = append([]int64(nil), s.submitOrder...)
	s.state = StateVoting

	options := make([]VoteOption, 0, len(s.voteOptions))
	for token, playerID := range s.voteOptions {
		options = append(options, VoteOption{Token: token, Meme: s.submissions[playerID]})
	}

	return VotingStarted{
		Leader:    s.playerByID(s.leaderID),
		Situation: s.situation,
		Options:   options,
	}
}

// CastVote принимает выбор ведущего и начисляет очко победителю.
func (s *Session) CastVote(requesterID int64, token int) (RoundFinished, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateVoting {
		return RoundFinished{}, ErrGameClosed
	}
	if requesterID != s.leaderID {
		return RoundFinished{}, ErrNotLeader
	}
	if token < 0 || token >= len(s.voteOptions) {
		return RoundFinished{}, ErrInvalidChoice
	}

	winnerID := s.voteOptions[token]
	s.scores[winnerID]++
	s.state = StateRoundComplete
	s.touch()

	return RoundFinished{
		Round:     s.round,
		Winner:    s.playerByID(winnerID),
		Meme:      s.submissions[winnerID],
		Standings: s.standings(),
	}, nil
}

// AdvanceRound передает роль ведущего следующему по кругу и начинает раунд.
func (s *Session) AdvanceRound(requesterID int64, situations []string) (RoundStarted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRoundComplete {
		return RoundStarted{}, ErrGameClosed
	}
	if !s.isPlayer(requesterID) {
		return RoundStarted{}, ErrNotAPlayer
	}

	s.rotateLeader()
	s.round++
	s.situationBatch = situations
	s.situation = ""
	s.memeBatches = nil
	s.submissions = nil
	s.submitOrder = nil
	s.voteOptions = nil
	s.state = StateChoosingSituation
	s.touch()

	return s.roundStarted(), nil
}

// SkipEmptyRound закрывает вырожденный раунд без заявок (в игре не осталось
// никого кроме ведущего) и сразу открывает следующий.
func (s *Session) SkipEmptyRound(situations []string) (RoundStarted, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePlayersChoosing || len(s.players) > 1 {
		return RoundStarted{}, false
	}

	s.rotateLeader()
	s.round++
	s.situationBatch = situations
	s.situation = ""
	s.state = StateChoosingSituation
	s.touch()

	return s.roundStarted(), true
}

// End завершает игру из любой фазы и возвращает снимок для статистики.
func (s *Session) End(requesterID int64) (EndSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEnded {
		return EndSummary{}, ErrGameClosed
	}
	if !s.isPlayer(requesterID) {
		return EndSummary{}, ErrNotAPlayer
	}

	return s.endLocked(), nil
}

// ExpireIfIdle завершает сессию, если по ней давно не было действий.
// Выполняется под тем же замком, что и действия игроков, поэтому не может
// наложиться на живой ход.
func (s *Session) ExpireIfIdle(ttl time.Duration, now time.Time) (EndSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateEnded || now.Sub(s.lastAction) < ttl {
		return EndSummary{}, false
	}
	return s.endLocked(), true
}

// endLocked вызывается под s.mu.
func (s *Session) endLocked() EndSummary {
	s.state = StateEnded

	scores := make(map[int64]int, len(s.scores))
	for id, score := range s.scores {
		scores[id] = score
	}

	return EndSummary{
		Ended:   GameEnded{Rounds: s.round, Standings: s.standings()},
		Players: append([]Player(nil), s.players...),
		Scores:  scores,
	}
}

// standings вызывается под s.mu. Сортировка: очки по убыванию, при равенстве
// выше тот, кто вошел в игру раньше (стабильная сортировка по порядку входа).
func (s *Session) standings() []Standing {
	standings := make([]Standing, 0, len(s.players))
	for _, p := range s.players {
		standings = append(standings, Standing{Player: p, Score: s.scores[p.ID]})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	return standings
}

// rotateLeader вызывается под s.mu.
func (s *Session) rotateLeader() {
	for i, p := range s.players {
		if p.ID == s.leaderID {
			s.leaderID = s.players[(i+1)%len(s.players)].ID
			return
		}
	}
	// Ведущий не найден среди игроков - начинаем круг заново.
	s.leaderID = s.players[0].ID
}

// roundStarted вызывается под s.mu.
func (s *Session) roundStarted() RoundStarted {
	return RoundStarted{
		Round:      s.round,
		Leader:     s.playerByID(s.leaderID),
		Situations: append([]string(nil), s.situationBatch...),
	}
}

func (s *Session) isPlayer(id int64) bool {
	for _, p := range s.players {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Session) playerByID(id int64) Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return Player{ID: id}
}

func (s *Session) touch() {
	s.lastAction = time.Now()
}
