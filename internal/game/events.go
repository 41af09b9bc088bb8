package game

import "github.com/VladislavG32/telegram-memes-game-bot/internal/assets"

// Event - описание исходящего эффекта игрового действия. Ядро не знает про
// Telegram: каждое мутирующее действие возвращает список событий, а слой
// транспорта превращает их в сообщения и клавиатуры.
type Event interface {
	isEvent()
}

// GameCreated - в чате открыта новая игра.
type GameCreated struct {
	Creator    Player
	MinPlayers int
	MaxPlayers int
}

// PlayerJoined - игрок вошел в игру.
type PlayerJoined struct {
	Player Player
	Count  int
	Max    int
}

// RoundStarted - начался раунд, ведущему предлагаются ситуации.
type RoundStarted struct {
	Round      int
	Leader     Player
	Situations []string
}

// SituationChosen - ведущий выбрал ситуацию раунда.
type SituationChosen struct {
	Round     int
	Situation string
}

// MemesDealt - игроку выдан личный набор мемов.
type MemesDealt struct {
	Player    Player
	Situation string
	Memes     []assets.Meme
}

// SubmissionAccepted - игрок сделал выбор, публикуется только факт выбора.
type SubmissionAccepted struct {
	Player    Player
	Submitted int
	Expected  int
}

// VoteOption - одна анонимная заявка, показывается только ведущему.
type VoteOption struct {
	Token int
	Meme  assets.Meme
}

// VotingStarted - все игроки выбрали, ведущий голосует.
type VotingStarted struct {
	Leader    Player
	Situation string
	Options   []VoteOption
}

// Standing - строка таблицы очков.
type Standing struct {
	Player Player
	Score  int
}

// RoundFinished - ведущий выбрал победителя раунда.
type RoundFinished struct {
	Round     int
	Winner    Player
	Meme      assets.Meme
	Standings []Standing
}

// GameEnded - игра завершена, итоговая таблица.
type GameEnded struct {
	Rounds    int
	Standings []Standing
}

func (GameCreated) isEvent()        {}
func (PlayerJoined) isEvent()       {}
func (RoundStarted) isEvent()       {}
func (SituationChosen) isEvent()    {}
func (MemesDealt) isEvent()         {}
func (SubmissionAccepted) isEvent() {}
func (VotingStarted) isEvent()      {}
func (RoundFinished) isEvent()      {}
func (GameEnded) isEvent()          {}
