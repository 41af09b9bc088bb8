package game

import "errors"

// Все ошибки игровых действий восстановимые: состояние сессии не меняется,
// игроку отправляется отказ. Проверяются через errors.Is.
var (
	// ErrGameClosed - действие не соответствует текущей фазе игры
	// (например, /join после старта раунда).
	ErrGameClosed = errors.New("game is closed for this action")

	// ErrNotEnoughPlayers - для старта не хватает игроков.
	ErrNotEnoughPlayers = errors.New("not enough players")

	// ErrSessionFull - достигнут лимит игроков.
	ErrSessionFull = errors.New("session is full")

	// ErrAlreadyJoined - игрок уже в игре. Не ошибка по сути, отказ информационный.
	ErrAlreadyJoined = errors.New("player already joined")

	// ErrNotLeader - действие доступно только ведущему.
	ErrNotLeader = errors.New("only the leader may do this")

	// ErrAlreadySubmitted - игрок уже выбрал мем в этом раунде.
	ErrAlreadySubmitted = errors.New("meme already submitted this round")

	// ErrInvalidChoice - индекс или токен вне выданного набора.
	ErrInvalidChoice = errors.New("invalid choice")

	// ErrBatchExpired - у игрока нет выданного набора мемов
	// (запоздавшее действие из прошлого раунда).
	ErrBatchExpired = errors.New("meme batch expired")

	// ErrNotAPlayer - отправитель не участвует в игре или является ведущим
	// там, где ведущий не участвует.
	ErrNotAPlayer = errors.New("not a player of this game")

	// ErrAlreadyActive - в чате уже идет игра.
	ErrAlreadyActive = errors.New("game already active in this chat")

	// ErrNoGame - в чате нет активной игры.
	ErrNoGame = errors.New("no active game in this chat")
)
