package telegram

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/VladislavG32/telegram-memes-game-bot/internal/game"
	"github.com/VladislavG32/telegram-memes-game-bot/internal/service"
)

const leaderboardLimit = 10

// MessageSender определяет интерфейс для отправки сообщений.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// GameDispatcher - игровое ядро с точки зрения обработчиков.
type GameDispatcher interface {
	Dispatch(chatID int64, actor game.Player, action game.Action) ([]game.Event, error)
	SweepIdle(ttl time.Duration) []game.ExpiredGame
}

// AssetManager - операции с контентом, доступные из команд бота.
type AssetManager interface {
	AddSituation(text string) error
	ResetUsed()
}

type Handler struct {
	Bot    MessageSender
	Games  GameDispatcher
	Stats  service.StatsInterface
	Assets AssetManager
}

func NewHandler(bot MessageSender, games GameDispatcher, stats service.StatsInterface, assets AssetManager) *Handler {
	return &Handler{
		Bot:    bot,
		Games:  games,
		Stats:  stats,
		Assets: assets,
	}
}

// HandleStart - /start: регистрация игрока и приветствие
func (h *Handler) HandleStart(msg *tgbotapi.Message) {
	user := msg.From
	if err := h.Stats.RegisterPlayer(user.ID, user.UserName, user.FirstName); err != nil {
		log.Printf("Failed to register player %d: %v", user.ID, err)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Создать игру", "newgame"),
		),
	)
	reply := tgbotapi.NewMessage(msg.Chat.ID,
		fmt.Sprintf("Привет, %s! Это битва мемов: ведущий задает ситуацию, игроки отвечают мемами.", user.FirstName))
	reply.ReplyMarkup = keyboard
	sendMessage(h.Bot, reply)
}

// HandleGameAction - единая точка для игровых действий. Отказ уходит игроку
// ответом на callback (или сообщением в чат), состояние игры не меняется.
func (h *Handler) HandleGameAction(chatID int64, user *tgbotapi.User, action game.Action, callbackID string) {
	actor := game.Player{ID: user.ID, DisplayName: user.FirstName}

	// Игрок мог ни разу не писать боту лично - фиксируем его в базе,
	// иначе итоги игры будет некуда записать.
	switch action.(type) {
	case game.Join, game.CreateGame:
		if err := h.Stats.RegisterPlayer(user.ID, user.UserName, user.FirstName); err != nil {
			log.Printf("Failed to register player %d: %v", user.ID, err)
		}
	}

	events, err := h.Games.Dispatch(chatID, actor, action)
	if err != nil {
		h.reject(chatID, callbackID, err)
		return
	}

	if callbackID != "" {
		if _, err := h.Bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
			log.Printf("Failed to answer callback: %v", err)
		}
	}

	for _, ev := range events {
		h.renderEvent(chatID, ev)
	}
}

// HandleSweep объявляет игры, завершенные по простою.
func (h *Handler) HandleSweep(ttl time.Duration) {
	for _, e := range h.Games.SweepIdle(ttl) {
		text := "Игра завершена: слишком долго не было ходов.\n\n" + standingsText(e.Summary.Ended.Standings)
		sendMessage(h.Bot, tgbotapi.NewMessage(e.ChatID, text))
	}
}

func (h *Handler) reject(chatID int64, callbackID string, err error) {
	text := rejectionText(err)
	if callbackID != "" {
		if _, reqErr := h.Bot.Request(tgbotapi.NewCallback(callbackID, text)); reqErr != nil {
			log.Printf("Failed to answer callback: %v", reqErr)
		}
		return
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(chatID, text))
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, game.ErrNoGame):
		return "В этом чате нет игры. Создайте ее командой /game"
	case errors.Is(err, game.ErrAlreadyActive):
		return "В этом чате уже идет игра"
	case errors.Is(err, game.ErrGameClosed):
		return "Сейчас так нельзя: игра уже в другой фазе"
	case errors.Is(err, game.ErrAlreadyJoined):
		return "Ты уже в игре 😉"
	case errors.Is(err, game.ErrSessionFull):
		return "Мест больше нет 😢"
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return "Маловато игроков, зовите еще!"
	case errors.Is(err, game.ErrNotLeader):
		return "Это может сделать только ведущий"
	case errors.Is(err, game.ErrNotAPlayer):
		return "Ты не участвуешь в этой игре"
	case errors.Is(err, game.ErrAlreadySubmitted):
		return "Ты уже выбрал мем в этом раунде"
	case errors.Is(err, game.ErrBatchExpired):
		return "Этот набор мемов уже не действует"
	case errors.Is(err, game.ErrInvalidChoice):
		return "Такого варианта нет"
	default:
		log.Printf("Unexpected game error: %v", err)
		return "Что-то пошло не так 😅"
	}
}

// renderEvent превращает событие ядра в сообщения Telegram.
// sessionChatID - чат, в котором идет игра.
func (h *Handler) renderEvent(sessionChatID int64, ev game.Event) {
	switch e := ev.(type) {
	case game.GameCreated:
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Присоединиться", "join"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Начать игру", "begin"),
			),
		)
		msg := tgbotapi.NewMessage(sessionChatID,
			fmt.Sprintf("%s открывает битву мемов! Нужно от %d до %d игроков.",
				e.Creator.DisplayName, e.MinPlayers, e.MaxPlayers))
		msg.ReplyMarkup = keyboard
		sendMessage(h.Bot, msg)

	case game.PlayerJoined:
		sendMessage(h.Bot, tgbotapi.NewMessage(sessionChatID,
			fmt.Sprintf("%s в игре! (%d/%d)", e.Player.DisplayName, e.Count, e.Max)))

	case game.RoundStarted:
		var rows [][]tgbotapi.InlineKeyboardButton
		for i, situation := range e.Situations {
			button := tgbotapi.NewInlineKeyboardButtonData(
				truncateLabel(situation, 40), fmt.Sprintf("sit_%d", i))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(button))
		}
		msg := tgbotapi.NewMessage(sessionChatID,
			fmt.Sprintf("Раунд %d! Ведущий — %s. Выбирай ситуацию:", e.Round, e.Leader.DisplayName))
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		sendMessage(h.Bot, msg)

	case game.SituationChosen:
		sendMessage(h.Bot, tgbotapi.NewMessage(sessionChatID,
			fmt.Sprintf("Ситуация раунда %d:\n«%s»\n\nМемы уже летят игрокам в личку!", e.Round, e.Situation)))

	case game.MemesDealt:
		h.deliverMemes(sessionChatID, e)

	case game.SubmissionAccepted:
		sendMessage(h.Bot, tgbotapi.NewMessage(sessionChatID,
			fmt.Sprintf("%s сделал выбор (%d из %d)", e.Player.DisplayName, e.Submitted, e.Expected)))

	case game.VotingStarted:
		sendMessage(h.Bot, tgbotapi.NewMessage(sessionChatID,
			fmt.Sprintf("Все мемы собраны! %s выбирает победителя в личке.", e.Leader.DisplayName)))
		h.deliverVoteOptions(sessionChatID, e)

	case game.RoundFinished:
		caption := fmt.Sprintf("Раунд %d выигрывает %s! 🎉", e.Round, e.Winner.DisplayName)
		sendMessage(h.Bot, memeMessage(sessionChatID, e.Meme, caption))

		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Следующий раунд", "next"),
				tgbotapi.NewInlineKeyboardButtonData("Завершить игру", "endgame"),
			),
		)
		msg := tgbotapi.NewMessage(sessionChatID, standingsText(e.Standings))
		msg.ReplyMarkup = keyboard
		sendMessage(h.Bot, msg)

	case game.GameEnded:
		text := fmt.Sprintf("Игра окончена! Сыграно раундов: %d\n\n%s", e.Rounds, standingsText(e.Standings))
		sendMessage(h.Bot, tgbotapi.NewMessage(sessionChatID, text))

	default:
		log.Printf("Unknown game event %T", ev)
	}
}

// deliverMemes отправляет игроку его набор в личку. Кнопки несут id чата
// игры: callback придет из личной переписки, а не из группового чата.
func (h *Handler) deliverMemes(sessionChatID int64, e game.MemesDealt) {
	intro := tgbotapi.NewMessage(e.Player.ID,
		fmt.Sprintf("Ситуация:\n«%s»\n\nТвои мемы:", e.Situation))
	sendMessage(h.Bot, intro)

	var buttons []tgbotapi.InlineKeyboardButton
	for i, meme := range e.Memes {
		sendMessage(h.Bot, memeMessage(e.Player.ID, meme, fmt.Sprintf("Мем %d", i+1)))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", i+1), fmt.Sprintf("meme_%d_%d", sessionChatID, i)))
	}

	pick := tgbotapi.NewMessage(e.Player.ID, "Какой мем играем?")
	pick.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	sendMessage(h.Bot, pick)
}

// deliverVoteOptions показывает заявки только ведущему, без имен авторов.
func (h *Handler) deliverVoteOptions(sessionChatID int64, e game.VotingStarted) {
	intro := tgbotapi.NewMessage(e.Leader.ID,
		fmt.Sprintf("Ситуация:\n«%s»\n\nВыбери лучший мем:", e.Situation))
	sendMessage(h.Bot, intro)

	var buttons []tgbotapi.InlineKeyboardButton
	for i, opt := range e.Options {
		sendMessage(h.Bot, memeMessage(e.Leader.ID, opt.Meme, fmt.Sprintf("Вариант %d", i+1)))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", i+1), fmt.Sprintf("vote_%d_%d", sessionChatID, opt.Token)))
	}

	pick := tgbotapi.NewMessage(e.Leader.ID, "Кто победил?")
	pick.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	sendMessage(h.Bot, pick)
}

func standingsText(standings []game.Standing) string {
	text := "🏆 Таблица очков:\n"
	for i, s := range standings {
		word := Pluralize(s.Score, [3]string{"очко", "очка", "очков"})
		text += fmt.Sprintf("%d. %s — %d %s\n", i+1, s.Player.DisplayName, s.Score, word)
	}
	return text
}

// HandleLeaderboard - Обработка команды /leaderboard
func (h *Handler) HandleLeaderboard(chatID int64) {
	leaderboard, err := h.Stats.GetLeaderboard(leaderboardLimit)
	if err != nil {
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Не удалось получить рейтинг 😅"))
		log.Printf("[Leaderboard] failed: %v", err)
		return
	}

	text := "🏆 Рейтинг игроков за все время:\n"
	for i, p := range leaderboard {
		word := Pluralize(p.TotalScore, [3]string{"очко", "очка", "очков"})
		text += fmt.Sprintf("%d. %s — %d %s (игр: %d)\n", i+1, p.DisplayName, p.TotalScore, word, p.GamesPlayed)
	}

	sendMessage(h.Bot, tgbotapi.NewMessage(chatID, text))
}

// HandleYearStats - рейтинг за конкретный год (без аргумента - текущий)
func (h *Handler) HandleYearStats(msg *tgbotapi.Message) {
	year := time.Now().Year()
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil {
			sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Год нужно указать числом: /yearstats 2025"))
			return
		}
		year = parsed
	}

	leaderboard, err := h.Stats.GetYearLeaderboard(year)
	if err != nil {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Не удалось получить рейтинг 😅"))
		log.Printf("[YearStats] failed for %d: %v", year, err)
		return
	}
	if len(leaderboard) == 0 {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID,
			fmt.Sprintf("За %d год еще не сыграно ни одной игры", year)))
		return
	}

	text := fmt.Sprintf("🏆 Рейтинг за %d год:\n", year)
	for i, p := range leaderboard {
		word := Pluralize(p.TotalScore, [3]string{"очко", "очка", "очков"})
		text += fmt.Sprintf("%d. %s — %d %s (игр: %d)\n", i+1, p.DisplayName, p.TotalScore, word, p.GamesPlayed)
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, text))
}

// HandleMyStats - узнать индивидуальную статистику
func (h *Handler) HandleMyStats(chatID int64, user *tgbotapi.User) {
	stats, err := h.Stats.GetPlayerStats(user.ID)
	if errors.Is(err, service.ErrPlayerNotFound) {
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Тебя еще нет в базе. Нажми /start"))
		return
	}
	if err != nil {
		sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Не удалось получить статистику 😅"))
		log.Printf("[Stats] failed for %s: %v", user.UserName, err)
		return
	}

	games := Pluralize(stats.GamesPlayed, [3]string{"игра", "игры", "игр"})
	sendMessage(h.Bot, tgbotapi.NewMessage(chatID,
		fmt.Sprintf("%s, у тебя %d очков за %d %s", user.FirstName, stats.TotalScore, stats.GamesPlayed, games)))
}

// HandleAddSituation - /addsituation <текст>: пополнить файл ситуаций
func (h *Handler) HandleAddSituation(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Напиши ситуацию после команды: /addsituation <текст>"))
		return
	}

	if err := h.Assets.AddSituation(text); err != nil {
		log.Printf("Failed to add situation: %v", err)
		sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Не удалось сохранить ситуацию 😅"))
		return
	}
	sendMessage(h.Bot, tgbotapi.NewMessage(msg.Chat.ID, "Ситуация добавлена!"))
}

// HandleResetMemes - /resetmemes: снова пустить в раздачу все мемы
func (h *Handler) HandleResetMemes(chatID int64) {
	h.Assets.ResetUsed()
	sendMessage(h.Bot, tgbotapi.NewMessage(chatID, "Список использованных мемов очищен"))
}

var commandsKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Создать игру", "newgame"),
		tgbotapi.NewInlineKeyboardButtonData("Рейтинг", "leaderboard"),
	),
)

// HandleHelp - /help
func (h *Handler) HandleHelp(msg *tgbotapi.Message) {
	text := "Битва мемов! Вот что я умею:\n\n" +
		"/game - создать игру в этом чате\n" +
		"/join - присоединиться к игре\n" +
		"/begin - начать первый раунд\n" +
		"/end - завершить игру\n" +
		"/leaderboard - рейтинг игроков\n" +
		"/yearstats [год] - рейтинг за год\n" +
		"/mystats - моя статистика\n" +
		"/addsituation <текст> - добавить свою ситуацию\n" +
		"/resetmemes - снова пустить в раздачу все мемы\n" +
		"/help - показать это сообщение"

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = commandsKeyboard
	sendMessage(h.Bot, reply)
}
