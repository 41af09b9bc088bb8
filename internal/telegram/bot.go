package telegram

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/VladislavG32/telegram-memes-game-bot/internal/assets"
	"github.com/VladislavG32/telegram-memes-game-bot/internal/config"
	"github.com/VladislavG32/telegram-memes-game-bot/internal/game"
	"github.com/VladislavG32/telegram-memes-game-bot/internal/service"
	"github.com/VladislavG32/telegram-memes-game-bot/internal/storage"
)

type Bot struct {
	bot     *tgbotapi.BotAPI
	handler *Handler
	cfg     *config.Config
}

func NewBot(cfg *config.Config) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(); err != nil {
		return nil, fmt.Errorf("cannot ping DB: %w", err)
	}
	log.Println("✅ Connected to Postgres")

	stats := service.New(store)
	pool := assets.NewPool(cfg.MemesDir, cfg.SituationsFile, cfg.UsedMemesFile)
	registry := game.NewRegistry(game.Limits{
		MinPlayers: cfg.MinPlayers,
		MaxPlayers: cfg.MaxPlayers,
	})
	dispatcher := game.NewDispatcher(registry, pool, stats, game.Settings{
		SituationsPerBatch: cfg.SituationsPerBatch,
		MemesPerPlayer:     cfg.MemesPerPlayer,
	})

	return &Bot{
		bot:     botAPI,
		handler: NewHandler(botAPI, dispatcher, stats, pool),
		cfg:     cfg,
	}, nil
}

func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.bot.GetUpdatesChan(u)

	go b.runJanitor()

	log.Println("Bot started!")

	for update := range updates {
		if update.Message != nil {
			b.handleMessage(update.Message)
		} else if update.CallbackQuery != nil {
			b.handleCallback(update.CallbackQuery)
		}
	}
}

// runJanitor завершает игры, по которым давно нет ходов.
func (b *Bot) runJanitor() {
	ticker := time.NewTicker(b.cfg.SweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		b.handler.HandleSweep(b.cfg.SessionTTL)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handler.HandleStart(msg)
	case "help":
		b.handler.HandleHelp(msg)
	case "game":
		b.handler.HandleGameAction(msg.Chat.ID, msg.From, game.CreateGame{}, "")
	case "join":
		b.handler.HandleGameAction(msg.Chat.ID, msg.From, game.Join{}, "")
	case "begin":
		b.handler.HandleGameAction(msg.Chat.ID, msg.From, game.Begin{}, "")
	case "end":
		b.handler.HandleGameAction(msg.Chat.ID, msg.From, game.EndGame{}, "")
	case "leaderboard":
		b.handler.HandleLeaderboard(msg.Chat.ID)
	case "yearstats":
		b.handler.HandleYearStats(msg)
	case "mystats":
		b.handler.HandleMyStats(msg.Chat.ID, msg.From)
	case "addsituation":
		b.handler.HandleAddSituation(msg)
	case "resetmemes":
		b.handler.HandleResetMemes(msg.Chat.ID)
	}
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	switch callback.Data {
	case "leaderboard":
		b.handler.HandleLeaderboard(callback.Message.Chat.ID)
		b.answerCallback(callback.ID)
		return
	}

	chatID, action, ok := parseGameCallback(callback.Message.Chat.ID, callback.Data)
	if !ok {
		log.Printf("Dropping malformed callback %q from %d", callback.Data, callback.From.ID)
		b.answerCallback(callback.ID)
		return
	}

	b.handler.HandleGameAction(chatID, callback.From, action, callback.ID)
}

func (b *Bot) answerCallback(id string) {
	if _, err := b.bot.Request(tgbotapi.NewCallback(id, "")); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
}

// parseGameCallback разбирает данные кнопки в игровое действие. Кнопки из
// личной переписки (meme_, vote_) несут id игрового чата внутри данных,
// для остальных берется чат сообщения с кнопкой.
func parseGameCallback(msgChatID int64, data string) (int64, game.Action, bool) {
	switch data {
	case "newgame":
		return msgChatID, game.CreateGame{}, true
	case "join":
		return msgChatID, game.Join{}, true
	case "begin":
		return msgChatID, game.Begin{}, true
	case "next":
		return msgChatID, game.NextRound{}, true
	case "endgame":
		return msgChatID, game.EndGame{}, true
	}

	parts := strings.Split(data, "_")
	switch parts[0] {
	case "sit":
		if len(parts) != 2 {
			return 0, nil, false
		}
		index, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, nil, false
		}
		return msgChatID, game.ChooseSituation{Index: index}, true

	case "meme":
		chatID, index, ok := parseChatAndIndex(parts)
		if !ok {
			return 0, nil, false
		}
		return chatID, game.SubmitMeme{Index: index}, true

	case "vote":
		chatID, token, ok := parseChatAndIndex(parts)
		if !ok {
			return 0, nil, false
		}
		return chatID, game.CastVote{Token: token}, true
	}

	return 0, nil, false
}

func parseChatAndIndex(parts []string) (int64, int, bool) {
	if len(parts) != 3 {
		return 0, 0, false
	}
	chatID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, false
	}
	return chatID, index, true
}
