package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/VladislavG32/telegram-memes-game-bot/internal/game"
	"github.com/VladislavG32/telegram-memes-game-bot/internal/storage"
)

// ErrPlayerNotFound - игрок еще не писал боту.
var ErrPlayerNotFound = errors.New("player not found")

// StatsStorage - нужная сервису часть хранилища.
type StatsStorage interface {
	UpsertPlayer(ctx context.Context, tgID int64, username, displayName string) error
	GetPlayerByTGID(ctx context.Context, tgID int64) (*storage.Player, error)
	GetLeaderboard(ctx context.Context, limit int) ([]storage.Player, error)
	SaveGameResults(ctx context.Context, gameID uuid.UUID, results []storage.GameResult) error
	LoadGamesByYear(ctx context.Context, year int) ([]storage.GameResult, error)
}

// StatsInterface - поверхность сервиса для обработчиков Telegram.
type StatsInterface interface {
	RegisterPlayer(tgID int64, username, displayName string) error
	GetLeaderboard(limit int) ([]storage.Player, error)
	GetYearLeaderboard(year int) ([]storage.Player, error)
	GetPlayerStats(tgID int64) (*storage.Player, error)
}

// StatsService переводит итоги сессий в накопленную статистику игроков
// и отдает ее для рейтинга.
type StatsService struct {
	storage StatsStorage
	ctx     context.Context
}

func New(storage StatsStorage) *StatsService {
	return &StatsService{
		storage: storage,
		ctx:     context.Background(),
	}
}

// RegisterPlayer - регаем игрока при первом контакте, имя обновляем всегда
func (s *StatsService) RegisterPlayer(tgID int64, username, displayName string) error {
	return s.storage.UpsertPlayer(s.ctx, tgID, username, displayName)
}

// Finalize фиксирует завершенную игру: каждому игроку +1 к сыгранным играм
// и его очки сессии к общему счету. Места считаются тем же правилом, что и
// таблица в игре: очки по убыванию, при равенстве раньше вошедший выше.
func (s *StatsService) Finalize(players []game.Player, scores map[int64]int) error {
	if len(players) == 0 {
		return nil
	}

	ranked := append([]game.Player(nil), players...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].ID] > scores[ranked[j].ID]
	})

	gameID := uuid.New()
	results := make([]storage.GameResult, 0, len(ranked))
	for i, p := range ranked {
		results = append(results, storage.GameResult{
			GameID: gameID,
			TGID:   p.ID,
			Place:  i + 1,
			Points: scores[p.ID],
		})
	}

	if err := s.storage.SaveGameResults(s.ctx, gameID, results); err != nil {
		return fmt.Errorf("failed to save game results: %w", err)
	}
	return nil
}

// GetLeaderboard - топ игроков по накопленным очкам
func (s *StatsService) GetLeaderboard(limit int) ([]storage.Player, error) {
	return s.storage.GetLeaderboard(s.ctx, limit)
}

// GetYearLeaderboard - рейтинг игроков за конкретный год. Складываем очки и
// игры из сохраненных результатов, сортируем как общий рейтинг.
func (s *StatsService) GetYearLeaderboard(year int) ([]storage.Player, error) {
	results, err := s.storage.LoadGamesByYear(s.ctx, year)
	if err != nil {
		return nil, err
	}

	byPlayer := make(map[int64]*storage.Player)
	var order []int64
	for _, r := range results {
		p, ok := byPlayer[r.TGID]
		if !ok {
			p = &storage.Player{TGID: r.TGID, DisplayName: r.DisplayName}
			byPlayer[r.TGID] = p
			order = append(order, r.TGID)
		}
		p.GamesPlayed++
		p.TotalScore += r.Points
	}

	players := make([]storage.Player, 0, len(order))
	for _, id := range order {
		players = append(players, *byPlayer[id])
	}
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].TotalScore != players[j].TotalScore {
			return players[i].TotalScore > players[j].TotalScore
		}
		return players[i].GamesPlayed > players[j].GamesPlayed
	})
	return players, nil
}

// GetPlayerStats - статистика одного игрока
func (s *StatsService) GetPlayerStats(tgID int64) (*storage.Player, error) {
	p, err := s.storage.GetPlayerByTGID(s.ctx, tgID)
	if errors.Is(err, storage.ErrPlayerNotFound) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
