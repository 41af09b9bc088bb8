package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPlayerNotFound - игрока нет в базе.
var ErrPlayerNotFound = errors.New("player not found")

type Storage struct {
	db *pgxpool.Pool
}

// New - Создание подключения
func New(dsn string) (*Storage, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{db: pool}, nil
}

// Ping - проверка подключения к DB
func (s *Storage) Ping() error {
	return s.db.Ping(context.Background())
}

// Close - закрытие пула
func (s *Storage) Close() {
	s.db.Close()
}

// UpsertPlayer - добавляем игрока, имя обновляем при каждом контакте
func (s *Storage) UpsertPlayer(ctx context.Context, tgID int64, username, displayName string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO players (tg_id, username, display_name, games_played, total_score)
		 VALUES ($1, $2, $3, 0, 0)
		 ON CONFLICT (tg_id) DO UPDATE SET username = $2, display_name = $3`,
		tgID, username, displayName)
	return err
}

// GetPlayerByTGID - смотрим игрока по tgID
func (s *Storage) GetPlayerByTGID(ctx context.Context, tgID int64) (*Player, error) {
	var p Player
	err := s.db.QueryRow(ctx,
		"SELECT tg_id, username, display_name, games_played, total_score FROM players WHERE tg_id=$1",
		tgID,
	).Scan(&p.TGID, &p.Username, &p.DisplayName, &p.GamesPlayed, &p.TotalScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetLeaderboard - топ игроков по сумме очков за все игры
func (s *Storage) GetLeaderboard(ctx context.Context, limit int) ([]Player, error) {
	rows, err := s.db.Query(ctx,
		`SELECT tg_id, username, display_name, games_played, total_score
		 FROM players
		 ORDER BY total_score DESC, games_played DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.TGID, &p.Username, &p.DisplayName, &p.GamesPlayed, &p.TotalScore); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// SaveGameResults - Сохранение результатов игры одной транзакцией:
// строка в games, строки в game_results и инкременты статистики игроков
func (s *Storage) SaveGameResults(ctx context.Context, gameID uuid.UUID, results []GameResult) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO games (id, finished_at) VALUES ($1, NOW())",
		gameID,
	)
	if err != nil {
		return err
	}

	for _, r := range results {
		_, err := tx.Exec(ctx,
			`INSERT INTO game_results (game_id, tg_id, place, points)
			 VALUES ($1, $2, $3, $4)`,
			gameID, r.TGID, r.Place, r.Points,
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE players
			 SET games_played = games_played + 1, total_score = total_score + $1
			 WHERE tg_id = $2`,
			r.Points, r.TGID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// LoadGamesByYear - Получение результатов игр за год
func (s *Storage) LoadGamesByYear(ctx context.Context, year int) ([]GameResult, error) {
	rows, err := s.db.Query(ctx,
		`SELECT r.game_id, r.tg_id, p.display_name, r.place, r.points, g.finished_at
		 FROM game_results r
		 JOIN players p ON r.tg_id = p.tg_id
		 JOIN games g ON r.game_id = g.id
		 WHERE EXTRACT(YEAR FROM g.finished_at) = $1
		 ORDER BY g.finished_at, r.place`,
		year,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []GameResult
	for rows.Next() {
		var r GameResult
		if err := rows.Scan(&r.GameID, &r.TGID, &r.DisplayName, &r.Place, &r.Points, &r.Date); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
