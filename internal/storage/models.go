package storage

import (
	"time"

	"github.com/google/uuid"
)

// Игрок с накопленной статистикой
type Player struct {
	TGID        int64
	Username    string
	DisplayName string
	GamesPlayed int
	TotalScore  int
}

// Итог одного игрока в одной игре
type GameResult struct {
	GameID      uuid.UUID
	TGID        int64
	DisplayName string // заполняется только при чтении
	Place       int    // место в итоговой таблице
	Points      int    // очки за игру
	Date        time.Time
}
