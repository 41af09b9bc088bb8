package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/VladislavG32/telegram-memes-game-bot/internal/config"
	"github.com/VladislavG32/telegram-memes-game-bot/internal/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	bot, err := telegram.NewBot(cfg)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	bot.Start()
}
