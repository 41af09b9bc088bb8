package telegram

import (
	"log"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/VladislavG32/telegram-memes-game-bot/internal/assets"
)

func sendMessage(bot MessageSender, msg tgbotapi.Chattable) {
	if _, err := bot.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

// Pluralize возвращает правильную форму слова в зависимости от числа.
func Pluralize(count int, forms [3]string) string {
	if count%10 == 1 && count%100 != 11 {
		return forms[0]
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return forms[1]
	}
	return forms[2]
}

// truncateLabel укорачивает текст кнопки: Telegram не показывает длинные подписи.
func truncateLabel(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-1]) + "…"
}

var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
}

// memeMessage собирает сообщение с мемом: видео уходят как видео, остальное фото.
func memeMessage(chatID int64, meme assets.Meme, caption string) tgbotapi.Chattable {
	file := tgbotapi.FilePath(meme.Path)
	if videoExtensions[strings.ToLower(filepath.Ext(meme.Name))] {
		video := tgbotapi.NewVideo(chatID, file)
		video.Caption = caption
		return video
	}
	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = caption
	return photo
}
