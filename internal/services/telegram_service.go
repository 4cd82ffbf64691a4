package services

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService пушит уведомления пользователям, привязавшим чат.
type TelegramService struct {
	bot    *tgbotapi.BotAPI
	dryRun bool
}

func NewTelegramService(botToken string, dryRun bool) *TelegramService {
	if botToken == "" {
		return &TelegramService{dryRun: true}
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		log.Printf("[tg] инициализация бота не удалась: %v", err)
		return &TelegramService{dryRun: true}
	}
	return &TelegramService{bot: bot, dryRun: dryRun}
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if t == nil || chatID == 0 {
		return nil
	}
	if t.dryRun || t.bot == nil {
		log.Printf("[tg][dry-run] chatID=%d text=%q", chatID, text)
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return err
	}
	return nil
}
