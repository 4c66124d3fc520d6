package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/ortiqov/contract_bot/internal/form"
	"go.uber.org/zap"
)

const historyLimit = 10

// HandleStart обрабатывает команду /start: прежняя сессия
// сбрасывается, опрос начинается с первого поля
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	h.logger.Info("Starting contract intake",
		zap.Int64("chat_id", chatID),
		zap.Int64("telegram_id", update.Message.From.ID))

	session := h.registry.GetOrCreate(chatID)
	prompt := h.machine.Start(session)

	h.sendPrompt(ctx, b, chatID, prompt)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📄 Бот формирует договор купли-продажи.\n\n" +
		"/start - Начать заполнение данных\n" +
		"/history - Последние сформированные договоры\n" +
		"/cancel - Отменить текущее заполнение\n" +
		"/help - Показать эту справку\n\n" +
		"Любое поле покупателя можно пропустить кнопкой или словом «пропустить»."

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   helpText,
	})
}

// HandleCancel обрабатывает команду /cancel - отмена заполнения
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	session, ok := h.registry.Get(chatID)
	if !ok || session.Step().Kind == form.StepIdle {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Нет активных операций для отмены.",
		})
		return
	}

	h.registry.Remove(chatID)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "✅ Заполнение отменено.\n\nНачать заново: /start",
	})
}

// HandleHistory обрабатывает команду /history - последние договоры
func (h *Handlers) HandleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	contracts, err := h.contractService.History(ctx, historyLimit)
	if err != nil {
		h.logger.Error("Failed to load contract history",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось загрузить историю, попробуйте позже.",
		})
		return
	}

	if len(contracts) == 0 {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "📂 История пуста",
		})
		return
	}

	var sb strings.Builder
	sb.WriteString("📄 Последние договоры:\n\n")
	for _, c := range contracts {
		fmt.Fprintf(&sb, "#%d – %s – %d сум – %s\n",
			c.ID, c.BuyerName, int64(c.TotalSum), c.CreatedAt.Format("02.01 15:04"))
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   sb.String(),
	})
}
