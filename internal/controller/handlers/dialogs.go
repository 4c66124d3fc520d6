package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/ortiqov/contract_bot/internal/form"
	"go.uber.org/zap"
)

// HandleTextMessage пропускает текст диалога через машину переходов
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	// команды обрабатываются своими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	chatID := update.Message.Chat.ID

	session, ok := h.registry.Get(chatID)
	if !ok || session.Step().Kind == form.StepIdle {
		h.logger.Debug("No active session, ignoring message",
			zap.Int64("chat_id", chatID))
		return
	}

	prompt, err := h.machine.Input(session, update.Message.Text)
	if err != nil {
		if errors.Is(err, form.ErrUnexpectedEvent) {
			return
		}
		h.logger.Info("Input rejected",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   errorMessage(err),
		})
		return
	}

	h.sendPrompt(ctx, b, chatID, prompt)
}
