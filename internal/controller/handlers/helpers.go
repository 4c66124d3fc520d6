package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/ortiqov/contract_bot/internal/form"
	"go.uber.org/zap"
)

// promptKeyboard строит inline клавиатуру из кнопок машины
func promptKeyboard(p form.Prompt) *models.InlineKeyboardMarkup {
	if len(p.Choices) == 0 {
		return nil
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(p.Choices))
	for _, choice := range p.Choices {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: choice.Label, CallbackData: choice.Data},
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// sendPrompt отправляет запрос машины новым сообщением
func (h *Handlers) sendPrompt(ctx context.Context, b *bot.Bot, chatID int64, p form.Prompt) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   p.Text,
	}
	if kb := promptKeyboard(p); kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send prompt",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

// editPrompt заменяет текст и клавиатуру сообщения с кнопками
func (h *Handlers) editPrompt(ctx context.Context, b *bot.Bot, chatID int64, messageID int, p form.Prompt) {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      p.Text,
	}
	if kb := promptKeyboard(p); kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := b.EditMessageText(ctx, params); err != nil {
		h.logger.Warn("Failed to edit prompt, sending new message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		h.sendPrompt(ctx, b, chatID, p)
	}
}

// answerCallback отвечает на callback query без alert
func answerCallback(ctx context.Context, b *bot.Bot, callbackID string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
}

// answerCallbackAlert отвечает на callback query всплывающим окном
func answerCallbackAlert(ctx context.Context, b *bot.Bot, callbackID string, text string) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       true,
	})
}

// errorMessage переводит ошибку перехода в текст для пользователя
func errorMessage(err error) string {
	if ve, ok := form.AsValidation(err); ok {
		return ve.Message
	}
	if errors.Is(err, form.ErrFinalizeInProgress) {
		return "⏳ Договор уже формируется, подождите"
	}
	return "❌ Произошла ошибка"
}
