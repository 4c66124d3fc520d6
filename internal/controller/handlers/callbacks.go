package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/ortiqov/contract_bot/internal/form"
	"github.com/ortiqov/contract_bot/internal/pdfapi"
	"go.uber.org/zap"
)

// HandleCallbackQuery разбирает нажатия inline кнопок и переводит
// их в команды машины переходов
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	msg := callback.Message.Message
	if msg == nil {
		answerCallback(ctx, b, callback.ID)
		return
	}
	chatID := msg.Chat.ID
	data := callback.Data

	h.logger.Info("Callback received",
		zap.Int64("chat_id", chatID),
		zap.String("data", data))

	session, ok := h.registry.Get(chatID)
	if !ok {
		answerCallbackAlert(ctx, b, callback.ID, "Сессия не найдена. Начните заново: /start")
		return
	}

	switch {
	case data == form.CmdSkip:
		// кнопка пропуска эквивалентна вводу синонима текстом
		prompt, err := h.machine.Skip(session)
		h.replyNew(ctx, b, callback.ID, chatID, prompt, err)

	case data == form.CmdAddItem:
		prompt, err := h.machine.AddItem(session)
		h.replyNew(ctx, b, callback.ID, chatID, prompt, err)

	case data == form.CmdMenu:
		prompt, err := h.machine.Menu(session)
		h.replyEdit(ctx, b, callback.ID, chatID, msg.ID, prompt, err)

	case data == form.CmdEditItems:
		prompt, err := h.machine.ItemList(session)
		h.replyEdit(ctx, b, callback.ID, chatID, msg.ID, prompt, err)

	case data == form.CmdEditBuyer:
		prompt, err := h.machine.BuyerFieldList(session)
		h.replyEdit(ctx, b, callback.ID, chatID, msg.ID, prompt, err)

	case data == form.CmdFinish:
		h.handleFinish(ctx, b, callback, session, chatID)

	case strings.HasPrefix(data, form.CmdPickItemField):
		index, field, err := parseItemField(strings.TrimPrefix(data, form.CmdPickItemField))
		if err != nil {
			answerCallback(ctx, b, callback.ID)
			return
		}
		prompt, err := h.machine.EditItemField(session, index, field)
		h.replyNew(ctx, b, callback.ID, chatID, prompt, err)

	case strings.HasPrefix(data, form.CmdPickItem):
		index, err := strconv.Atoi(strings.TrimPrefix(data, form.CmdPickItem))
		if err != nil {
			answerCallback(ctx, b, callback.ID)
			return
		}
		prompt, merr := h.machine.ItemFields(session, index)
		h.replyEdit(ctx, b, callback.ID, chatID, msg.ID, prompt, merr)

	case strings.HasPrefix(data, form.CmdPickBuyer):
		key := form.FieldKey(strings.TrimPrefix(data, form.CmdPickBuyer))
		prompt, err := h.machine.EditBuyerField(session, key)
		h.replyNew(ctx, b, callback.ID, chatID, prompt, err)

	case strings.HasPrefix(data, form.CmdDeleteItem):
		index, err := strconv.Atoi(strings.TrimPrefix(data, form.CmdDeleteItem))
		if err != nil {
			answerCallback(ctx, b, callback.ID)
			return
		}
		prompt, merr := h.machine.DeleteItem(session, index)
		h.replyEdit(ctx, b, callback.ID, chatID, msg.ID, prompt, merr)

	default:
		h.logger.Warn("Unknown callback data", zap.String("data", data))
		answerCallback(ctx, b, callback.ID)
	}
}

// replyNew отвечает на callback и шлёт запрос новым сообщением
func (h *Handlers) replyNew(ctx context.Context, b *bot.Bot, callbackID string, chatID int64, prompt form.Prompt, err error) {
	if err != nil {
		answerCallbackAlert(ctx, b, callbackID, errorMessage(err))
		return
	}
	answerCallback(ctx, b, callbackID)
	h.sendPrompt(ctx, b, chatID, prompt)
}

// replyEdit отвечает на callback и заменяет сообщение с кнопками
func (h *Handlers) replyEdit(ctx context.Context, b *bot.Bot, callbackID string, chatID int64, messageID int, prompt form.Prompt, err error) {
	if err != nil {
		answerCallbackAlert(ctx, b, callbackID, errorMessage(err))
		return
	}
	answerCallback(ctx, b, callbackID)
	h.editPrompt(ctx, b, chatID, messageID, prompt)
}

// handleFinish запускает финализацию: генерация PDF, доставка
// документа, запись в историю
func (h *Handlers) handleFinish(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, session *form.Session, chatID int64) {
	answerCallback(ctx, b, callback.ID)

	wait, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Генерирую PDF...",
	})
	if err != nil {
		h.logger.Error("Failed to send progress message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return
	}

	doc, err := h.contractService.Finalize(ctx, session)
	if err != nil {
		h.editWait(ctx, b, chatID, wait.ID, finishErrorText(err))
		return
	}

	h.editWait(ctx, b, chatID, wait.ID, "✔ Договор сформирован")

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: doc.FileName,
			Data:     bytes.NewReader(doc.Data),
		},
		Caption: fmt.Sprintf("Итого: %d сум", int64(doc.TotalSum)),
	})
	if err != nil {
		h.logger.Error("Failed to deliver document",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}

	// неудача записи в историю не отменяет доставку документа
	if doc.SaveErr != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⚠️ Договор сформирован, но не записан в историю.",
		})
	}

	h.registry.Remove(chatID)
}

// editWait заменяет текст прогресс-сообщения
func (h *Handlers) editWait(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string) {
	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
	if err != nil {
		h.logger.Warn("Failed to edit progress message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

// finishErrorText текст неудачной финализации. Сессия уже
// возвращена на этап просмотра, finish можно повторить.
func finishErrorText(err error) string {
	var apiErr *pdfapi.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("❌ API ERROR %d", apiErr.Status)
	}
	if ve, ok := form.AsValidation(err); ok {
		return ve.Message
	}
	if errors.Is(err, form.ErrFinalizeInProgress) {
		return "⏳ Договор уже формируется, подождите"
	}
	return "❌ Не удалось сформировать договор. Нажмите «Сформировать договор» ещё раз."
}

// parseItemField разбирает "<index>:<field>" из callback data
func parseItemField(raw string) (int, form.ItemField, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid item field callback: %q", raw)
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("parse item index: %w", err)
	}

	field := form.ItemField(parts[1])
	switch field {
	case form.ItemFieldName, form.ItemFieldQuantity, form.ItemFieldPrice:
		return index, field, nil
	default:
		return 0, "", fmt.Errorf("unknown item field: %q", parts[1])
	}
}
