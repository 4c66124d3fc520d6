package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ortiqov/contract_bot/internal/form"
	"github.com/ortiqov/contract_bot/internal/model"
	"github.com/ortiqov/contract_bot/internal/pdfapi"
	"go.uber.org/zap"
)

// DocumentGenerator контракт сервиса генерации документов
type DocumentGenerator interface {
	Generate(ctx context.Context, payload *pdfapi.Payload) ([]byte, error)
}

// ContractStore контракт хранилища сводных записей
type ContractStore interface {
	Save(ctx context.Context, contract *model.Contract) error
	GetRecent(ctx context.Context, limit int) ([]*model.Contract, error)
}

// Document результат финализации. SaveErr не пустой, если запись
// в историю не удалась: документ при этом всё равно доставляется.
type Document struct {
	FileName string
	Data     []byte
	TotalSum float64
	SaveErr  error
}

type ContractService struct {
	machine   *form.Machine
	generator DocumentGenerator
	store     ContractStore
	logger    *zap.Logger
}

func NewContractService(
	machine *form.Machine,
	generator DocumentGenerator,
	store ContractStore,
	logger *zap.Logger,
) *ContractService {
	return &ContractService{
		machine:   machine,
		generator: generator,
		store:     store,
		logger:    logger,
	}
}

// Finalize формирует договор по сессии: валидация и снимок через
// машину, генерация PDF, запись в историю. Пока вызов не завершён,
// сессия не принимает событий; при любой неудаче генерации сессия
// возвращается на этап просмотра и finish можно повторить.
func (s *ContractService) Finalize(ctx context.Context, session *form.Session) (*Document, error) {
	snap, err := s.machine.BeginFinalize(session)
	if err != nil {
		return nil, err
	}

	payload := buildPayload(snap)

	pdf, err := s.generator.Generate(ctx, payload)
	if err != nil {
		s.logger.Error("Document generation failed",
			zap.Int64("chat_id", snap.ChatID),
			zap.Error(err))
		s.machine.CompleteFinalize(session, false)
		return nil, fmt.Errorf("generate document: %w", err)
	}

	total := form.Total(snap.Items)
	fileName := fmt.Sprintf("contract_%s.pdf", uuid.New().String())

	contract := &model.Contract{
		BuyerName: snap.BuyerFields[form.FieldBuyerName],
		Inn:       snap.BuyerFields[form.FieldInn],
		Phone:     snap.BuyerFields[form.FieldPhone],
		TotalSum:  total,
		FileURL:   fileName,
	}

	// неудача записи не откатывает уже сгенерированный документ
	saveErr := s.store.Save(ctx, contract)
	if saveErr != nil {
		s.logger.Error("Failed to persist contract summary",
			zap.Int64("chat_id", snap.ChatID),
			zap.Error(saveErr))
	}

	s.machine.CompleteFinalize(session, true)

	s.logger.Info("Contract finalized",
		zap.Int64("chat_id", snap.ChatID),
		zap.Int("items", len(snap.Items)),
		zap.Float64("total_sum", total))

	return &Document{
		FileName: fileName,
		Data:     pdf,
		TotalSum: total,
		SaveErr:  saveErr,
	}, nil
}

// History возвращает последние сформированные договоры
func (s *ContractService) History(ctx context.Context, limit int) ([]*model.Contract, error) {
	contracts, err := s.store.GetRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return contracts, nil
}

// buildPayload собирает запрос генерации из снимка сессии
func buildPayload(snap form.Snapshot) *pdfapi.Payload {
	return &pdfapi.Payload{
		AgreementNumber: "AUTO",
		BuyerName:       snap.BuyerFields[form.FieldBuyerName],
		BuyerInn:        snap.BuyerFields[form.FieldInn],
		BuyerAddress:    snap.BuyerFields[form.FieldAddress],
		BuyerPhone:      snap.BuyerFields[form.FieldPhone],
		BuyerAccount:    snap.BuyerFields[form.FieldAccount],
		BuyerBank:       snap.BuyerFields[form.FieldBank],
		BuyerMfo:        snap.BuyerFields[form.FieldMfo],
		BuyerDirector:   snap.BuyerFields[form.FieldDirector],
		Items:           snap.Items,
	}
}
