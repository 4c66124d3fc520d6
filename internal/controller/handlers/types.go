package handlers

import (
	"github.com/ortiqov/contract_bot/internal/form"
	"github.com/ortiqov/contract_bot/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки обновлений
type Handlers struct {
	registry        *form.Registry
	machine         *form.Machine
	contractService *service.ContractService
	logger          *zap.Logger
}

// NewHandlers создаёт новый обработчик
func NewHandlers(
	registry *form.Registry,
	machine *form.Machine,
	contractService *service.ContractService,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		registry:        registry,
		machine:         machine,
		contractService: contractService,
		logger:          logger,
	}
}
