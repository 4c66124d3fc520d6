package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ortiqov/contract_bot/internal/model"
	"go.uber.org/zap"
)

type ContractRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewContractRepository(pool *pgxpool.Pool, logger *zap.Logger) *ContractRepository {
	return &ContractRepository{
		pool:   pool,
		logger: logger,
	}
}

// Save сохраняет сводную запись о сформированном договоре
func (r *ContractRepository) Save(ctx context.Context, contract *model.Contract) error {
	query := `
		INSERT INTO contracts (buyer_name, inn, phone, total_sum, file_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		contract.BuyerName,
		contract.Inn,
		contract.Phone,
		contract.TotalSum,
		contract.FileURL,
	).Scan(&contract.ID, &contract.CreatedAt)

	if err != nil {
		r.logger.Error("Failed to insert contract",
			zap.String("buyer_name", contract.BuyerName),
			zap.Error(err))
		return fmt.Errorf("save contract: %w", err)
	}

	r.logger.Info("Contract saved",
		zap.Int64("contract_id", contract.ID),
		zap.String("buyer_name", contract.BuyerName),
		zap.Float64("total_sum", contract.TotalSum))

	return nil
}

// GetRecent возвращает последние сформированные договоры
func (r *ContractRepository) GetRecent(ctx context.Context, limit int) ([]*model.Contract, error) {
	query := `
		SELECT id, buyer_name, inn, phone, total_sum, file_url, created_at
		FROM contracts
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*model.Contract
	for rows.Next() {
		var contract model.Contract
		err := rows.Scan(
			&contract.ID,
			&contract.BuyerName,
			&contract.Inn,
			&contract.Phone,
			&contract.TotalSum,
			&contract.FileURL,
			&contract.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, &contract)
	}

	return contracts, nil
}
