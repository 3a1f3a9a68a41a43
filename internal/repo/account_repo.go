package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lectorium/backoffice/internal/domain"
)

// AccountRepo — хранилище OAuth-учёток аккаунтов провайдера.
//
// Кэша нет: каждый вызов перечитывает запись, мутация после refresh
// сразу видна всем читателям.
type AccountRepo struct {
	pool *pgxpool.Pool
}

// NewAccountRepo создаёт новый AccountRepo.
func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// GetByEmail возвращает учётку аккаунта.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
		SELECT email, access_token, refresh_token, token_expiry, client_id, client_secret
		FROM accounts
		WHERE email = $1
	`
	var acc domain.Account
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&acc.Email,
		&acc.AccessToken,
		&acc.RefreshToken,
		&acc.TokenExpiry,
		&acc.ClientID,
		&acc.ClientSecret,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &acc, nil
}

// UpdateTokens атомарно сохраняет новую пару токенов и срок жизни.
// Вызывается только после успешного ответа token-эндпоинта: при
// неудачном refresh запись остаётся нетронутой.
func (r *AccountRepo) UpdateTokens(ctx context.Context, email, accessToken, refreshToken string, tokenExpiry int64) error {
	query := `
		UPDATE accounts
		SET access_token = $2, refresh_token = $3, token_expiry = $4
		WHERE email = $1
	`
	result, err := r.pool.Exec(ctx, query, email, accessToken, refreshToken, tokenExpiry)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
