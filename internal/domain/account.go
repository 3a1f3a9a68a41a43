package domain

import "time"

// Account — учётные данные OAuth для одного аккаунта провайдера.
//
// Запись мутирует при каждом refresh и принадлежит исключительно
// хранилищу токенов. В нормальной работе аккаунты не удаляются.
type Account struct {
	// Email — уникальный идентификатор аккаунта.
	Email string `json:"email"`

	// AccessToken — текущий bearer-токен.
	AccessToken string `json:"access_token"`

	// RefreshToken — токен для обновления пары.
	RefreshToken string `json:"refresh_token"`

	// TokenExpiry — момент истечения access-токена (epoch seconds).
	TokenExpiry int64 `json:"token_expiry"`

	// ClientID/ClientSecret — параметры Basic auth для token-эндпоинта.
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// TokenExpired возвращает true, если access-токен истёк к моменту now.
// Чистое сравнение, без обращения к сети.
func (a *Account) TokenExpired(now time.Time) bool {
	return now.Unix() >= a.TokenExpiry
}
