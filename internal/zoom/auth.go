package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
	"github.com/lectorium/backoffice/internal/telemetry"
)

// defaultTokenLifetime — срок жизни токена, если провайдер не указал свой.
const defaultTokenLifetime = 3600

// AccountStore — хранилище учёток, которыми владеет TokenSource.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdateTokens(ctx context.Context, email, accessToken, refreshToken string, tokenExpiry int64) error
}

// TokenSource выдаёт актуальный bearer-токен аккаунта и обновляет
// истёкший через OAuth token-эндпоинт.
//
// Кэша нет: каждый вызов перечитывает учётку из хранилища, поэтому
// refresh из соседнего процесса виден сразу. Refresh на один аккаунт
// single-flight: провайдер ротирует refresh-токен, и два конкурентных
// обмена одной пары означают invalid_grant для проигравшего.
type TokenSource struct {
	store    AccountStore
	client   *http.Client
	tokenURL string
	now      func() time.Time

	mu         sync.Mutex
	refreshing map[string]*sync.Mutex
}

// NewTokenSource создаёт TokenSource.
func NewTokenSource(store AccountStore, tokenURL string, client *http.Client) *TokenSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenSource{
		store:      store,
		client:     client,
		tokenURL:   tokenURL,
		now:        time.Now,
		refreshing: make(map[string]*sync.Mutex),
	}
}

// Token возвращает действующий access-токен аккаунта,
// обновляя его при истечении.
func (ts *TokenSource) Token(ctx context.Context, email string) (string, error) {
	acc, err := ts.store.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("load account %s: %w", email, err)
	}

	if !acc.TokenExpired(ts.now()) {
		return acc.AccessToken, nil
	}

	lock := ts.accountLock(email)
	lock.Lock()
	defer lock.Unlock()

	// Пока ждали очередь на refresh, сосед мог уже обменять пару —
	// перечитываем и пользуемся его результатом.
	acc, err = ts.store.GetByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("load account %s: %w", email, err)
	}
	if !acc.TokenExpired(ts.now()) {
		return acc.AccessToken, nil
	}

	return ts.Refresh(ctx, acc)
}

// accountLock возвращает refresh-мьютекс аккаунта.
func (ts *TokenSource) accountLock(email string) *sync.Mutex {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	lock, ok := ts.refreshing[email]
	if !ok {
		lock = &sync.Mutex{}
		ts.refreshing[email] = lock
	}
	return lock
}

// Refresh обменивает refresh-токен на новую пару через token-эндпоинт
// с Basic auth (client_id, client_secret).
//
// При успехе новая пара и срок жизни атомарно персистятся. При не-2xx
// ответе возвращается ErrAuthRefreshFailed, а сохранённые учётные
// данные не меняются: сбой провайдера не портит локальное состояние.
func (ts *TokenSource) Refresh(ctx context.Context, acc *domain.Account) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", acc.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrAuthRefreshFailed, err)
	}
	req.SetBasicAuth(acc.ClientID, acc.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		telemetry.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: %v", ErrAuthRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		telemetry.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: status %d", ErrAuthRefreshFailed, resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		telemetry.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: decode response: %v", ErrAuthRefreshFailed, err)
	}

	lifetime := tokens.ExpiresIn
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	expiry := ts.now().Unix() + lifetime

	if err := ts.store.UpdateTokens(ctx, acc.Email, tokens.AccessToken, tokens.RefreshToken, expiry); err != nil {
		return "", fmt.Errorf("persist refreshed tokens: %w", err)
	}

	telemetry.TokenRefreshes.WithLabelValues("success").Inc()
	return tokens.AccessToken, nil
}
