package zoom

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
)

// fakeAccountStore — потокобезопасное in-memory хранилище учёток.
type fakeAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	updates  int
}

func newFakeAccountStore(accs ...*domain.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: make(map[string]*domain.Account)}
	for _, a := range accs {
		s.accounts[a.Email] = a
	}
	return s
}

func (s *fakeAccountStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *acc
	return &copied, nil
}

func (s *fakeAccountStore) UpdateTokens(_ context.Context, email, accessToken, refreshToken string, tokenExpiry int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return errors.New("not found")
	}
	acc.AccessToken = accessToken
	acc.RefreshToken = refreshToken
	acc.TokenExpiry = tokenExpiry
	s.updates++
	return nil
}

func testAccount(expiry int64) *domain.Account {
	return &domain.Account{
		Email:        "host@example.com",
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		TokenExpiry:  expiry,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
}

func TestTokenSource_ValidTokenNoRefresh(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	store := newFakeAccountStore(testAccount(time.Now().Unix() + 600))
	ts := NewTokenSource(store, server.URL, server.Client())

	token, err := ts.Token(context.Background(), "host@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "old-access" {
		t.Errorf("expected cached token, got %q", token)
	}
	if called {
		t.Error("token endpoint must not be called for a valid token")
	}
}

func TestTokenSource_RefreshPersistsNewPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("expected basic auth with client credentials, got %q/%q", user, pass)
		}
		if got := r.FormValue("grant_type"); got != "refresh_token" {
			t.Errorf("expected grant_type=refresh_token, got %q", got)
		}
		if got := r.FormValue("refresh_token"); got != "old-refresh" {
			t.Errorf("expected stored refresh token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":1800}`))
	}))
	defer server.Close()

	store := newFakeAccountStore(testAccount(time.Now().Unix() - 10))
	ts := NewTokenSource(store, server.URL, server.Client())

	before := time.Now().Unix()
	token, err := ts.Token(context.Background(), "host@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "new-access" {
		t.Errorf("expected new access token, got %q", token)
	}

	acc, _ := store.GetByEmail(context.Background(), "host@example.com")
	if acc.AccessToken != "new-access" || acc.RefreshToken != "new-refresh" {
		t.Errorf("new pair not persisted: %+v", acc)
	}
	if acc.TokenExpiry < before+1800 || acc.TokenExpiry > time.Now().Unix()+1800 {
		t.Errorf("unexpected expiry: %d", acc.TokenExpiry)
	}
}

func TestTokenSource_DefaultLifetime(t *testing.T) {
	// Провайдер не указал expires_in — срок жизни по умолчанию 3600с.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh"}`))
	}))
	defer server.Close()

	store := newFakeAccountStore(testAccount(0))
	ts := NewTokenSource(store, server.URL, server.Client())

	before := time.Now().Unix()
	if _, err := ts.Token(context.Background(), "host@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc, _ := store.GetByEmail(context.Background(), "host@example.com")
	if acc.TokenExpiry < before+3600 {
		t.Errorf("expected default 3600s lifetime, got expiry %d", acc.TokenExpiry)
	}
}

func TestTokenSource_RefreshFailureLeavesStoreUntouched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := newFakeAccountStore(testAccount(0))
	ts := NewTokenSource(store, server.URL, server.Client())

	_, err := ts.Token(context.Background(), "host@example.com")
	if !errors.Is(err, ErrAuthRefreshFailed) {
		t.Fatalf("expected ErrAuthRefreshFailed, got %v", err)
	}

	acc, _ := store.GetByEmail(context.Background(), "host@example.com")
	if acc.AccessToken != "old-access" || acc.RefreshToken != "old-refresh" {
		t.Errorf("credentials must stay untouched on failed refresh: %+v", acc)
	}
	if store.updates != 0 {
		t.Errorf("expected no store writes, got %d", store.updates)
	}
}

func TestTokenSource_ConcurrentRefreshSingleFlight(t *testing.T) {
	// Провайдер ротирует refresh-токен: повторный обмен уже
	// использованной пары — invalid_grant. Конкурентные вызовы Token
	// для одного аккаунта должны свестись к одному обмену.
	var mu sync.Mutex
	exchanges := 0
	currentRefresh := "old-refresh"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if got := r.FormValue("refresh_token"); got != currentRefresh {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		exchanges++
		currentRefresh = "new-refresh"
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":1800}`))
	}))
	defer server.Close()

	store := newFakeAccountStore(testAccount(time.Now().Unix() - 10))
	ts := NewTokenSource(store, server.URL, server.Client())

	const callers = 8
	tokens := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = ts.Token(context.Background(), "host@example.com")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if tokens[i] != "new-access" {
			t.Errorf("caller %d got %q, want new-access", i, tokens[i])
		}
	}
	if exchanges != 1 {
		t.Errorf("token endpoint exchanges = %d, want 1", exchanges)
	}
	if store.updates != 1 {
		t.Errorf("store updates = %d, want 1", store.updates)
	}
}
