package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ElizavetaP/bankapp/internal/accounts/service"
	"github.com/ElizavetaP/bankapp/shared/models"
)

// ---- fakes ----

type fakeUserManager struct {
	user    *models.User
	err     error
	authErr error
}

func (f *fakeUserManager) Register(ctx context.Context, req service.RegisterRequest) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeUserManager) GetUser(ctx context.Context, login string) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeUserManager) UpdateUser(ctx context.Context, login string, req service.UpdateUserRequest) (*models.User, error) {
	return f.user, f.err
}

func (f *fakeUserManager) ChangePassword(ctx context.Context, login, oldPassword, newPassword string) error {
	return f.err
}

func (f *fakeUserManager) Authenticate(ctx context.Context, login, password string) error {
	return f.authErr
}

type fakeAccountManager struct {
	account *models.Account
	views   []models.AccountView
	err     error
}

func (f *fakeAccountManager) CreateAccount(ctx context.Context, login, currency string) (*models.Account, error) {
	return f.account, f.err
}

func (f *fakeAccountManager) ListAccounts(ctx context.Context, login string) ([]models.AccountView, error) {
	return f.views, f.err
}

var testSecret = []byte("test-secret")

// newRouter mirrors the production route layout with a stub auth layer for
// the protected endpoints.
func newRouter(users *fakeUserManager, accounts *fakeAccountManager, login string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	uh := NewUserHandler(users, testSecret)
	ah := NewAccountHandler(accounts)

	r := gin.New()
	r.POST("/api/users", uh.Register)
	r.POST("/api/users/login", uh.Login)

	authed := r.Group("/", func(c *gin.Context) { c.Set("login", login) })
	authed.GET("/api/users/:login", uh.GetUser)
	authed.PUT("/api/users/:login", uh.UpdateUser)
	authed.POST("/api/users/:login/password", uh.ChangePassword)
	authed.POST("/api/accounts", ah.CreateAccount)
	authed.GET("/api/accounts", ah.ListAccounts)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerBody() RegisterUserRequest {
	return RegisterUserRequest{
		Login:     "alice",
		Password:  "secret123",
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     "alice@example.com",
		BirthDate: "1990-05-20",
	}
}

// ---- user tests ----

func TestRegisterCreatesUser(t *testing.T) {
	users := &fakeUserManager{user: &models.User{
		Login:     "alice",
		FirstName: "Alice",
		BirthDate: time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
	}}
	r := newRouter(users, &fakeAccountManager{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/users", registerBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"login":"alice"`)) {
		t.Errorf("response missing user: %s", w.Body.String())
	}
}

func TestRegisterConflictOnExistingLogin(t *testing.T) {
	users := &fakeUserManager{err: service.ErrUserExists}
	r := newRouter(users, &fakeAccountManager{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/users", registerBody())
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestRegisterRejectsBadBirthDate(t *testing.T) {
	r := newRouter(&fakeUserManager{}, &fakeAccountManager{}, "")

	body := registerBody()
	body.BirthDate = "20.05.1990"
	w := doJSON(t, r, http.MethodPost, "/api/users", body)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	r := newRouter(&fakeUserManager{}, &fakeAccountManager{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/users/login", LoginRequest{
		Login:    "alice",
		Password: "secret123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["token"] == "" {
		t.Error("expected a token in the response")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users := &fakeUserManager{authErr: service.ErrInvalidCredentials}
	r := newRouter(users, &fakeAccountManager{}, "")

	w := doJSON(t, r, http.MethodPost, "/api/users/login", LoginRequest{
		Login:    "alice",
		Password: "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestGetUserRejectsForeignProfile(t *testing.T) {
	r := newRouter(&fakeUserManager{}, &fakeAccountManager{}, "alice")

	w := doJSON(t, r, http.MethodGet, "/api/users/bob", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestChangePasswordNoContent(t *testing.T) {
	r := newRouter(&fakeUserManager{}, &fakeAccountManager{}, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/users/alice/password", ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "evenmoresecret",
	})
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
}

// ---- account tests ----

func TestCreateAccountReturnsCreated(t *testing.T) {
	accounts := &fakeAccountManager{account: &models.Account{
		ID:       1,
		Currency: "USD",
		Balance:  decimal.Zero,
	}}
	r := newRouter(&fakeUserManager{}, accounts, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/accounts", CreateAccountRequest{Currency: "USD"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"currency":"USD"`)) {
		t.Errorf("response missing account: %s", w.Body.String())
	}
}

func TestCreateAccountConflictOnDuplicateCurrency(t *testing.T) {
	accounts := &fakeAccountManager{err: service.ErrAccountExists}
	r := newRouter(&fakeUserManager{}, accounts, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/accounts", CreateAccountRequest{Currency: "USD"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestCreateAccountValidatesCurrencyLength(t *testing.T) {
	r := newRouter(&fakeUserManager{}, &fakeAccountManager{}, "alice")

	w := doJSON(t, r, http.MethodPost, "/api/accounts", CreateAccountRequest{Currency: "USDT"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestListAccountsReturnsViews(t *testing.T) {
	accounts := &fakeAccountManager{views: []models.AccountView{
		{Currency: "EUR", Balance: decimal.RequireFromString("12.50")},
		{Currency: "USD", Balance: decimal.RequireFromString("100")},
	}}
	r := newRouter(&fakeUserManager{}, accounts, "alice")

	w := doJSON(t, r, http.MethodGet, "/api/accounts", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp ListAccountsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(resp.Accounts))
	}
	if resp.Accounts[0].Currency != "EUR" {
		t.Errorf("unexpected first account: %+v", resp.Accounts[0])
	}
}
