package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ElizavetaP/bankapp/internal/accounts/repository"
	"github.com/ElizavetaP/bankapp/shared/models"
)

var ErrAccountExists = errors.New("account already exists for this currency")

// AccountService manages account CRUD. Reads go through the Redis balance
// cache; the cache is invalidated by the saga executor after every balance
// mutation.
type AccountService struct {
	accounts *repository.AccountRepository
	users    *repository.UserRepository
	cache    *repository.BalanceCache
}

func NewAccountService(
	accounts *repository.AccountRepository,
	users *repository.UserRepository,
	cache *repository.BalanceCache,
) *AccountService {
	return &AccountService{accounts: accounts, users: users, cache: cache}
}

// CreateAccount opens a zero-balance account in the given currency, at most
// one per currency per user.
func (s *AccountService) CreateAccount(ctx context.Context, login, currency string) (*models.Account, error) {
	if !models.IsSupportedCurrency(currency) {
		return nil, fmt.Errorf("unsupported currency: %s", currency)
	}
	if _, err := s.users.GetByLogin(ctx, login); err != nil {
		return nil, err
	}
	exists, err := s.accounts.ExistsByLoginAndCurrency(ctx, login, currency)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAccountExists
	}

	now := time.Now().UTC()
	account := &models.Account{
		UserLogin: login,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, login)
	log.Printf("Account created: login=%s, currency=%s", login, currency)
	return account, nil
}

// ListAccounts returns the user's balances, served from the cache when warm.
func (s *AccountService) ListAccounts(ctx context.Context, login string) ([]models.AccountView, error) {
	if views, ok := s.cache.Get(ctx, login); ok {
		return views, nil
	}
	if _, err := s.users.GetByLogin(ctx, login); err != nil {
		return nil, err
	}
	accounts, err := s.accounts.ListByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	views := make([]models.AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, models.AccountView{Currency: a.Currency, Balance: a.Balance})
	}
	s.cache.Set(ctx, login, views)
	return views, nil
}
