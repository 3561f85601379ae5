package application

import (
	"context"
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/finwise/ledger-api/internal/domain/entity"
	repo "github.com/finwise/ledger-api/internal/domain/repository"
)

// AccountService is the account registry. Balances are born zero and
// only the transaction ledger moves them afterwards.
type AccountService struct {
	Accounts repo.AccountRepository
	Logger   *logrus.Logger
}

func NewAccountService(accounts repo.AccountRepository, logger *logrus.Logger) *AccountService {
	return &AccountService{Accounts: accounts, Logger: logger}
}

// NormalizeCurrency upper-cases and validates an ISO 4217 code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if money.GetCurrency(code) == nil {
		return "", ErrInvalidCurrency
	}
	return code, nil
}

func (s *AccountService) Create(ctx context.Context, ownerID, name, currency string) (*entity.Account, error) {
	cur, err := NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	a := &entity.Account{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Name:     name,
		Currency: cur,
		Balance:  decimal.Zero,
	}
	if err := s.Accounts.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, ownerID, accountID string) (*entity.Account, error) {
	a, err := s.Accounts.GetForOwner(ctx, ownerID, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context, ownerID string) ([]entity.Account, error) {
	return s.Accounts.ListByOwner(ctx, ownerID)
}
