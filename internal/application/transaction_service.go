package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/finwise/ledger-api/internal/domain/entity"
	repo "github.com/finwise/ledger-api/internal/domain/repository"
)

// maxAmount bounds a single posting at 10^12 in absolute value;
// anything beyond that is treated as malformed input rather than money.
var maxAmount = decimal.New(1, 12)

// TransactionService is the ledger's single mutating entry point.
// Posting and reversal write the transaction row and the balance delta
// as one atomic unit; write conflicts are retried a bounded number of
// times with backoff before surfacing ErrConflict to the caller.
type TransactionService struct {
	Transactions repo.TransactionRepository
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESIndex      string

	RetryMax     int
	RetryBackoff time.Duration
}

func NewTransactionService(transactions repo.TransactionRepository, logger *logrus.Logger, es *elasticsearch.Client, esIndex string) *TransactionService {
	return &TransactionService{
		Transactions: transactions,
		Logger:       logger,
		ES:           es,
		ESIndex:      esIndex,
		RetryMax:     3,
		RetryBackoff: 25 * time.Millisecond,
	}
}

type PostInput struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	OccurredAt  time.Time
}

func validAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return ErrInvalidAmount
	}
	if amount.Abs().GreaterThan(maxAmount) {
		return ErrInvalidAmount
	}
	// storage is NUMERIC(18,2); sub-cent precision would be silently
	// rounded there and diverge from what the caller was acknowledged
	if !amount.Equal(amount.Truncate(2)) {
		return ErrInvalidAmount
	}
	return nil
}

func (s *TransactionService) Post(ctx context.Context, ownerID, accountID string, in PostInput) (*entity.Transaction, error) {
	if err := validAmount(in.Amount); err != nil {
		return nil, err
	}
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	t := &entity.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		OwnerID:     ownerID,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		OccurredAt:  occurred,
	}
	if err := s.withRetry(ctx, func() error {
		return s.Transactions.Post(ctx, t)
	}); err != nil {
		return nil, err
	}

	s.index(ctx, t)
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, ownerID, transactionID string) (*entity.Transaction, error) {
	t, err := s.Transactions.GetForOwner(ctx, ownerID, transactionID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return t, nil
}

func (s *TransactionService) List(ctx context.Context, ownerID, accountID string, f repo.ListFilter) ([]entity.Transaction, string, error) {
	items, next, err := s.Transactions.List(ctx, ownerID, accountID, f)
	if err != nil {
		if errors.Is(err, repo.ErrBadCursor) {
			return nil, "", err
		}
		return nil, "", mapRepoErr(err)
	}
	return items, next, nil
}

// Reverse posts the offsetting transaction for an earlier one. The
// original row is never touched.
func (s *TransactionService) Reverse(ctx context.Context, ownerID, transactionID string) (*entity.Transaction, error) {
	var rev *entity.Transaction
	err := s.withRetry(ctx, func() error {
		var rErr error
		rev, rErr = s.Transactions.Reverse(ctx, ownerID, transactionID, uuid.NewString())
		return rErr
	})
	if err != nil {
		return nil, err
	}
	s.index(ctx, rev)
	return rev, nil
}

// withRetry re-runs fn on write conflicts only. Validation and
// not-found failures are never retried.
func (s *TransactionService) withRetry(ctx context.Context, fn func() error) error {
	attempts := s.RetryMax
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.RetryBackoff << uint(attempt-1)):
			}
		}
		err = fn()
		if err == nil || !errors.Is(err, repo.ErrConflict) {
			return mapRepoErr(err)
		}
		if s.Logger != nil {
			s.Logger.WithField("attempt", attempt+1).Debug("posting conflict, retrying")
		}
	}
	return ErrConflict
}

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrAlreadyReversed):
		return ErrAlreadyReversed
	case errors.Is(err, repo.ErrConflict):
		return ErrConflict
	}
	return err
}

// index mirrors the transaction into Elasticsearch for the search
// endpoint. Best effort: a failed index never fails the posting.
func (s *TransactionService) index(ctx context.Context, t *entity.Transaction) {
	if s.ES == nil || s.ESIndex == "" {
		return
	}
	doc := map[string]any{
		"id":          t.ID,
		"account_id":  t.AccountID,
		"owner_id":    t.OwnerID,
		"amount":      t.Amount.String(),
		"category":    t.Category,
		"description": t.Description,
		"occurred_at": t.OccurredAt.Format(time.RFC3339Nano),
		"created_at":  t.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: t.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("transaction_id", t.ID).Warn("es index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("transaction_id", t.ID).Warn("es index response error")
	}
}

// Search performs a multi_match over category and description, scoped
// to the owner.
func (s *TransactionService) Search(ctx context.Context, ownerID, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"category^2", "description"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"owner_id": ownerID},
				},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.ESIndex),
		s.ES.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
