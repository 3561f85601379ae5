package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finwise/ledger-api/internal/application"
	"github.com/finwise/ledger-api/internal/infrastructure/memory"
	"github.com/finwise/ledger-api/internal/interface/middleware"
	"github.com/finwise/ledger-api/pkg/helpers"
	"github.com/finwise/ledger-api/pkg/validation"
)

// newTestAPI wires the full route surface against in-memory
// repositories. No Redis, Elasticsearch or GCS: the middleware and
// services tolerate their absence.
func newTestAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	store := memory.NewStore()
	jwtm := helpers.NewJWTManager("test-access", "test-refresh", 15*time.Minute, 24*time.Hour)

	authSvc := application.NewAuthService(memory.NewUserRepository(store), jwtm, nil, nil, nil, nil, "", "finwise-test")
	acctSvc := application.NewAccountService(memory.NewAccountRepository(store), nil)
	txSvc := application.NewTransactionService(memory.NewTransactionRepository(store), nil, nil, "")

	authH := NewAuthHandler(authSvc, nil, "", false)
	acctH := NewAccountHandler(acctSvc, nil)
	txH := NewTransactionHandler(txSvc, nil)
	userH := NewUserHandler(authSvc, nil)

	e := gin.New()
	v1 := e.Group("/api/v1")
	v1.POST("/auth/sign-up", authH.SignUp)
	v1.POST("/auth/sign-in", authH.SignIn)
	v1.POST("/auth/refresh", authH.Refresh)

	auth := v1.Group("/")
	auth.Use(middleware.Auth(nil, jwtm))
	{
		auth.POST("/auth/sign-out", authH.SignOut)
		auth.GET("/user/profile", userH.GetProfile)
		auth.PUT("/user/profile", userH.UpdateProfile)
		auth.POST("/accounts", acctH.Create)
		auth.GET("/accounts", acctH.List)
		auth.GET("/accounts/:id", acctH.Get)
		auth.POST("/accounts/:id/transactions", txH.Post)
		auth.GET("/accounts/:id/transactions", txH.List)
		auth.POST("/transactions/:id/reverse", txH.Reverse)
	}
	return e
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   map[string]any  `json:"error"`
}

func do(t *testing.T, e *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func signUp(t *testing.T, e *gin.Engine, email string) string {
	t.Helper()
	w, env := do(t, e, http.MethodPost, "/api/v1/auth/sign-up", "", gin.H{
		"email":        email,
		"password":     "hunter22",
		"display_name": "Test User",
	})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestSignUpValidation(t *testing.T) {
	e := newTestAPI(t)

	cases := []struct {
		name string
		body gin.H
	}{
		{"bad email", gin.H{"email": "nope", "password": "hunter22", "display_name": "Nope"}},
		{"short password", gin.H{"email": "a@b.com", "password": "abc", "display_name": "Nope"}},
		{"missing name", gin.H{"email": "a@b.com", "password": "hunter22"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := do(t, e, http.MethodPost, "/api/v1/auth/sign-up", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestSignUpDuplicateEmailConflicts(t *testing.T) {
	e := newTestAPI(t)
	signUp(t, e, "dup@example.com")

	w, env := do(t, e, http.MethodPost, "/api/v1/auth/sign-up", "", gin.H{
		"email":        "DUP@example.com",
		"password":     "hunter22",
		"display_name": "Dup",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_email", env.Error["kind"])
}

func TestSignInWrongPassword(t *testing.T) {
	e := newTestAPI(t)
	signUp(t, e, "carol@example.com")

	w, env := do(t, e, http.MethodPost, "/api/v1/auth/sign-in", "", gin.H{
		"email":    "carol@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", env.Error["kind"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestAPI(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/accounts"},
		{http.MethodPost, "/api/v1/accounts"},
		{http.MethodGet, "/api/v1/user/profile"},
		{http.MethodPost, "/api/v1/accounts/x/transactions"},
		{http.MethodPost, "/api/v1/transactions/x/reverse"},
	} {
		w, _ := do(t, e, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}

	w, _ := do(t, e, http.MethodGet, "/api/v1/accounts", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "garbage token")
}

func TestLedgerFlow(t *testing.T) {
	e := newTestAPI(t)
	token := signUp(t, e, "alice@example.com")

	// create a USD account
	w, env := do(t, e, http.MethodPost, "/api/v1/accounts", token, gin.H{"name": "Checking", "currency": "USD"})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	var acct struct {
		ID      string `json:"id"`
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &acct))
	assert.Equal(t, "0", acct.Balance)

	// post a credit and a debit
	w, _ = do(t, e, http.MethodPost, "/api/v1/accounts/"+acct.ID+"/transactions", token,
		gin.H{"amount": "125.50", "category": "salary", "description": "August payroll"})
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	w, env = do(t, e, http.MethodPost, "/api/v1/accounts/"+acct.ID+"/transactions", token,
		gin.H{"amount": "-40.00", "category": "groceries"})
	require.Equal(t, http.StatusCreated, w.Code)
	var debit struct {
		ID     string `json:"id"`
		Amount string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &debit))
	assert.Equal(t, "-40", debit.Amount)

	// balance reflects both postings
	w, env = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "85.5", got.Balance)

	// listing: most recent first
	w, env = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID+"/transactions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []struct {
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	assert.Equal(t, "groceries", items[0].Category)
	assert.Equal(t, "salary", items[1].Category)
	assert.Equal(t, float64(2), env.Meta["count"])

	// reverse the debit, balance goes back up
	w, env = do(t, e, http.MethodPost, "/api/v1/transactions/"+debit.ID+"/reverse", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	var rev struct {
		Amount     string `json:"amount"`
		ReversalOf string `json:"reversal_of"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rev))
	assert.Equal(t, "40", rev.Amount)
	assert.Equal(t, debit.ID, rev.ReversalOf)

	w, env = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "125.5", got.Balance)

	// a second reverse is a conflict
	w, env = do(t, e, http.MethodPost, "/api/v1/transactions/"+debit.ID+"/reverse", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_reversed", env.Error["kind"])
}

func TestTransactionValidation(t *testing.T) {
	e := newTestAPI(t)
	token := signUp(t, e, "bob@example.com")

	w, env := do(t, e, http.MethodPost, "/api/v1/accounts", token, gin.H{"name": "Main", "currency": "EUR"})
	require.Equal(t, http.StatusCreated, w.Code)
	var acct struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &acct))

	// zero amount
	w, env = do(t, e, http.MethodPost, "/api/v1/accounts/"+acct.ID+"/transactions", token,
		gin.H{"amount": "0", "category": "noop"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_amount", env.Error["kind"])

	// sub-cent amount
	w, env = do(t, e, http.MethodPost, "/api/v1/accounts/"+acct.ID+"/transactions", token,
		gin.H{"amount": "0.004", "category": "dust"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_amount", env.Error["kind"])

	// missing category
	w, _ = do(t, e, http.MethodPost, "/api/v1/accounts/"+acct.ID+"/transactions", token,
		gin.H{"amount": "10.00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown currency on account creation
	w, env = do(t, e, http.MethodPost, "/api/v1/accounts", token, gin.H{"name": "Odd", "currency": "QQQ"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_currency", env.Error["kind"])

	// malformed cursor on listing
	w, env = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID+"/transactions?cursor=%21%21", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_cursor", env.Error["kind"])

	// bad limit
	w, _ = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID+"/transactions?limit=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// bad from timestamp
	w, _ = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID+"/transactions?from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOwnershipIsolationOverHTTP(t *testing.T) {
	e := newTestAPI(t)
	tokenA := signUp(t, e, "owner-a@example.com")
	tokenB := signUp(t, e, "owner-b@example.com")

	w, env := do(t, e, http.MethodPost, "/api/v1/accounts", tokenA, gin.H{"name": "A's", "currency": "USD"})
	require.Equal(t, http.StatusCreated, w.Code)
	var acct struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &acct))

	w, env = do(t, e, http.MethodPost, "/api/v1/accounts/"+acct.ID+"/transactions", tokenA,
		gin.H{"amount": "5.00", "category": "seed"})
	require.Equal(t, http.StatusCreated, w.Code)
	var tx struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &tx))

	// B sees A's resources as missing, never as forbidden
	w, env = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error["kind"])

	w, _ = do(t, e, http.MethodPost, "/api/v1/accounts/"+acct.ID+"/transactions", tokenB,
		gin.H{"amount": "5.00", "category": "intrusion"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, e, http.MethodPost, "/api/v1/transactions/"+tx.ID+"/reverse", tokenB, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// B's account list stays empty
	w, env = do(t, e, http.MethodGet, "/api/v1/accounts", tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var accounts []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &accounts))
	assert.Empty(t, accounts)
}

func TestProfileRoundTrip(t *testing.T) {
	e := newTestAPI(t)
	token := signUp(t, e, "profile@example.com")

	w, env := do(t, e, http.MethodGet, "/api/v1/user/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "profile@example.com", profile.Email)
	assert.Equal(t, "Test User", profile.Name)

	w, env = do(t, e, http.MethodPut, "/api/v1/user/profile", token, gin.H{"name": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "Renamed", profile.Name)
}

func TestListPaginationOverHTTP(t *testing.T) {
	e := newTestAPI(t)
	token := signUp(t, e, "pager@example.com")

	w, env := do(t, e, http.MethodPost, "/api/v1/accounts", token, gin.H{"name": "Paged", "currency": "USD"})
	require.Equal(t, http.StatusCreated, w.Code)
	var acct struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &acct))

	base := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		w, _ = do(t, e, http.MethodPost, "/api/v1/accounts/"+acct.ID+"/transactions", token, gin.H{
			"amount":      "1.00",
			"category":    fmt.Sprintf("page-%d", i),
			"occurred_at": base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID+"/transactions?limit=3", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []struct {
		Category string `json:"category"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "page-6", items[0].Category)
	cursor, ok := env.Meta["next_cursor"].(string)
	require.True(t, ok, "first page carries a cursor")

	w, env = do(t, e, http.MethodGet, "/api/v1/accounts/"+acct.ID+"/transactions?limit=3&cursor="+cursor, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, "page-3", items[0].Category)
}
