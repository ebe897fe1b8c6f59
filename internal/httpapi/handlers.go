package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finbook/ledger/internal/domain"
)

// Handler exposes the ledger services over JSON/HTTP.
type Handler struct {
	Accounts *domain.AccountService
	Ledger   *domain.LedgerService
	Stats    *domain.StatisticsService
	Query    *domain.QueryService
}

// NewHandler creates a Handler.
func NewHandler(accounts *domain.AccountService, ledger *domain.LedgerService, stats *domain.StatisticsService, query *domain.QueryService) *Handler {
	return &Handler{Accounts: accounts, Ledger: ledger, Stats: stats, Query: query}
}

type transactionJSON struct {
	ID              uuid.UUID       `json:"id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Category        string          `json:"category,omitempty"`
	Merchant        string          `json:"merchant,omitempty"`
	Date            time.Time       `json:"date"`
	Status          string          `json:"status"`
	ReferenceNumber string          `json:"referenceNumber"`
	BalanceAfter    decimal.Decimal `json:"balanceAfter"`
	FromAccountID   *uuid.UUID      `json:"fromAccountId,omitempty"`
	ToAccountID     *uuid.UUID      `json:"toAccountId,omitempty"`
}

type accountJSON struct {
	ID            uuid.UUID         `json:"id"`
	AccountNumber string            `json:"accountNumber"`
	AccountType   string            `json:"accountType"`
	AccountName   string            `json:"accountName"`
	Balance       decimal.Decimal   `json:"balance"`
	Currency      string            `json:"currency"`
	CreditLimit   decimal.Decimal   `json:"creditLimit"`
	InterestRate  decimal.Decimal   `json:"interestRate"`
	Transactions  []transactionJSON `json:"transactions,omitempty"`
}

func toTransactionJSON(t *domain.Transaction) transactionJSON {
	return transactionJSON{
		ID:              t.ID,
		Type:            string(t.Type),
		Amount:          t.Amount,
		Description:     t.Description,
		Category:        t.Category,
		Merchant:        t.Merchant,
		Date:            t.TransactionDate,
		Status:          string(t.Status),
		ReferenceNumber: t.ReferenceNumber,
		BalanceAfter:    t.BalanceAfter,
		FromAccountID:   t.FromAccountID,
		ToAccountID:     t.ToAccountID,
	}
}

func toAccountJSON(a *domain.Account, txns []*domain.Transaction) accountJSON {
	out := accountJSON{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		AccountType:   string(a.Type),
		AccountName:   a.Name,
		Balance:       a.Balance,
		Currency:      a.Currency,
		CreditLimit:   a.CreditLimit,
		InterestRate:  a.InterestRate,
	}
	for _, txn := range txns {
		out.Transactions = append(out.Transactions, toTransactionJSON(txn))
	}
	return out
}

// ListAccounts returns the owner's active accounts with a few recent
// transactions each.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())

	accounts, err := h.Accounts.List(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]accountJSON, 0, len(accounts))
	for _, account := range accounts {
		recent, err := h.Accounts.RecentTransactions(r.Context(), account.ID, ownerID, 5)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out = append(out, toAccountJSON(account, recent))
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

// GetAccount returns one account with its recent history.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	account, err := h.Accounts.Get(r.Context(), accountID, ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	txns, err := h.Accounts.RecentTransactions(r.Context(), accountID, ownerID, 50)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountJSON(account, txns))
}

type createAccountRequest struct {
	UserID         uuid.UUID       `json:"userId"`
	AccountType    string          `json:"accountType"`
	AccountName    string          `json:"accountName"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	InterestRate   decimal.Decimal `json:"interestRate"`
}

// CreateAccount allocates a new account for a user; admin only.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}
	if req.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if len(req.AccountName) < 2 {
		writeError(w, http.StatusBadRequest, "accountName must be at least 2 characters")
		return
	}
	if !domain.AccountType(req.AccountType).Valid() {
		writeError(w, http.StatusBadRequest, "unsupported accountType")
		return
	}

	account, err := h.Accounts.Create(r.Context(), domain.CreateAccountSpec{
		OwnerID:        req.UserID,
		Type:           domain.AccountType(req.AccountType),
		Name:           req.AccountName,
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
		CreditLimit:    req.CreditLimit,
		InterestRate:   req.InterestRate,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountJSON(account, nil))
}

// AccountStats returns the trailing-window aggregates of one account.
func (h *Handler) AccountStats(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	stats, err := h.Stats.Summarize(r.Context(), accountID, ownerID, domain.DefaultWindowMonths)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	monthly := make(map[string]map[string]decimal.Decimal, len(stats.Monthly))
	for month, flow := range stats.Monthly {
		monthly[month] = map[string]decimal.Decimal{
			"income":   flow.Income,
			"expenses": flow.Expenses,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accountId":         stats.AccountID,
		"currentBalance":    stats.CurrentBalance,
		"monthlyData":       monthly,
		"categoryBreakdown": stats.Categories,
		"totalTransactions": stats.TransactionCount,
		"period":            strconv.Itoa(stats.WindowMonths) + " months",
	})
}

type postTransactionRequest struct {
	AccountID       uuid.UUID       `json:"accountId"`
	TransactionType string          `json:"transactionType"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	Merchant        string          `json:"merchant"`
	ToAccountID     *uuid.UUID      `json:"toAccountId"`
}

// PostTransaction applies a single account mutation.
func (h *Handler) PostTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())

	var req postTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse request body")
		return
	}
	if req.AccountID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}
	if !domain.TransactionType(req.TransactionType).Valid() {
		writeError(w, http.StatusBadRequest, "unsupported transactionType")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	txn, err := h.Ledger.Post(r.Context(), ownerID, domain.PostRequest{
		AccountID:   req.AccountID,
		Type:        domain.TransactionType(req.TransactionType),
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Merchant:    req.Merchant,
		ToAccountID: req.ToAccountID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transaction": toTransactionJSON(txn)})
}

// ListTransactions returns one page of filtered history.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())

	filter, page, limit, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.Query.Query(r.Context(), ownerID, filter, page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]transactionJSON, 0, len(result.Items))
	for _, txn := range result.Items {
		items = append(items, toTransactionJSON(txn))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": items,
		"pagination": map[string]any{
			"page":    result.Page,
			"limit":   result.Limit,
			"total":   result.Total,
			"pages":   result.Pages,
			"hasNext": result.HasNext,
			"hasPrev": result.HasPrev,
		},
	})
}

// GetTransaction returns one transaction scoped to the owner.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	txn, err := h.Query.GetTransaction(r.Context(), id, ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(txn))
}

// Categories returns the owner's distinct transaction categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	ownerID := ownerFromContext(r.Context())

	categories, err := h.Query.Categories(r.Context(), ownerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func parseListQuery(r *http.Request) (domain.Filter, int, int, error) {
	var filter domain.Filter
	q := r.URL.Query()

	page, err := parseIntParam(q.Get("page"), 1)
	if err != nil {
		return filter, 0, 0, err
	}
	limit, err := parseIntParam(q.Get("limit"), 0)
	if err != nil {
		return filter, 0, 0, err
	}

	if raw := q.Get("accountId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, 0, 0, errors.New("invalid accountId")
		}
		filter.AccountID = &id
	}
	if raw := q.Get("type"); raw != "" {
		typ := domain.TransactionType(raw)
		if !typ.Valid() {
			return filter, 0, 0, errors.New("invalid type")
		}
		filter.Type = &typ
	}
	if raw := q.Get("startDate"); raw != "" {
		t, err := parseTimeParam(raw)
		if err != nil {
			return filter, 0, 0, errors.New("invalid startDate")
		}
		filter.StartDate = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseTimeParam(raw)
		if err != nil {
			return filter, 0, 0, errors.New("invalid endDate")
		}
		filter.EndDate = &t
	}
	if raw := q.Get("minAmount"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, 0, 0, errors.New("invalid minAmount")
		}
		filter.MinAmount = &d
	}
	if raw := q.Get("maxAmount"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, 0, 0, errors.New("invalid maxAmount")
		}
		filter.MaxAmount = &d
	}
	filter.Category = q.Get("category")
	filter.Search = q.Get("search")

	return filter, page, limit, nil
}

func parseIntParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("invalid numeric parameter")
	}
	return n, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
