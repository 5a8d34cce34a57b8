// Package firefly provides a Firefly III API client and its wire types.
package firefly

// Pagination is the pagination block of list responses.
type Pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// Meta is the meta block of list responses.
type Meta struct {
	Pagination Pagination `json:"pagination"`
}

// AccountAttributes are the attributes of an account.
type AccountAttributes struct {
	Name           string `json:"name"`
	Type           string `json:"type"` // asset, expense, revenue, liabilities, ...
	AccountRole    string `json:"account_role,omitempty"`
	CurrencyCode   string `json:"currency_code,omitempty"`
	CurrentBalance string `json:"current_balance,omitempty"`
	Active         bool   `json:"active"`
	CreatedAt      string `json:"created_at,omitempty"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// AccountRead is an account as returned by the API.
type AccountRead struct {
	Type       string            `json:"type"` // always "accounts"
	ID         string            `json:"id"`
	Attributes AccountAttributes `json:"attributes"`
}

// AccountArray is the response of GET /api/v1/accounts.
type AccountArray struct {
	Data []AccountRead `json:"data"`
	Meta Meta          `json:"meta"`
}

// AccountSingle is the response of POST /api/v1/accounts.
type AccountSingle struct {
	Data AccountRead `json:"data"`
}

// AccountStore is the body of POST /api/v1/accounts.
type AccountStore struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	AccountRole    string `json:"account_role,omitempty"` // required for asset accounts
	CurrencyCode   string `json:"currency_code,omitempty"`
	OpeningBalance string `json:"opening_balance,omitempty"`
	Active         bool   `json:"active"`
}

// TransactionSplit is one split of a transaction group.
type TransactionSplit struct {
	TransactionJournalID string `json:"transaction_journal_id,omitempty"`
	Type                 string `json:"type"` // withdrawal, deposit, transfer, opening balance, reconciliation
	Date                 string `json:"date"`
	Amount               string `json:"amount"` // always positive
	Description          string `json:"description"`
	CurrencyCode         string `json:"currency_code,omitempty"`
	SourceID             string `json:"source_id,omitempty"`
	SourceName           string `json:"source_name,omitempty"`
	DestinationID        string `json:"destination_id,omitempty"`
	DestinationName      string `json:"destination_name,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

// TransactionAttributes are the attributes of a transaction group.
type TransactionAttributes struct {
	GroupTitle   string             `json:"group_title,omitempty"`
	CreatedAt    string             `json:"created_at,omitempty"`
	UpdatedAt    string             `json:"updated_at,omitempty"`
	Transactions []TransactionSplit `json:"transactions"`
}

// TransactionRead is a transaction group as returned by the API.
type TransactionRead struct {
	Type       string                `json:"type"` // always "transactions"
	ID         string                `json:"id"`
	Attributes TransactionAttributes `json:"attributes"`
}

// TransactionArray is the response of GET /api/v1/transactions.
type TransactionArray struct {
	Data []TransactionRead `json:"data"`
	Meta Meta              `json:"meta"`
}

// TransactionSingle is the response of POST and PUT on transactions.
type TransactionSingle struct {
	Data TransactionRead `json:"data"`
}

// TransactionStore is the body of POST /api/v1/transactions.
type TransactionStore struct {
	ErrorIfDuplicateHash bool               `json:"error_if_duplicate_hash"`
	ApplyRules           bool               `json:"apply_rules"`
	GroupTitle           string             `json:"group_title,omitempty"`
	Transactions         []TransactionSplit `json:"transactions"`
}

// TransactionUpdate is the body of PUT /api/v1/transactions/{id}.
type TransactionUpdate struct {
	ApplyRules   bool               `json:"apply_rules"`
	Transactions []TransactionSplit `json:"transactions"`
}

// About is the response of GET /api/v1/about.
type About struct {
	Data AboutData `json:"data"`
}

// AboutData describes the Firefly III instance.
type AboutData struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	PHPVersion string `json:"php_version,omitempty"`
	OS         string `json:"os,omitempty"`
	Driver     string `json:"driver,omitempty"`
}

// ErrorResponse is the body of a failed request.
type ErrorResponse struct {
	Message   string              `json:"message"`
	Exception string              `json:"exception,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
}
