package ledger

import (
	"strings"
	"time"
	"unicode"

	"cloud.google.com/go/civil"
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// dateLayouts lists the accepted date formats, most common first.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"02/01/2006",
}

// ParseDate parses a calendar date from the formats produced by Kresus,
// Firefly III and spreadsheet exports. Timestamps keep their own date part.
func ParseDate(s string) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, &ValidationError{Field: "date", Reason: "required"}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}
	return civil.Date{}, &ValidationError{Field: "date", Value: s, Reason: "unrecognized date format"}
}

// ParseAmount parses a decimal amount. It accepts a leading sign, spaces or
// non-breaking spaces as thousands separators, a comma as decimal separator
// and a trailing currency code or symbol ("1 234,56 €", "-50.00 EUR").
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.Is(unicode.Sc, r) || unicode.IsSpace(r)
	})
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "required"}
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		// 1,234.56
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Value: raw, Reason: "not a decimal number"}
	}
	return d, nil
}

// NormalizeCurrency upper-cases an ISO 4217 code and checks it is known.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", &ValidationError{Field: "currency", Reason: "required"}
	}
	if money.GetCurrency(code) == nil {
		return "", &ValidationError{Field: "currency", Value: code, Reason: "unknown ISO 4217 code"}
	}
	return code, nil
}

// RoundToCurrency rounds an amount to the minor unit of the currency.
// Unknown currencies are rounded to two places.
func RoundToCurrency(d decimal.Decimal, code string) decimal.Decimal {
	places := int32(2)
	if c := money.GetCurrency(code); c != nil {
		places = int32(c.Fraction)
	}
	return d.Round(places)
}

// RawTransaction is a transaction as read from a loosely typed source.
// Amounts may be signed or unsigned; when Type is set the sign is derived
// from it, otherwise the type is inferred from the sign.
type RawTransaction struct {
	Date        string
	Amount      string
	Type        string
	Description string
	Source      string
	Destination string
	RemoteID    string
}

// Normalize converts r into a validated Transaction.
func (r RawTransaction) Normalize() (Transaction, error) {
	date, err := ParseDate(r.Date)
	if err != nil {
		return Transaction{}, err
	}
	amount, err := ParseAmount(r.Amount)
	if err != nil {
		return Transaction{}, err
	}

	txType := TransactionType(strings.ToLower(strings.TrimSpace(r.Type)))
	if txType == "" {
		txType = InferType(amount)
	}

	t := Transaction{
		Date:        date,
		Amount:      SignAmount(amount, txType),
		Type:        txType,
		Description: strings.TrimSpace(r.Description),
		Source:      AccountRef{Name: strings.TrimSpace(r.Source)},
		Destination: AccountRef{Name: strings.TrimSpace(r.Destination)},
		RemoteID:    strings.TrimSpace(r.RemoteID),
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// InferType guesses the transaction type from the amount sign.
func InferType(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionTypeWithdrawal
	}
	return TransactionTypeDeposit
}

// SignAmount applies the sign convention of the record model to a magnitude:
// negative for withdrawals, positive otherwise.
func SignAmount(amount decimal.Decimal, t TransactionType) decimal.Decimal {
	if t == TransactionTypeWithdrawal {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// Validate checks the invariants of a transaction.
func (t Transaction) Validate() error {
	if t.Date == (civil.Date{}) {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if !t.Date.IsValid() {
		return &ValidationError{Field: "date", Value: t.Date.String(), Reason: "not a calendar date"}
	}
	if !t.Type.Valid() {
		return &ValidationError{Field: "type", Value: string(t.Type), Reason: "must be deposit, withdrawal or transfer"}
	}
	if t.Amount.IsZero() {
		return &ValidationError{Field: "amount", Value: t.Amount.String(), Reason: "must not be zero"}
	}
	if t.Type == TransactionTypeWithdrawal && t.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Value: t.Amount.String(), Reason: "withdrawals must be negative"}
	}
	if t.Type != TransactionTypeWithdrawal && t.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Value: t.Amount.String(), Reason: string(t.Type) + "s must be positive"}
	}
	if t.Source.IsZero() {
		return &ValidationError{Field: "source_account", Reason: "required"}
	}
	if t.Destination.IsZero() {
		return &ValidationError{Field: "destination_account", Reason: "required"}
	}
	return nil
}

// RawAccount is an account as read from a loosely typed source.
type RawAccount struct {
	Name     string
	Type     string
	Balance  string
	Currency string
	RemoteID string
}

// Normalize converts r into a validated Account. defaultCurrency is used when
// the source carries no currency.
func (r RawAccount) Normalize(defaultCurrency string) (Account, error) {
	currency := r.Currency
	if strings.TrimSpace(currency) == "" {
		currency = defaultCurrency
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Account{}, err
	}

	balance := decimal.Zero
	if strings.TrimSpace(r.Balance) != "" {
		if balance, err = ParseAmount(r.Balance); err != nil {
			return Account{}, err
		}
	}

	accountType := AccountType(strings.ToLower(strings.TrimSpace(r.Type)))
	if accountType == "" {
		accountType = AccountTypeAsset
	}

	a := Account{
		Name:           strings.Join(strings.Fields(r.Name), " "),
		Type:           accountType,
		CurrentBalance: RoundToCurrency(balance, code),
		Currency:       code,
		RemoteID:       strings.TrimSpace(r.RemoteID),
	}
	if err := a.Validate(); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Validate checks the invariants of an account.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if !a.Type.Valid() {
		return &ValidationError{Field: "account_type", Value: string(a.Type), Reason: "must be asset, expense, revenue or liability"}
	}
	if a.Currency != "" {
		if _, err := NormalizeCurrency(a.Currency); err != nil {
			return err
		}
	}
	return nil
}
