package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Group enumerates CoA top-level classifications.
type Group string

const (
	GroupAssets      Group = "Assets"
	GroupLiabilities Group = "Liabilities"
	GroupEquity      Group = "Equity"
	GroupIncome      Group = "Income"
	GroupExpense     Group = "Expense"
)

// Nature tells which side increases the balance.
type Nature string

const (
	NatureDebit  Nature = "Debit"
	NatureCredit Nature = "Credit"
)

// Account models a chart of accounts node.
type Account struct {
	ID             uuid.UUID
	Code           string
	Name           string
	Group          Group
	Category       string
	Nature         Nature
	ParentID       *uuid.UUID
	OpeningBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CreateInput describes a new account.
type CreateInput struct {
	Name           string
	Group          Group
	Category       string
	Nature         Nature
	ParentID       *uuid.UUID
	OpeningBalance decimal.Decimal
}

var groupPrefix = map[Group]string{
	GroupAssets:      "1",
	GroupLiabilities: "2",
	GroupEquity:      "3",
	GroupIncome:      "4",
	GroupExpense:     "5",
}

// Casers are stateful, so each call builds its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// ParseGroup canonicalises user supplied group names ("assets", "ASSETS").
func ParseGroup(raw string) (Group, bool) {
	g := Group(titleCase(raw))
	_, ok := groupPrefix[g]
	return g, ok
}

// ParseNature canonicalises user supplied nature names.
func ParseNature(raw string) (Nature, bool) {
	n := Nature(titleCase(raw))
	return n, n == NatureDebit || n == NatureCredit
}

// Prefix returns the code prefix digit of the group.
func (g Group) Prefix() string {
	return groupPrefix[g]
}

// Valid reports whether g is a known group.
func (g Group) Valid() bool {
	_, ok := groupPrefix[g]
	return ok
}

// Nominal reports whether the group flows into retained earnings.
func (g Group) Nominal() bool {
	return g == GroupIncome || g == GroupExpense
}

// NatureFor derives the balance nature of a group.
func NatureFor(g Group) Nature {
	if g == GroupAssets || g == GroupExpense {
		return NatureDebit
	}
	return NatureCredit
}

// Delta converts a debit/credit pair into the signed balance change.
func (n Nature) Delta(debit, credit decimal.Decimal) decimal.Decimal {
	if n == NatureDebit {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// IsRoot reports whether the account has no parent.
func (a Account) IsRoot() bool {
	return a.ParentID == nil
}
