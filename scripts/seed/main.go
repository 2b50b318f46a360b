package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/farmbooks/farmbooks/internal/accounting"
	"github.com/farmbooks/farmbooks/internal/accounting/accounts"
	"github.com/farmbooks/farmbooks/internal/accounting/parties"
	"github.com/farmbooks/farmbooks/internal/app"
)

type chartNode struct {
	name     string
	group    accounts.Group
	category string
	opening  string
	children []chartNode
}

// farmChart is the default chart of a small mixed dairy and crop farm.
// Opening balances keep assets equal to liabilities plus equity.
var farmChart = []chartNode{
	{name: "Cash", group: accounts.GroupAssets, category: "Current Assets", opening: "5000"},
	{name: "Bank", group: accounts.GroupAssets, category: "Current Assets", opening: "20000"},
	{name: "Payables", group: accounts.GroupLiabilities, category: "Current Liabilities", opening: "0"},
	{name: "Owner's Capital", group: accounts.GroupEquity, category: "Capital", opening: "25000"},
	{name: "Sales", group: accounts.GroupIncome, category: "Farm Income", children: []chartNode{
		{name: "Milk Sales"},
		{name: "Crop Sales"},
	}},
	{name: "Farm Expenses", group: accounts.GroupExpense, category: "Operating Expenses", children: []chartNode{
		{name: "Feed Expense"},
		{name: "Veterinary Expense"},
	}},
}

var farmParties = []accounting.PartyInput{
	{Kind: parties.KindCustomer, Name: "Valley Dairy Co-op"},
	{Kind: parties.KindSupplier, Name: "County Feed Mill"},
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ledger, err := app.OpenLedger(ctx, cfg, accounting.Options{Logger: logger})
	if err != nil {
		logger.Error("open ledger", slog.Any("error", err))
		os.Exit(1)
	}
	defer ledger.Close()

	created, err := seed(ctx, ledger.Service)
	if err != nil {
		logger.Error("seed farm chart", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed complete", slog.Int("created", created), slog.String("store", cfg.Ledger.Store))
}

// seed creates every missing account and party, matched by name. It returns
// the number of records created.
func seed(ctx context.Context, svc *accounting.Service) (int, error) {
	existing, err := svc.ListAccounts(ctx)
	if err != nil {
		return 0, err
	}
	byName := make(map[string]accounts.Account, len(existing))
	for _, acc := range existing {
		byName[acc.Name] = acc
	}

	created := 0
	var walk func(nodes []chartNode, parent *accounts.Account) error
	walk = func(nodes []chartNode, parent *accounts.Account) error {
		for _, n := range nodes {
			acc, ok := byName[n.name]
			if !ok {
				in := accounts.CreateInput{Name: n.name, Group: n.group, Category: n.category}
				if n.opening != "" {
					in.OpeningBalance = decimal.RequireFromString(n.opening)
				}
				if parent != nil {
					in.ParentID = &parent.ID
				}
				acc, err = svc.CreateAccount(ctx, in)
				if err != nil {
					return err
				}
				created++
			}
			if err := walk(n.children, &acc); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(farmChart, nil); err != nil {
		return created, err
	}

	known, err := svc.ListParties(ctx, "")
	if err != nil {
		return created, err
	}
	names := make(map[string]bool, len(known))
	for _, p := range known {
		names[p.Name] = true
	}
	for _, in := range farmParties {
		if names[in.Name] {
			continue
		}
		if _, err := svc.CreateParty(ctx, in); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
