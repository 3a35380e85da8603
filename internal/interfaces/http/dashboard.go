package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"horizon/internal/infrastructure/plaid"
	"horizon/internal/shared/middleware"
)

type DashboardHandler struct {
	links      LinkingService
	aggregator plaid.ClientInterface
	cache      *DashboardCache
}

func NewDashboardHandler(links LinkingService, aggregator plaid.ClientInterface, cache *DashboardCache) *DashboardHandler {
	return &DashboardHandler{
		links:      links,
		aggregator: aggregator,
		cache:      cache,
	}
}

// BankAccount is a linked account enriched with live aggregator data.
type BankAccount struct {
	LinkID           string   `json:"linkId"`
	BankID           string   `json:"bankId"`
	AccountID        string   `json:"accountId"`
	Name             string   `json:"name"`
	Mask             string   `json:"mask"`
	Type             string   `json:"type"`
	Subtype          string   `json:"subtype"`
	CurrentBalance   float64  `json:"currentBalance"`
	AvailableBalance *float64 `json:"availableBalance"`
	SharableID       string   `json:"shareableId"`
}

// DashboardData is the aggregate view served to the app's home screen.
type DashboardData struct {
	Accounts            []BankAccount       `json:"accounts"`
	TotalBanks          int                 `json:"totalBanks"`
	TotalCurrentBalance float64             `json:"totalCurrentBalance"`
	Transactions        []plaid.Transaction `json:"transactions"`
}

// HandleDashboard assembles accounts, balances and recent transactions for
// the signed-in user. Results are cached per user until their linked banks
// change.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	if data, ok := h.cache.Get(u.ID); ok {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(data)
		return
	}

	links, err := h.links.BanksForUser(r.Context(), u.ID)
	if err != nil {
		log.Printf("Error listing banks for user %s: %v", u.ID, err)
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	data := &DashboardData{
		Accounts:   make([]BankAccount, 0, len(links)),
		TotalBanks: len(links),
	}

	for _, link := range links {
		accounts, err := h.aggregator.GetAccounts(r.Context(), link.AccessToken)
		if err != nil {
			log.Printf("Error fetching accounts for link %s: %v", link.ID, err)
			http.Error(w, "Failed to load accounts", http.StatusBadGateway)
			return
		}

		for _, acct := range accounts.Accounts {
			if acct.AccountID != link.AccountID {
				continue
			}

			account := BankAccount{
				LinkID:           link.ID,
				BankID:           link.BankID,
				AccountID:        acct.AccountID,
				Name:             acct.Name,
				Mask:             acct.Mask,
				Type:             acct.Type,
				Subtype:          acct.Subtype,
				AvailableBalance: acct.Balances.Available,
				SharableID:       link.SharableID,
			}
			if acct.Balances.Current != nil {
				account.CurrentBalance = *acct.Balances.Current
				data.TotalCurrentBalance += *acct.Balances.Current
			}
			data.Accounts = append(data.Accounts, account)
		}
	}

	// Recent transactions come from the first linked bank, covering the
	// last 30 days.
	if len(links) > 0 {
		end := time.Now()
		start := end.AddDate(0, 0, -30)

		txns, err := h.aggregator.GetTransactions(r.Context(), links[0].AccessToken,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
		if err != nil {
			log.Printf("Error fetching transactions for user %s: %v", u.ID, err)
		} else {
			data.Transactions = txns.Transactions
		}
	}

	h.cache.Put(u.ID, data)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
