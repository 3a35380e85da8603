package linking

// BankLink is a persisted bank connection. AccessToken is stored encrypted
// and never serialized; SharableID is the encrypted account id handed out
// for peer transfers.
type BankLink struct {
	ID               string `json:"id"`
	UserID           string `json:"userId"`
	BankID           string `json:"bankId"`
	AccountID        string `json:"accountId"`
	AccessToken      string `json:"-"`
	FundingSourceURL string `json:"fundingSourceUrl"`
	SharableID       string `json:"shareableId"`
}

// Result reports the outcome of a completed exchange.
type Result struct {
	State State
	Link  *BankLink
}
