package models

// Агрегаты для админской панели. Считаются SQL-запросами,
// кешируются с коротким TTL.
type AccountTypeStat struct {
	Type         string `json:"type"`
	Count        int    `json:"count"`
	TotalBalance string `json:"total_balance"`
}

type StatsResponse struct {
	Customers           int               `json:"customers"`
	OpenAccounts        int               `json:"open_accounts"`
	ByAccountType       []AccountTypeStat `json:"by_account_type"`
	TransactionsLast24h int               `json:"transactions_last_24h"`
}
