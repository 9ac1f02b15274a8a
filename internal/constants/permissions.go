package constants

const (
	ViewData       = "view_data"
	BuyShares      = "buy_shares"
	TransferShares = "transfer_shares"
	SyncValuation  = "sync_valuation"
	AddFunds       = "add_funds"
	IngestListings = "ingest_listings"
	ClearListings  = "clear_listings"
	ViewAnyAccount = "view_any_account"
)
