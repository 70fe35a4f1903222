package protocol

// GetStatsRequest is the payload for querying instance statistics.
type GetStatsRequest struct {
	Address string `json:"address"`
}

// GetStatsResponse contains statistics about the queues of one instance.
type GetStatsResponse struct {
	Address   string `json:"address"`
	State     string `json:"state"`
	SellCount int64  `json:"sell_count"`
	SellTotal string `json:"sell_total"`
	BuyCount  int64  `json:"buy_count"`
	BuyTotal  string `json:"buy_total"`
	Destroyed bool   `json:"destroyed"`
}
