package model

// RangeUpdateRecord is emitted once per committed range move.
type RangeUpdateRecord struct {
	Pool        string `json:"pool"`
	Position    string `json:"position"`
	Owner       string `json:"owner"`
	Sequence    uint64 `json:"sequence"`
	OldLower    int32  `json:"old_lower"`
	OldUpper    int32  `json:"old_upper"`
	NewLower    int32  `json:"new_lower"`
	NewUpper    int32  `json:"new_upper"`
	Liquidity   string `json:"liquidity"`
	TokensOwed0 string `json:"tokens_owed0"`
	TokensOwed1 string `json:"tokens_owed1"`
	UpdatedAt   string `json:"updated_at"`
}
