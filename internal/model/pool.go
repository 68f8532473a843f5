package model

// PoolSeed describes the initial state of a pool, either authored by hand or
// captured from a live V3 pool with the snapshot command.
type PoolSeed struct {
	ChainID              uint64   `json:"chain_id,omitempty"`
	Address              string   `json:"address,omitempty"`
	Token0               string   `json:"token0"`
	Token1               string   `json:"token1"`
	Fee                  uint32   `json:"fee"`
	TickSpacing          int32    `json:"tick_spacing"`
	Tick                 int32    `json:"tick"`
	SqrtPriceX96         string   `json:"sqrt_price_x96"`
	Liquidity            string   `json:"liquidity,omitempty"`
	FeeGrowthGlobal0X128 string   `json:"fee_growth_global0_x128"`
	FeeGrowthGlobal1X128 string   `json:"fee_growth_global1_x128"`
	Permissions          []string `json:"permissions,omitempty"`
}
