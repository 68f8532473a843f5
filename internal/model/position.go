package model

// Position is the externally visible view of a liquidity position. Large
// numeric fields are decimal strings so records survive JSON round-trips
// without precision loss.
type Position struct {
	ID                       string `json:"id"`
	Pool                     string `json:"pool"`
	Owner                    string `json:"owner"`
	TickLower                int32  `json:"tick_lower"`
	TickUpper                int32  `json:"tick_upper"`
	Liquidity                string `json:"liquidity"`
	FeeGrowthInside0LastX128 string `json:"fee_growth_inside0_last_x128"`
	FeeGrowthInside1LastX128 string `json:"fee_growth_inside1_last_x128"`
	TokensOwed0              string `json:"tokens_owed0"`
	TokensOwed1              string `json:"tokens_owed1"`
}
