package scenario

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	"rangeshift/internal/model"
)

// Supported command ops.
const (
	OpCreatePool   = "create_pool"
	OpSeedPosition = "seed_position"
	OpApprove      = "approve"
	OpAccrue       = "accrue"
	OpAdvanceTick  = "advance_tick"
	OpUpdateRange  = "update_range"
)

// Command is one line of a scenario file. Pools and positions are referred
// to by the labels the scenario assigns when creating them, so authors never
// deal with derived ids.
type Command struct {
	Op string `json:"op"`

	// create_pool
	Seed *model.PoolSeed `json:"seed,omitempty"`

	// pool label, shared by every op after create_pool
	Pool string `json:"pool,omitempty"`

	// seed_position / update_range
	Position  string `json:"position,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Salt      string `json:"salt,omitempty"`
	Lower     int32  `json:"lower,omitempty"`
	Upper     int32  `json:"upper,omitempty"`
	Liquidity string `json:"liquidity,omitempty"`

	// update_range
	Sender              string `json:"sender,omitempty"`
	MustContinueTrading bool   `json:"must_continue_trading,omitempty"`
	Data                string `json:"data,omitempty"`

	// approve
	Operator string `json:"operator,omitempty"`
	Approved bool   `json:"approved,omitempty"`

	// accrue
	Fee0X128 string `json:"fee0_x128,omitempty"`
	Fee1X128 string `json:"fee1_x128,omitempty"`

	// advance_tick
	Tick int32 `json:"tick,omitempty"`
}

// ParseCommand decodes one scenario line.
func ParseCommand(line []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		return Command{}, fmt.Errorf("parse command: %w", err)
	}
	if cmd.Op == "" {
		return Command{}, fmt.Errorf("command missing op")
	}
	return cmd, nil
}

func parseBigInt(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return n, nil
}

func parseUint256(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(uint256.Int), nil
	}
	n, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid uint256 %q: %w", value, err)
	}
	return n, nil
}
