package engine

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Permissions is the per-pool callback-authorization bitmask, fixed at pool
// creation.
type Permissions uint8

const (
	PermBeforeUpdateRange Permissions = 1 << iota
	PermAfterUpdateRange
)

func (p Permissions) Has(flag Permissions) bool {
	return p&flag != 0
}

// Ack is the acknowledgement a hook must return to accept an invocation.
type Ack [4]byte

func ackSelector(signature string) Ack {
	var ack Ack
	copy(ack[:], crypto.Keccak256([]byte(signature))[:4])
	return ack
}

var (
	AckBeforeUpdateRange = ackSelector("beforeUpdateRange(address,bytes32,int32,int32,bool,bytes)")
	AckAfterUpdateRange  = ackSelector("afterUpdateRange(address,bytes32,int32,int32,bool,bytes)")
)

// Hook is the external callback pair. Each point is gated independently by
// the pool's permission bits; an enabled point must return its Ack constant
// to accept.
type Hook interface {
	BeforeUpdateRange(sender common.Address, pool PoolKey, params UpdateParams) (Ack, error)
	AfterUpdateRange(sender common.Address, pool PoolKey, params UpdateParams, position PositionRecord) (Ack, error)
}

// hookGateway invokes hook points when authorized and validates the
// acknowledgement strictly: a wrong ack or a hook failure is a rejection.
type hookGateway struct {
	perms  Permissions
	hook   Hook
	logger *zap.Logger
}

func newHookGateway(perms Permissions, hook Hook, logger *zap.Logger) *hookGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hook == nil {
		perms = 0
	}
	return &hookGateway{perms: perms, hook: hook, logger: logger}
}

func (g *hookGateway) before(sender common.Address, pool PoolKey, params UpdateParams) error {
	if !g.perms.Has(PermBeforeUpdateRange) {
		return nil
	}
	ack, err := g.hook.BeforeUpdateRange(sender, pool, params)
	if err != nil {
		g.logger.Debug("before hook failed", zap.Error(err))
		return fmt.Errorf("%w: before hook: %v", ErrCallbackRejected, err)
	}
	if ack != AckBeforeUpdateRange {
		return fmt.Errorf("%w: before hook returned unexpected ack %x", ErrCallbackRejected, ack)
	}
	return nil
}

func (g *hookGateway) after(sender common.Address, pool PoolKey, params UpdateParams, position PositionRecord) error {
	if !g.perms.Has(PermAfterUpdateRange) {
		return nil
	}
	ack, err := g.hook.AfterUpdateRange(sender, pool, params, position)
	if err != nil {
		g.logger.Debug("after hook failed", zap.Error(err))
		return fmt.Errorf("%w: after hook: %v", ErrCallbackRejected, err)
	}
	if ack != AckAfterUpdateRange {
		return fmt.Errorf("%w: after hook returned unexpected ack %x", ErrCallbackRejected, ack)
	}
	return nil
}
