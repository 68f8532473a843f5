package engine

import (
	"errors"
	"testing"
)

func TestPermissionsHas(t *testing.T) {
	perms := PermBeforeUpdateRange
	if !perms.Has(PermBeforeUpdateRange) {
		t.Fatalf("before bit should be set")
	}
	if perms.Has(PermAfterUpdateRange) {
		t.Fatalf("after bit should not be set")
	}
}

func TestGatewaySkipsWithoutPermission(t *testing.T) {
	hook := &stubHook{} // wrong acks everywhere
	g := newHookGateway(0, hook, nil)

	if err := g.before(testOwner, PoolKey{}, UpdateParams{}); err != nil {
		t.Fatalf("ungated before should be skipped: %v", err)
	}
	if hook.beforeCalls != 0 {
		t.Fatalf("hook invoked despite unset flag")
	}
}

func TestGatewayRejectsWrongAck(t *testing.T) {
	hook := &stubHook{beforeAck: Ack{1, 2, 3, 4}}
	g := newHookGateway(PermBeforeUpdateRange, hook, nil)

	err := g.before(testOwner, PoolKey{}, UpdateParams{})
	if !errors.Is(err, ErrCallbackRejected) {
		t.Fatalf("expected rejection on wrong ack, got %v", err)
	}
}

func TestGatewayRejectsHookError(t *testing.T) {
	hook := &stubHook{afterAck: AckAfterUpdateRange, afterErr: errors.New("boom")}
	g := newHookGateway(PermAfterUpdateRange, hook, nil)

	err := g.after(testOwner, PoolKey{}, UpdateParams{}, PositionRecord{})
	if !errors.Is(err, ErrCallbackRejected) {
		t.Fatalf("expected rejection on hook error, got %v", err)
	}
}

func TestGatewayNilHookDisablesPermissions(t *testing.T) {
	g := newHookGateway(PermBeforeUpdateRange|PermAfterUpdateRange, nil, nil)
	if err := g.before(testOwner, PoolKey{}, UpdateParams{}); err != nil {
		t.Fatalf("nil hook should skip: %v", err)
	}
}

func TestAckSelectorsDistinct(t *testing.T) {
	if AckBeforeUpdateRange == AckAfterUpdateRange {
		t.Fatalf("ack selectors must differ")
	}
	if AckBeforeUpdateRange == (Ack{}) {
		t.Fatalf("ack selector should not be zero")
	}
}
