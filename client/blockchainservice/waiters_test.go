package blockchainservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaiterRegistryFulfillsOnAdvance(t *testing.T) {
	r := newWaiterRegistry()
	ch := r.Wait(10)

	select {
	case <-ch:
		t.Fatal("waiter fired before advance")
	case <-time.After(10 * time.Millisecond):
	}

	r.Advance(5)
	select {
	case <-ch:
		t.Fatal("waiter fired before its key was reached")
	case <-time.After(10 * time.Millisecond):
	}

	r.Advance(10)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("waiter never fired")
	}
}

func TestWaiterRegistryAlreadyPastFiresImmediately(t *testing.T) {
	r := newWaiterRegistry()
	r.Advance(100)
	ch := r.Wait(50)
	select {
	case <-ch:
	default:
		t.Fatal("waiter for an already-passed key should be pre-closed")
	}
}

func TestWaitersNotifyDrivesBothRegistries(t *testing.T) {
	w := newWaiters()
	blockCh := w.WaitForBlock(5)
	tickCh := w.WaitForTick(3)

	w.notify(5, 3)

	select {
	case <-blockCh:
	default:
		t.Fatal("block waiter should have fired")
	}
	select {
	case <-tickCh:
	default:
		t.Fatal("tick waiter should have fired")
	}
	assert.True(t, true)
}
