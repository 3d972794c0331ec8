package blockchainservice

import "testing"

func TestWritePermitSingleSlot(t *testing.T) {
	p := newWritePermit()

	release, ok := p.TryAcquire(KindSubmitProof)
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	if _, ok := p.TryAcquire(KindConfirmStoring); ok {
		t.Fatal("permit must not be granted while held")
	}

	holder, held := p.Held()
	if !held || holder != KindSubmitProof {
		t.Fatalf("expected held by KindSubmitProof, got %v held=%v", holder, held)
	}

	close(release)
	p.Release()

	if _, held := p.Held(); held {
		t.Fatal("permit should be free after release")
	}

	if _, ok := p.TryAcquire(KindConfirmStoring); !ok {
		t.Fatal("expected re-acquire after release to succeed")
	}
}
