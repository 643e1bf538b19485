package datalayer

import (
	"testing"

	"github.com/hxkv/hxkv/internal/codec"
	"github.com/hxkv/hxkv/internal/keyspace"
	"github.com/hxkv/hxkv/internal/store"
)

func TestPutAndGet(t *testing.T) {
	h := openTestDatalayer(t)

	key := []byte("alice")
	attrs := [][]byte{key, []byte("Alice"), int64Wire(30), nil}
	if err := h.d.Put(0, 1, 0, key, attrs, 1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	obj, err := h.d.Get(1, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if obj.Version != 1 {
		t.Errorf("Version = %d, want 1", obj.Version)
	}
	if string(obj.Attrs[1]) != "Alice" {
		t.Errorf("name = %q, want Alice", obj.Attrs[1])
	}
	if string(obj.Attrs[0]) != "alice" {
		t.Errorf("Attrs[0] (key) = %q, want alice", obj.Attrs[0])
	}
}

func TestGetUnknownRegion(t *testing.T) {
	h := openTestDatalayer(t)

	if _, err := h.d.Get(99, []byte("x")); err != ErrUnknownRegion {
		t.Errorf("Get on unknown region: got %v, want ErrUnknownRegion", err)
	}
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	h := openTestDatalayer(t)

	if _, err := h.d.Get(1, []byte("nobody")); err != ErrNotFound {
		t.Errorf("Get on missing key: got %v, want ErrNotFound", err)
	}
}

func TestDelRemovesObject(t *testing.T) {
	h := openTestDatalayer(t)

	key := []byte("alice")
	attrs := [][]byte{key, []byte("Alice"), int64Wire(30), nil}
	if err := h.d.Put(0, 1, 0, key, attrs, 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := h.d.Del(0, 1, 0, key, attrs); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, err := h.d.Get(1, key); err != ErrNotFound {
		t.Errorf("Get after Del: got %v, want ErrNotFound", err)
	}
}

func TestDelOnMissingKeyIsNotFound(t *testing.T) {
	h := openTestDatalayer(t)

	key := []byte("ghost")
	attrs := [][]byte{key, []byte("Ghost"), int64Wire(0), nil}
	if err := h.d.Del(0, 1, 0, key, attrs); err != ErrNotFound {
		t.Errorf("Del on a missing key: got %v, want ErrNotFound", err)
	}
}

// TestPutOverwriteLeavesStaleIndexEntry pins the preserved asymmetry: Put
// only installs the new attribute vector's index entries and never removes
// the ones a prior live value at the same key produced.
func TestPutOverwriteLeavesStaleIndexEntry(t *testing.T) {
	h := openTestDatalayer(t)
	sc, _ := testSchema()

	key := []byte("alice")
	if err := h.d.Put(0, 1, 0, key, [][]byte{key, []byte("Alice"), int64Wire(30), nil}, 1); err != nil {
		t.Fatalf("Put 1: %v", err)
	}
	if err := h.d.Put(0, 1, 0, key, [][]byte{key, []byte("Bob"), int64Wire(30), nil}, 2); err != nil {
		t.Fatalf("Put 2: %v", err)
	}

	vc := codec.Lookup(sc.Attrs[1].Type)
	kc := codec.Lookup(sc.Attrs[0].Type)
	stale := keyspace.EncodeIndexEntry(1, 1, vc, kc, []byte("Alice"), key)

	r := h.d.st.BeginRead()
	defer r.Abort()
	_, ref, rc, err := r.Get(stale)
	if err != nil || rc != store.Success {
		t.Fatalf("expected the stale index entry for the overwritten name to survive a plain Put, got rc=%v err=%v", rc, err)
	}
	ref.Close()
}

// TestOverputCleansIndexEntries checks the counterpart contract: Overput
// computes a correct before/after delta and removes the stale entry.
func TestOverputCleansIndexEntries(t *testing.T) {
	h := openTestDatalayer(t)
	sc, _ := testSchema()

	key := []byte("alice")
	oldAttrs := [][]byte{key, []byte("Alice"), int64Wire(30), nil}
	newAttrs := [][]byte{key, []byte("Bob"), int64Wire(30), nil}

	if err := h.d.Put(0, 1, 0, key, oldAttrs, 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := h.d.Overput(0, 1, 0, key, oldAttrs, newAttrs, 2); err != nil {
		t.Fatalf("Overput: %v", err)
	}

	vc := codec.Lookup(sc.Attrs[1].Type)
	kc := codec.Lookup(sc.Attrs[0].Type)
	stale := keyspace.EncodeIndexEntry(1, 1, vc, kc, []byte("Alice"), key)
	fresh := keyspace.EncodeIndexEntry(1, 1, vc, kc, []byte("Bob"), key)

	r := h.d.st.BeginRead()
	defer r.Abort()

	if _, _, rc, _ := r.Get(stale); rc != store.NotFound {
		t.Errorf("stale index entry should be gone after Overput, got rc=%v", rc)
	}
	_, ref, rc, err := r.Get(fresh)
	if err != nil || rc != store.Success {
		t.Fatalf("fresh index entry missing after Overput: rc=%v err=%v", rc, err)
	}
	ref.Close()
}

func TestUncertainDelOnMissingKeyIsNoop(t *testing.T) {
	h := openTestDatalayer(t)

	if err := h.d.UncertainDel(0, 1, []byte("ghost")); err != nil {
		t.Errorf("UncertainDel on a missing key: got %v, want nil", err)
	}
}

func TestUncertainDelDeletesExisting(t *testing.T) {
	h := openTestDatalayer(t)

	key := []byte("alice")
	attrs := [][]byte{key, []byte("Alice"), int64Wire(30), nil}
	if err := h.d.Put(0, 1, 0, key, attrs, 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := h.d.UncertainDel(0, 1, key); err != nil {
		t.Fatalf("UncertainDel: %v", err)
	}
	if _, err := h.d.Get(1, key); err != ErrNotFound {
		t.Errorf("Get after UncertainDel: got %v, want ErrNotFound", err)
	}
}

// TestUncertainPutRoutesToPutThenOverput exercises both branches of
// UncertainPut: a fresh key becomes a Put, and a live key becomes an
// Overput that cleans up the prior index entries.
func TestUncertainPutRoutesToPutThenOverput(t *testing.T) {
	h := openTestDatalayer(t)
	sc, _ := testSchema()

	key := []byte("carol")
	if err := h.d.UncertainPut(0, 1, key, [][]byte{key, []byte("Carol"), int64Wire(20), nil}, 1); err != nil {
		t.Fatalf("UncertainPut (insert): %v", err)
	}
	obj, err := h.d.Get(1, key)
	if err != nil {
		t.Fatalf("Get after insert: %v", err)
	}
	if string(obj.Attrs[1]) != "Carol" || obj.Version != 1 {
		t.Fatalf("got name=%q version=%d, want Carol/1", obj.Attrs[1], obj.Version)
	}

	if err := h.d.UncertainPut(0, 1, key, [][]byte{key, []byte("Caroline"), int64Wire(21), nil}, 2); err != nil {
		t.Fatalf("UncertainPut (overwrite): %v", err)
	}
	obj, err = h.d.Get(1, key)
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if string(obj.Attrs[1]) != "Caroline" || obj.Version != 2 {
		t.Fatalf("got name=%q version=%d, want Caroline/2", obj.Attrs[1], obj.Version)
	}

	vc := codec.Lookup(sc.Attrs[1].Type)
	kc := codec.Lookup(sc.Attrs[0].Type)
	stale := keyspace.EncodeIndexEntry(1, 1, vc, kc, []byte("Carol"), key)

	r := h.d.st.BeginRead()
	defer r.Abort()
	if _, _, rc, _ := r.Get(stale); rc != store.NotFound {
		t.Errorf("UncertainPut's Overput branch should have cleaned up the old index entry, got rc=%v", rc)
	}
}

func TestDelUsesSuppliedOldAttrsNotAStoreRead(t *testing.T) {
	h := openTestDatalayer(t)
	sc, _ := testSchema()

	key := []byte("dave")
	attrs := [][]byte{key, []byte("Dave"), int64Wire(40), nil}
	if err := h.d.Put(0, 1, 0, key, attrs, 1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Del is handed a different name than what's actually stored; it must
	// remove index entries for exactly the attrs it was given, not for
	// whatever the store happens to hold.
	claimedOld := [][]byte{key, []byte("Wrong"), int64Wire(40), nil}
	if err := h.d.Del(0, 1, 0, key, claimedOld); err != nil {
		t.Fatalf("Del: %v", err)
	}

	vc := codec.Lookup(sc.Attrs[1].Type)
	kc := codec.Lookup(sc.Attrs[0].Type)
	wrongEntry := keyspace.EncodeIndexEntry(1, 1, vc, kc, []byte("Wrong"), key)
	realEntry := keyspace.EncodeIndexEntry(1, 1, vc, kc, []byte("Dave"), key)

	r := h.d.st.BeginRead()
	defer r.Abort()

	if _, _, rc, _ := r.Get(wrongEntry); rc != store.NotFound {
		t.Errorf("Del should have removed the entry for the supplied old attrs, got rc=%v", rc)
	}
	if _, ref, rc, err := r.Get(realEntry); err != nil || rc != store.Success {
		t.Errorf("Del must not touch index entries for attrs it wasn't told about, got rc=%v err=%v", rc, err)
	} else {
		ref.Close()
	}
}
