package cache

import (
	"testing"
)

func newTestCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache("")
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestBadgerCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	if _, ok, err := c.Get("did:key:a"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := c.Set("did:key:a", []byte(`[1]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Set("did:key:a", []byte(`[2]`)); err != nil {
		t.Fatalf("Set overwrite failed: %v", err)
	}

	got, ok, err := c.Get("did:key:a")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != `[2]` {
		t.Errorf("expected overwritten value, got %s", got)
	}
}

func TestBadgerCache_KeysAndDelete(t *testing.T) {
	c := newTestCache(t)

	for _, k := range []string{"did:dht:one", "did:dht:two", "settings"} {
		if err := c.Set(k, []byte("x")); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}

	keys, err := c.Keys("did:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 did keys, got %v", keys)
	}

	all, err := c.Keys("")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 keys, got %v (%v)", all, err)
	}

	if err := c.Delete("did:dht:one"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete("did:dht:missing"); err != nil {
		t.Errorf("Delete of missing key should not fail: %v", err)
	}
	if _, ok, _ := c.Get("did:dht:one"); ok {
		t.Errorf("expected key to be deleted")
	}
}

func TestBadgerCache_OnDisk(t *testing.T) {
	dir := t.TempDir()

	c, err := NewBadgerCache(dir)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	if err := c.Set("did:key:a", []byte("persisted")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	c.Close()

	c, err = NewBadgerCache(dir)
	if err != nil {
		t.Fatalf("Failed to reopen cache: %v", err)
	}
	defer c.Close()

	got, ok, err := c.Get("did:key:a")
	if err != nil || !ok || string(got) != "persisted" {
		t.Errorf("expected persisted value, got %q ok=%v err=%v", got, ok, err)
	}
}
