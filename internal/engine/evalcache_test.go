package engine

import "testing"

func TestEvalCacheStoreAndGet(t *testing.T) {
	ec := NewEvalCache(1024)
	defer ec.Close()

	const key = uint64(0xdeadbeef)

	if _, found := ec.Get(key); found {
		t.Fatal("expected a miss on an empty cache")
	}

	ec.Store(key, 123)
	ec.Wait()

	score, found := ec.Get(key)
	if !found {
		t.Fatal("expected a hit after Store")
	}
	if score != 123 {
		t.Errorf("expected score 123, got %d", score)
	}
}

func TestEvalCacheNilSafe(t *testing.T) {
	var ec *EvalCache

	if _, found := ec.Get(1); found {
		t.Error("a nil *EvalCache should always miss")
	}
	ec.Store(1, 10) // must not panic
	ec.Wait()       // must not panic
	ec.Close()      // must not panic
}
