package testing

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/sdcs/lib/envelope"
	"github.com/ValentinKolb/sdcs/lib/store"
)

// StoreFactory is a function that creates a new, empty instance of a store.IStore implementation
type StoreFactory func() store.IStore

// RunStoreTests runs a comprehensive test suite for a store.IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Absence", func(t *testing.T) {
			testAbsence(t, factory())
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, factory())
		})

		t.Run("TypePreservation", func(t *testing.T) {
			testTypePreservation(t, factory())
		})

		t.Run("InvalidValues", func(t *testing.T) {
			testInvalidValues(t, factory())
		})

		t.Run("OpaqueKeys", func(t *testing.T) {
			testOpaqueKeys(t, factory())
		})

		t.Run("ManyKeys", func(t *testing.T) {
			testManyKeys(t, factory())
		})

		t.Run("ConcurrentRemove", func(t *testing.T) {
			testConcurrentRemove(t, factory())
		})

		t.Run("ConcurrentMixed", func(t *testing.T) {
			testConcurrentMixed(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// mustGet reads a key and fails the test on transport or store errors
func mustGet(t testing.TB, s store.IStore, key string) (envelope.Envelope, bool) {
	t.Helper()
	val, ok, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return val, ok
}

// mustSet writes a key and fails the test on error
func mustSet(t testing.TB, s store.IStore, key string, val envelope.Envelope) {
	t.Helper()
	if err := s.Set(key, val); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	testKey := "test-key"
	testValue1 := envelope.String("test-value1")
	testValue2 := envelope.String("test-value2")

	mustSet(t, s, testKey, testValue1)

	result, exists := mustGet(t, s, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !result.Equal(testValue1) {
		t.Errorf("Expected value %#v, got %#v", testValue1, result)
	}

	// overwrite replaces the entry
	mustSet(t, s, testKey, testValue2)

	result, exists = mustGet(t, s, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after overwrite", testKey)
	}
	if !result.Equal(testValue2) {
		t.Errorf("Expected value %#v, got %#v", testValue2, result)
	}

	// overwrite with a different variant
	mustSet(t, s, testKey, envelope.Int32(2))
	result, _ = mustGet(t, s, testKey)
	if !result.Equal(envelope.Int32(2)) {
		t.Errorf("Expected value %#v, got %#v", envelope.Int32(2), result)
	}

	// the empty key is a valid key
	mustSet(t, s, "", envelope.Bool(true))
	result, exists = mustGet(t, s, "")
	if !exists || !result.Equal(envelope.Bool(true)) {
		t.Errorf("Expected empty key to hold %#v, got %#v (exists=%t)", envelope.Bool(true), result, exists)
	}
}

func testAbsence(t *testing.T, s store.IStore) {
	result, exists := mustGet(t, s, "missing")
	if exists {
		t.Errorf("Expected missing key to return exists=false")
	}
	if result.IsValid() {
		t.Errorf("Expected no value for a missing key, got %#v", result)
	}

	existed, err := s.Remove("missing")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if existed {
		t.Errorf("Expected Remove of a never written key to return false")
	}

	if _, exists = mustGet(t, s, "missing"); exists {
		t.Errorf("Expected missing key to stay absent after Remove")
	}
}

// testInvalidValues checks that values without a wire form are rejected the
// same way wherever the request is served
func testInvalidValues(t *testing.T, s store.IStore) {
	invalid := map[string]envelope.Envelope{
		"empty":        {},
		"invalid-utf8": envelope.String("user\xff"),
	}

	for name, val := range invalid {
		for i := 0; i < 10; i++ {
			key := fmt.Sprintf("invalid-%s-%d", name, i)
			err := s.Set(key, val)
			if !store.HasCode(err, store.RetCInvalidValue) {
				t.Fatalf("Set(%q, %s) expected InvalidValue, got %v", key, name, err)
			}
			if _, exists := mustGet(t, s, key); exists {
				t.Errorf("Expected rejected key %q to stay absent", key)
			}
		}
	}
}

// testOpaqueKeys checks that keys are stored byte for byte, including bytes
// that are not valid UTF-8
func testOpaqueKeys(t *testing.T, s store.IStore) {
	keys := []string{"user\xff", "user\xfe", "\x00", "a/b c", "grüße", "user\uFFFD"}

	for i, key := range keys {
		mustSet(t, s, key, envelope.Int32(int32(i)))
	}

	for i, key := range keys {
		result, exists := mustGet(t, s, key)
		if !exists {
			t.Fatalf("Expected key %q to exist", key)
		}
		if !result.Equal(envelope.Int32(int32(i))) {
			t.Errorf("Key %q: expected %#v, got %#v", key, envelope.Int32(int32(i)), result)
		}
	}

	for _, key := range keys {
		existed, err := s.Remove(key)
		if err != nil {
			t.Fatalf("Remove(%q) failed: %v", key, err)
		}
		if !existed {
			t.Errorf("Expected key %q to exist before Remove", key)
		}
	}
}

func testRemove(t *testing.T, s store.IStore) {
	mustSet(t, s, "to-remove", envelope.Float32(1.5))
	mustSet(t, s, "to-keep", envelope.Float32(2.5))

	existed, err := s.Remove("to-remove")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !existed {
		t.Errorf("Expected Remove of an existing key to return true")
	}

	if _, exists := mustGet(t, s, "to-remove"); exists {
		t.Errorf("Expected key to be absent after Remove")
	}

	existed, err = s.Remove("to-remove")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if existed {
		t.Errorf("Expected second Remove to return false")
	}

	if result, exists := mustGet(t, s, "to-keep"); !exists || !result.Equal(envelope.Float32(2.5)) {
		t.Errorf("Remove must not touch other keys, got %#v (exists=%t)", result, exists)
	}
}

func testTypePreservation(t *testing.T, s store.IStore) {
	list, err := envelope.Encode([]any{1, 2, 3})
	if err != nil {
		t.Fatalf("Failed to encode list: %v", err)
	}

	values := map[string]envelope.Envelope{
		"a":    envelope.String("hello"),
		"n":    envelope.Int32(42),
		"flag": envelope.Bool(true),
		"f":    envelope.Float32(1),
		"lst":  list,
		"one":  envelope.String("1"),
	}

	for k, v := range values {
		mustSet(t, s, k, v)
	}

	for k, want := range values {
		got, exists := mustGet(t, s, k)
		if !exists {
			t.Errorf("Expected key %s to exist", k)
			continue
		}
		if got.Kind() != want.Kind() {
			t.Errorf("Key %s: expected kind %s, got %s", k, want.Kind(), got.Kind())
		}
		if !got.Equal(want) {
			t.Errorf("Key %s: expected %#v, got %#v", k, want, got)
		}
	}
}

func testManyKeys(t *testing.T, s store.IStore) {
	numKeys := 500

	for i := 0; i < numKeys; i++ {
		mustSet(t, s, fmt.Sprintf("key-%d", i), envelope.Int32(int32(i)))
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("key-%d", i)
		result, exists := mustGet(t, s, key)
		if !exists {
			t.Errorf("Key %s not found after Set", key)
			continue
		}
		if !result.Equal(envelope.Int32(int32(i))) {
			t.Errorf("Key %s: expected %d, got %#v", key, i, result)
		}
	}
}

func testConcurrentRemove(t *testing.T, s store.IStore) {
	numWorkers := 16
	rounds := 20

	for r := 0; r < rounds; r++ {
		key := fmt.Sprintf("contended-%d", r)
		mustSet(t, s, key, envelope.Int32(int32(r)))

		var removed atomic.Int32
		var wg sync.WaitGroup
		for w := 0; w < numWorkers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				existed, err := s.Remove(key)
				if err != nil {
					t.Errorf("Remove failed: %v", err)
					return
				}
				if existed {
					removed.Add(1)
				}
			}()
		}
		wg.Wait()

		// exactly one worker observed the entry
		if n := removed.Load(); n != 1 {
			t.Errorf("Round %d: expected exactly one successful Remove, got %d", r, n)
		}
	}
}

func testConcurrentMixed(t *testing.T, s store.IStore) {
	numWorkers := 8
	opsPerWorker := 200

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				shared := fmt.Sprintf("shared-%d", i%10)
				own := fmt.Sprintf("worker-%d-%d", worker, i)

				if err := s.Set(shared, envelope.Int32(int32(worker))); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				if err := s.Set(own, envelope.Int32(int32(i))); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				if v, ok, err := s.Get(shared); err != nil {
					t.Errorf("Get failed: %v", err)
					return
				} else if ok && v.Kind() != envelope.KindInt32 {
					t.Errorf("Unexpected kind %s for shared key", v.Kind())
				}
				if i%3 == 0 {
					if _, err := s.Remove(shared); err != nil {
						t.Errorf("Remove failed: %v", err)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()

	// keys written by a single worker must all be intact
	for w := 0; w < numWorkers; w++ {
		for i := 0; i < opsPerWorker; i++ {
			key := fmt.Sprintf("worker-%d-%d", w, i)
			result, exists := mustGet(t, s, key)
			if !exists || !result.Equal(envelope.Int32(int32(i))) {
				t.Errorf("Key %s: expected %d, got %#v (exists=%t)", key, i, result, exists)
			}
		}
	}
}
