package testing

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/sdcs/lib/envelope"
)

// RunStoreBenchmarks runs the standard benchmarks for a store.IStore implementation.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			s := factory()
			value := envelope.String("benchmark-value")
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := s.Set(fmt.Sprintf("key-%d", i%1000), value); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("Get", func(b *testing.B) {
			s := factory()
			for i := 0; i < 1000; i++ {
				if err := s.Set(fmt.Sprintf("key-%d", i), envelope.Int32(int32(i))); err != nil {
					b.Fatal(err)
				}
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := s.Get(fmt.Sprintf("key-%d", i%1000)); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("Remove", func(b *testing.B) {
			s := factory()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Remove(fmt.Sprintf("key-%d", i%1000)); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run("MixedParallel", func(b *testing.B) {
			s := factory()
			var counter atomic.Uint64
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					n := counter.Add(1)
					key := fmt.Sprintf("key-%d", n%1000)
					var err error
					switch n % 4 {
					case 0:
						_, err = s.Remove(key)
					case 1:
						err = s.Set(key, envelope.Int32(int32(n)))
					default:
						_, _, err = s.Get(key)
					}
					if err != nil {
						b.Error(err)
						return
					}
				}
			})
		})
	})
}
