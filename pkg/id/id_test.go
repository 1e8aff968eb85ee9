package id_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/labi-le/astaroth/pkg/id"
)

func TestNew_Distinct(t *testing.T) {
	const calls = 64

	var (
		mu   sync.Mutex
		seen = make(map[id.Unique]struct{}, calls)
		wg   sync.WaitGroup
	)

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := id.New()
			mu.Lock()
			seen[v] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != calls {
		t.Fatalf("got %d unique ids out of %d calls", len(seen), calls)
	}
}

func TestNew_DistinctPropertyNames(t *testing.T) {
	a := fmt.Sprintf("ASTAROTH_SELECTION_%d", id.New())
	b := fmt.Sprintf("ASTAROTH_SELECTION_%d", id.New())
	if a == b {
		t.Fatalf("two retrievals derived the same scratch property name %q", a)
	}
}
