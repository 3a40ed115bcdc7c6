package idgen_test

import (
	"regexp"
	"sync"
	"testing"

	"github.com/artpar/ocky/adapters/idgen"
)

var uuidV4 = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestUUID_New(t *testing.T) {
	g := idgen.UUID{}

	a, b := g.New(), g.New()
	if !uuidV4.MatchString(a) {
		t.Errorf("ID %s doesn't match UUID v4 format", a)
	}
	if a == b {
		t.Error("successive IDs should differ")
	}
}

func TestSequential(t *testing.T) {
	g := idgen.NewSequential("mod-")

	for _, want := range []string{"mod-1", "mod-2", "mod-3"} {
		if got := g.New(); got != want {
			t.Errorf("New() = %s, want %s", got, want)
		}
	}

	g.Reset()
	if got := g.New(); got != "mod-1" {
		t.Errorf("New() after Reset = %s, want mod-1", got)
	}
}

func TestSequential_Concurrent(t *testing.T) {
	g := idgen.NewSequential("")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.New()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Errorf("got %d distinct IDs, want 50", len(seen))
	}
}

func TestParse(t *testing.T) {
	if _, ok := idgen.Parse("uuid", "").(idgen.UUID); !ok {
		t.Error("Parse(uuid) should return UUID")
	}
	if _, ok := idgen.Parse("", "").(idgen.UUID); !ok {
		t.Error("Parse(\"\") should default to UUID")
	}
	if got := idgen.Parse("sequential", "n").New(); got != "n1" {
		t.Errorf("Parse(sequential).New() = %s, want n1", got)
	}
}
