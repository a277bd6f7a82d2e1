package epoch

import (
	"sync"
	"testing"
)

func TestForwardIsMonotonic(t *testing.T) {
	m := NewManager()

	if got := m.GlobalEpoch(); got != 1 {
		t.Fatalf("initial epoch = %d, want 1", got)
	}
	prev := m.GlobalEpoch()
	for i := 0; i < 10; i++ {
		next := m.Forward()
		if next != prev+1 {
			t.Fatalf("Forward = %d, want %d", next, prev+1)
		}
		prev = next
	}
}

func TestGuardPinsCreationEpoch(t *testing.T) {
	m := NewManager()
	m.Forward()
	m.Forward() // epoch 3

	g := m.CreateGuard()
	defer g.Release()

	m.Forward()
	if g.Epoch() != 3 {
		t.Errorf("guard epoch = %d, want 3", g.Epoch())
	}
}

func TestProtectedEpochsDescending(t *testing.T) {
	m := NewManager()
	lagging := m.CreateGuard() // pins 1
	m.Forward()
	m.Forward() // epoch 3

	g, epochs := m.ProtectedEpochs()
	defer g.Release()
	defer lagging.Release()

	want := []uint64{3, 2, 1}
	if len(epochs) != len(want) {
		t.Fatalf("epochs = %v, want %v", epochs, want)
	}
	for i := range want {
		if epochs[i] != want[i] {
			t.Fatalf("epochs = %v, want %v", epochs, want)
		}
	}
	if tail := epochs[len(epochs)-1]; tail != 1 {
		t.Errorf("oldest protected = %d, want lagging reader's 1", tail)
	}
}

func TestProtectedEpochsDedup(t *testing.T) {
	m := NewManager()
	g1 := m.CreateGuard()
	g2 := m.CreateGuard() // both pin 1

	g, epochs := m.ProtectedEpochs()
	defer g.Release()
	defer g1.Release()
	defer g2.Release()

	if len(epochs) != 1 || epochs[0] != 1 {
		t.Errorf("epochs = %v, want [1]", epochs)
	}
}

func TestMinProtected(t *testing.T) {
	m := NewManager()
	g := m.CreateGuard()
	m.Forward()
	m.Forward()

	if got := m.MinProtected(); got != 1 {
		t.Errorf("MinProtected = %d, want 1", got)
	}
	g.Release()
	if got := m.MinProtected(); got != 3 {
		t.Errorf("MinProtected after release = %d, want 3", got)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	m := NewManager()
	g := m.CreateGuard()
	g.Release()
	g.Release()

	if got := m.MinProtected(); got != 1 {
		t.Errorf("MinProtected = %d, want 1", got)
	}
}

func TestConcurrentGuards(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g := m.CreateGuard()
				m.Forward()
				pg, epochs := m.ProtectedEpochs()
				if len(epochs) == 0 {
					t.Error("empty protected set")
				}
				for i := 1; i < len(epochs); i++ {
					if epochs[i-1] <= epochs[i] {
						t.Error("protected set not strictly descending")
					}
				}
				pg.Release()
				g.Release()
			}
		}()
	}
	wg.Wait()
}
