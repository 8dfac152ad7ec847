package protocol

import "testing"

func TestRegistryDetectFTMS(t *testing.T) {
	r := NewRegistry()
	c := r.Detect([]string{"00001826-0000-1000-8000-00805f9b34fb"})
	if c.Name() != FTMS {
		t.Fatalf("expected ftms codec, got %s", c.Name())
	}
}

func TestRegistryDetectStandard(t *testing.T) {
	r := NewRegistry()
	c := r.Detect([]string{"0000fe00-0000-1000-8000-00805f9b34fb"})
	if c.Name() != Standard {
		t.Fatalf("expected standard codec, got %s", c.Name())
	}
}

func TestRegistryDetectRejectsSubstring(t *testing.T) {
	r := NewRegistry()
	c := r.Detect([]string{"ab1826cd"})
	if c.Name() != Standard {
		t.Fatalf("1826 at the wrong position must not select ftms, got %s", c.Name())
	}
}

func TestRegistryMemoizesInstances(t *testing.T) {
	r := NewRegistry()
	a := r.Detect([]string{"1826"})
	b := r.Detect([]string{"00001826-0000-1000-8000-00805f9b34fb"})
	if a != b {
		t.Fatal("registry should hand out the same codec reference for a repeated variant")
	}

	s1 := r.Detect([]string{"fe00"})
	s2 := r.Detect(nil)
	if s1 != s2 {
		t.Fatal("registry should memoize the standard codec too")
	}
}
