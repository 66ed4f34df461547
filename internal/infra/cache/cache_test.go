package cache

import "testing"

func TestGetOrRenderCachesPerVersion(t *testing.T) {
	c, err := NewContextCache(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := 0
	render := func() (string, bool) {
		calls++
		return "ctx", true
	}

	c.GetOrRender(1, "M1", render)
	c.GetOrRender(1, "M1", render)
	if calls != 1 {
		t.Errorf("expected one render for the same version, got %d", calls)
	}
	c.GetOrRender(2, "M1", render)
	if calls != 2 {
		t.Errorf("expected a new version to render again, got %d", calls)
	}
}

func TestMissingMemberNotCached(t *testing.T) {
	c, _ := NewContextCache(4)
	if _, ok := c.GetOrRender(1, "GHOST", func() (string, bool) { return "", false }); ok {
		t.Errorf("expected miss for unknown member")
	}
	if c.Len() != 0 {
		t.Errorf("expected nothing cached, got %d", c.Len())
	}
}

func TestEvictionAndPurge(t *testing.T) {
	c, _ := NewContextCache(2)
	c.Put(1, "A", "a")
	c.Put(1, "B", "b")
	c.Put(1, "C", "c")
	if _, ok := c.Get(1, "A"); ok {
		t.Errorf("expected oldest entry evicted")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge")
	}
}
