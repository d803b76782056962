package report

import (
	"fmt"
	"sync"
	"testing"
)

func TestAddDeduplicates(t *testing.T) {
	r := New("test.jpg", []string{"watchlist"}, KindEntity)
	rec := Record{FilePath: "test.jpg", Source: "test.jpg", IdentityName: "Jane Doe", Score: 0.42}

	if !r.Add(rec) {
		t.Fatal("first add should succeed")
	}
	if r.Add(rec) {
		t.Error("identical record should be ignored")
	}
	if r.Count() != 1 {
		t.Errorf("expected count 1, got %d", r.Count())
	}
	if len(r.Records()) != 1 {
		t.Errorf("expected 1 record, got %d", len(r.Records()))
	}
}

func TestAddDistinguishesByKey(t *testing.T) {
	r := New("test.jpg", nil, KindEntity)
	base := Record{FilePath: "a.jpg", Source: "src", IdentityName: "Jane Doe", Score: 0.42}

	r.Add(base)

	other := base
	other.Score = 0.43
	if !r.Add(other) {
		t.Error("record with different score should be added")
	}

	other = base
	other.IdentityName = "John Doe"
	if !r.Add(other) {
		t.Error("record with different identity should be added")
	}

	if r.Count() != 3 {
		t.Errorf("expected count 3, got %d", r.Count())
	}
}

func TestRoundScoreStabilizesKey(t *testing.T) {
	a := Record{FilePath: "f", Source: "s", IdentityName: "n", Score: 0.4200000001}
	b := Record{FilePath: "f", Source: "s", IdentityName: "n", Score: 0.4199999999}
	if a.Key() != b.Key() {
		t.Errorf("keys should match after rounding: %q vs %q", a.Key(), b.Key())
	}
}

func TestAddConcurrent(t *testing.T) {
	r := New("crawl", nil, KindAlephCrawl)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Add(Record{
					FilePath:     fmt.Sprintf("file-%d.jpg", i),
					Source:       "collection",
					IdentityName: "Jane Doe",
					Score:        0.5,
				})
			}
		}()
	}
	wg.Wait()

	// every worker produced the same 100 dedup keys
	if r.Count() != 100 {
		t.Errorf("expected 100 distinct records, got %d", r.Count())
	}
}

func TestNormalizeIdentityName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Jan Novák", "jan novak"},
		{"jan-novak", "jan novak"},
		{"  Jane   Doe ", "jane doe"},
		{"Jiří", "jiri"},
	}
	for _, c := range cases {
		if got := NormalizeIdentityName(c.in); got != c.want {
			t.Errorf("NormalizeIdentityName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
