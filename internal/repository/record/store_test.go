package record

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kailas-cloud/opsearch/internal/domain"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
)

func makeRecords(ids ...string) []domrec.Record {
	out := make([]domrec.Record, len(ids))
	for i, id := range ids {
		out[i] = domrec.New(map[string]string{
			"registro_ans": id,
			"razao_social": "OPERADORA " + id,
		})
	}
	return out
}

func TestStore_Empty(t *testing.T) {
	s := New("registro_ans")

	if s.Snapshot() != nil {
		t.Error("expected nil snapshot")
	}
	if s.AllRecords() != nil {
		t.Error("expected nil records")
	}
	if s.Version() != 0 {
		t.Errorf("Version() = %d", s.Version())
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d", s.Len())
	}
	if err := s.Ping(context.Background()); !errors.Is(err, domain.ErrDatasetNotLoaded) {
		t.Errorf("expected ErrDatasetNotLoaded, got %v", err)
	}
	if _, ok := s.Lookup("1"); ok {
		t.Error("lookup on empty store should miss")
	}
	page, total := s.Page(0, 10)
	if len(page) != 0 || total != 0 {
		t.Errorf("Page() = %d items, total %d", len(page), total)
	}
}

func TestStore_SwapKeepsOrder(t *testing.T) {
	s := New("registro_ans")
	snap := s.Swap(makeRecords("3", "1", "2"), "test")

	if snap.Version() != 1 {
		t.Errorf("Version() = %d, want 1", snap.Version())
	}
	if snap.Source() != "test" {
		t.Errorf("Source() = %q", snap.Source())
	}
	if snap.LoadedAt().IsZero() {
		t.Error("LoadedAt() is zero")
	}

	all := s.AllRecords()
	got := []string{all[0].Value("registro_ans"), all[1].Value("registro_ans"), all[2].Value("registro_ans")}
	want := []string{"3", "1", "2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestStore_SwapCopiesInput(t *testing.T) {
	s := New("registro_ans")
	in := makeRecords("1", "2")
	s.Swap(in, "test")

	in[0] = domrec.New(map[string]string{"registro_ans": "changed"})
	if got := s.AllRecords()[0].Value("registro_ans"); got != "1" {
		t.Errorf("store was mutated through input slice: %q", got)
	}
}

func TestStore_SwapReplacesSnapshot(t *testing.T) {
	s := New("registro_ans")
	first := s.Swap(makeRecords("1", "2"), "a")
	second := s.Swap(makeRecords("9"), "b")

	if second.Version() != 2 {
		t.Errorf("Version() = %d, want 2", second.Version())
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if first.Len() != 2 {
		t.Errorf("previous snapshot must stay intact, Len() = %d", first.Len())
	}
	if _, ok := s.Lookup("1"); ok {
		t.Error("old record still visible after swap")
	}
}

func TestStore_SwapNil(t *testing.T) {
	s := New("")
	s.Swap(nil, "empty")
	if s.AllRecords() == nil {
		t.Error("loaded empty snapshot should return empty, not nil")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("empty dataset is still loaded: %v", err)
	}
}

func TestStore_Lookup(t *testing.T) {
	s := New("registro_ans")
	recs := makeRecords("1", "2")
	recs = append(recs,
		domrec.New(map[string]string{"registro_ans": "1", "razao_social": "DUPLICATE"}),
		domrec.New(map[string]string{"razao_social": "NO ID"}),
	)
	s.Swap(recs, "test")

	r, ok := s.Lookup("1")
	if !ok {
		t.Fatal("expected hit")
	}
	if r.Value("razao_social") != "OPERADORA 1" {
		t.Errorf("first record must win on duplicates, got %q", r.Value("razao_social"))
	}
	if _, ok := s.Lookup(""); ok {
		t.Error("empty id must not match")
	}
}

func TestStore_LookupWithoutIDField(t *testing.T) {
	s := New("")
	s.Swap(makeRecords("1"), "test")
	if _, ok := s.Lookup("1"); ok {
		t.Error("lookup must miss without id field")
	}
}

func TestStore_Page(t *testing.T) {
	s := New("registro_ans")
	s.Swap(makeRecords("1", "2", "3", "4", "5"), "test")

	tests := []struct {
		offset, limit int
		wantLen       int
		wantFirst     string
	}{
		{0, 2, 2, "1"},
		{2, 2, 2, "3"},
		{4, 2, 1, "5"},
		{5, 2, 0, ""},
		{10, 2, 0, ""},
		{-1, 2, 2, "1"},
		{0, 100, 5, "1"},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("offset=%d,limit=%d", tc.offset, tc.limit), func(t *testing.T) {
			page, total := s.Page(tc.offset, tc.limit)
			if total != 5 {
				t.Errorf("total = %d", total)
			}
			if len(page) != tc.wantLen {
				t.Fatalf("len = %d, want %d", len(page), tc.wantLen)
			}
			if tc.wantLen > 0 && page[0].Value("registro_ans") != tc.wantFirst {
				t.Errorf("first = %q, want %q", page[0].Value("registro_ans"), tc.wantFirst)
			}
		})
	}
}

func TestStore_PageAppendDoesNotMutateSnapshot(t *testing.T) {
	s := New("registro_ans")
	s.Swap(makeRecords("1", "2", "3"), "test")

	page, _ := s.Page(0, 1)
	_ = append(page, makeRecords("9")...)

	if got := s.AllRecords()[1].Value("registro_ans"); got != "2" {
		t.Errorf("snapshot mutated through page, record[1] = %q", got)
	}
	if cap(page) != len(page) {
		t.Errorf("cap = %d, want %d", cap(page), len(page))
	}
}

func TestStore_ConcurrentReadsDuringSwap(t *testing.T) {
	s := New("registro_ans")
	s.Swap(makeRecords("1", "2", "3"), "test")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				recs := s.AllRecords()
				for _, r := range recs {
					_ = r.Value("razao_social")
				}
				if len(recs) != 3 && len(recs) != 2 {
					t.Errorf("torn read: %d records", len(recs))
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			s.Swap(makeRecords("a", "b"), "test")
		} else {
			s.Swap(makeRecords("1", "2", "3"), "test")
		}
	}
	wg.Wait()
}
