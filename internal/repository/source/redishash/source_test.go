package redishash

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/opsearch/internal/db"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
)

// mockHashStore is an in-memory hash store.
type mockHashStore struct {
	hashes     map[string]map[string]string
	scanKeys   []string // overrides the listing when set
	scanErr    error
	getErr     error
	setErr     error
	getBatches [][]string
	setBatches int
}

func newMockHashStore() *mockHashStore {
	return &mockHashStore{hashes: map[string]map[string]string{}}
}

func (m *mockHashStore) Scan(_ context.Context, _ string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	if m.scanKeys != nil {
		return append([]string(nil), m.scanKeys...), nil
	}
	keys := make([]string, 0, len(m.hashes))
	for k := range m.hashes {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *mockHashStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.getBatches = append(m.getBatches, append([]string(nil), keys...))
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
	}
	return out, nil
}

func (m *mockHashStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.setBatches++
	for _, it := range items {
		m.hashes[it.Key] = it.Fields
	}
	return nil
}

func TestLoad_SortedByKey(t *testing.T) {
	ms := newMockHashStore()
	ms.hashes["operadora:3"] = map[string]string{"registro_ans": "3", "razao_social": "UNIMED BH"}
	ms.hashes["operadora:1"] = map[string]string{"registro_ans": "1", "razao_social": "BRADESCO SAUDE S.A."}
	ms.hashes["operadora:2"] = map[string]string{"registro_ans": "2", "razao_social": "AMIL"}

	src := New(ms, "", 2)
	records, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got := records[i].Value("registro_ans"); got != want {
			t.Errorf("records[%d] = %q, want %q", i, got, want)
		}
	}
	if len(ms.getBatches) != 2 || len(ms.getBatches[0]) != 2 || len(ms.getBatches[1]) != 1 {
		t.Errorf("unexpected batching: %v", ms.getBatches)
	}
	if src.Name() != "redis:operadora:*" {
		t.Errorf("Name() = %q", src.Name())
	}
}

func TestLoad_SkipsVanishedAndDuplicateKeys(t *testing.T) {
	ms := newMockHashStore()
	ms.hashes["operadora:1"] = map[string]string{"registro_ans": "1"}
	ms.scanKeys = []string{"operadora:1", "operadora:gone", "operadora:1"}

	records, err := New(ms, "", 0).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestLoad_Errors(t *testing.T) {
	scanFail := newMockHashStore()
	scanFail.scanErr = errors.New("scan failed")
	if _, err := New(scanFail, "", 0).Load(context.Background()); !errors.Is(err, scanFail.scanErr) {
		t.Errorf("expected scan error, got %v", err)
	}

	getFail := newMockHashStore()
	getFail.hashes["operadora:1"] = map[string]string{"a": "b"}
	getFail.getErr = errors.New("hgetall failed")
	if _, err := New(getFail, "", 0).Load(context.Background()); !errors.Is(err, getFail.getErr) {
		t.Errorf("expected hgetall error, got %v", err)
	}
}

func TestLoad_Empty(t *testing.T) {
	records, err := New(newMockHashStore(), "", 0).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", records)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	ms := newMockHashStore()
	src := New(ms, "operadora:*", 2)
	in := []domrec.Record{
		domrec.New(map[string]string{"registro_ans": "339679", "razao_social": "UNIMED BH"}),
		domrec.New(map[string]string{"razao_social": "NO ID"}),
		domrec.New(map[string]string{"registro_ans": "326305", "razao_social": "AMIL"}),
		domrec.New(map[string]string{"registro_ans": "005711", "razao_social": "BRADESCO SAUDE S.A."}),
	}

	n, err := src.Save(context.Background(), in, "registro_ans")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != 3 {
		t.Errorf("written = %d, want 3", n)
	}
	if ms.setBatches != 2 {
		t.Errorf("setBatches = %d, want 2", ms.setBatches)
	}
	if ms.hashes["operadora:339679"]["razao_social"] != "UNIMED BH" {
		t.Errorf("hashes = %v", ms.hashes)
	}

	out, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 3 || out[0].Value("registro_ans") != "005711" {
		t.Errorf("round trip = %v", out)
	}
}

func TestSave_Errors(t *testing.T) {
	ms := newMockHashStore()
	ms.setErr = errors.New("hset failed")
	recs := []domrec.Record{domrec.New(map[string]string{"registro_ans": "1"})}

	if _, err := New(ms, "", 0).Save(context.Background(), recs, "registro_ans"); !errors.Is(err, ms.setErr) {
		t.Errorf("expected hset error, got %v", err)
	}
	if _, err := New(ms, "op:*:x", 0).Save(context.Background(), recs, "registro_ans"); err == nil {
		t.Error("expected error for pattern without plain prefix")
	}
}
