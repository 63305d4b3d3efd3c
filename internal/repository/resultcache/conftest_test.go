package resultcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/opsearch/internal/db"
	domrec "github.com/kailas-cloud/opsearch/internal/domain/record"
	"github.com/kailas-cloud/opsearch/internal/domain/search/query"
	"github.com/kailas-cloud/opsearch/internal/domain/search/result"
)

type mockExecutor struct {
	res   result.Result
	err   error
	calls int
}

func (m *mockExecutor) Execute(_ context.Context, q query.Query) (result.Result, error) {
	m.calls++
	if err := q.Validate(); err != nil {
		return result.Result{}, err
	}
	return m.res, m.err
}

type fixedVersion uint64

func (v *fixedVersion) Version() uint64 { return uint64(*v) }

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	getKeys []string
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.getKeys = append(m.getKeys, key)
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func sampleResult() result.Result {
	return result.Assemble("amil", 10, 0.5, []result.Match{
		result.NewMatch(domrec.New(map[string]string{
			"registro_ans": "326305",
			"razao_social": "AMIL ASSISTENCIA MEDICA INTERNACIONAL S.A.",
		}), 1),
		result.NewMatch(domrec.New(map[string]string{
			"registro_ans": "359017",
			"razao_social": "AMIL SAUDE",
		}), 0.8),
	})
}

func newTestCache(t *testing.T, inner *mockExecutor, version *fixedVersion) (*CachedExecutor, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, version, ms, 0, nil, zap.NewNop()), ms
}

func mustQuery(t *testing.T, term string) query.Query {
	t.Helper()
	q, err := query.New(term, 10, nil)
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	return q
}
