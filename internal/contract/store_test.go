package contract

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id, office, tenant string, status Status, created time.Time) *Record {
	r := &Record{ID: id, OfficeID: office, Status: status, CreatedAt: created, UpdatedAt: created}
	r.Tenant.Name = tenant
	r.Property.Address = "Moda Mah. " + id
	r.Document = []byte("%PDF-" + id)
	return r
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	r := record("a", "o1", "Ayşe Demir", Draft, time.Now())
	require.NoError(t, m.Create(ctx, r))
	assert.Equal(t, 1, r.Version)

	r.Document[0] = 'X'
	r.Tenant.Name = "changed"

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Ayşe Demir", got.Tenant.Name)
	assert.Equal(t, byte('%'), got.Document[0])

	got.Document[0] = 'Y'
	again, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, byte('%'), again.Document[0])
}

func TestMemoryStoreErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(1)
	require.NoError(t, m.Create(ctx, record("a", "o1", "x", Draft, time.Now())))

	assert.ErrorIs(t, m.Create(ctx, record("a", "o1", "x", Draft, time.Now())), ErrExists)
	assert.ErrorIs(t, m.Create(ctx, record("b", "o1", "x", Draft, time.Now())), ErrStoreFull)

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Replace(ctx, record("missing", "o1", "x", Draft, time.Now())), ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "missing"), ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Get(cancelled, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreReplaceDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	require.NoError(t, m.Create(ctx, record("a", "o1", "x", Draft, time.Now())))

	first, err := m.Get(ctx, "a")
	require.NoError(t, err)
	second, err := m.Get(ctx, "a")
	require.NoError(t, err)

	first.Status = Active
	require.NoError(t, m.Replace(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Status = Cancelled
	assert.ErrorIs(t, m.Replace(ctx, second), ErrConflict)

	got, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, Active, got.Status)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.Create(ctx, record("c", "o1", "Can Öz", Active, base.Add(2*time.Hour))))
	require.NoError(t, m.Create(ctx, record("a", "o1", "Ayşe Demir", Draft, base)))
	require.NoError(t, m.Create(ctx, record("b", "o2", "Ali Veli", Draft, base.Add(time.Hour))))

	ids := func(rs []*Record) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all oldest first", Filter{}, []string{"a", "b", "c"}},
		{"office", Filter{OfficeID: "o1"}, []string{"a", "c"}},
		{"status", Filter{Status: Draft}, []string{"a", "b"}},
		{"query tenant", Filter{Query: "ayşe"}, []string{"a"}},
		{"query address", Filter{Query: "moda mah. c"}, []string{"c"}},
		{"limit", Filter{Limit: 2}, []string{"a", "b"}},
		{"no match", Filter{OfficeID: "o3"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFilterQueryFoldsTurkishLetters(t *testing.T) {
	r := record("d", "o1", "İlker Işık", Draft, time.Now())
	r.Landlord.Name = "Şükrü Öğüt"
	r.Property.Address = "Bağdat Cad. 12/4 İstanbul"

	for _, q := range []string{"istanbul", "İSTANBUL", "Istanbul", "ilker isik", "IŞIK", "sukru", "bagdat cad. 12", "12/4"} {
		assert.True(t, Filter{Query: q}.match(r), "query %q", q)
	}
	for _, q := range []string{"ankara", "ilker sukru"} {
		assert.False(t, Filter{Query: q}.match(r), "query %q", q)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("r%02d", i)
			assert.NoError(t, m.Create(ctx, record(id, "o1", "x", Draft, time.Now())))
			_, err := m.List(ctx, Filter{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, m.Len())
}

func TestDetailsSchemaRoundTrip(t *testing.T) {
	s := sampleFields()
	d := FromSchema(s)
	assert.Equal(t, "Ayşe Demir", d.Tenant.Name)
	assert.Equal(t, "Kadıköy", d.Property.District)
	assert.Equal(t, "15000", d.Terms.RentAmount)
	assert.Equal(t, s, d.ToSchema())
}

func TestSummarize(t *testing.T) {
	r := &Record{ID: "a", Status: Active, Details: FromSchema(sampleFields()), Document: []byte("x")}
	sum := r.Summarize()
	assert.Equal(t, "15000 TRY", sum.Rent)
	assert.Equal(t, "Aktif", sum.StatusLabel)
	assert.Equal(t, []Status{Completed, Cancelled}, sum.Next)
	assert.True(t, sum.HasDocument)
}
