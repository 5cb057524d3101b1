package contract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-rental-contract/internal/delivery"
	"github.com/a3tai/mcp-rental-contract/internal/document"
	"github.com/a3tai/mcp-rental-contract/internal/fields"
)

var fixedNow = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func sampleFields() fields.Schema {
	return fields.Schema{
		LandlordName:      "Mehmet Yılmaz",
		LandlordTcNo:      "12345678901",
		TenantName:        "Ayşe Demir",
		TenantPhone:       "+90 555 111 22 33",
		PropertyAddress:   "Moda Mah. Şair Nefi Sok. 7/3",
		PropertyDistrict:  "Kadıköy",
		PropertyCity:      "İstanbul",
		RoomCount:         "3+1",
		StartDate:         "2024-06-01",
		EndDate:           "2025-05-31",
		RentAmount:        "15000",
		Deposit:           "30000",
		Currency:          "TRY",
		PaymentDay:        "5",
		SpecialConditions: "Evcil hayvan beslenemez.",
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) kinds() []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *recordingNotifier) {
	t.Helper()
	cfg, err := document.DefaultConfig(zerolog.Nop())
	require.NoError(t, err)
	store := NewMemoryStore(0)
	n := &recordingNotifier{}
	ids := 0
	svc := NewService(store, cfg, n, Options{
		ExportWorkers: 2,
		Now:           func() time.Time { return fixedNow },
		NewID: func() string {
			ids++
			return fmt.Sprintf("contract-%d", ids)
		},
	})
	return svc, store, n
}

func TestServiceCreate(t *testing.T) {
	svc, store, n := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)
	assert.Equal(t, "contract-1", r.ID)
	assert.Equal(t, Draft, r.Status)
	assert.Equal(t, 1, r.DocumentRevision)
	assert.Equal(t, "Ayşe Demir", r.Tenant.Name)
	assert.NotEmpty(t, r.Document)
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, []EventKind{EventCreated}, n.kinds())

	info, err := document.Inspect(ctx, r.Document)
	require.NoError(t, err)
	assert.True(t, info.Fillable)
}

func TestServiceCreateRejectsInvalidFields(t *testing.T) {
	svc, store, _ := newTestService(t)
	f := sampleFields()
	f.TenantName = " "
	f.RentAmount = "çok"

	_, err := svc.Create(context.Background(), "office-1", f)
	var ve *fields.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(fields.TenantName))
	assert.True(t, ve.Has(fields.RentAmount))
	assert.Zero(t, store.Len())
}

func TestServiceEditCycle(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)

	reopened, mismatches, err := svc.ReopenForEdit(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, sampleFields(), reopened)

	reopened.RentAmount = "17500"
	reopened.TenantPhone = ""
	edited, err := svc.Edit(ctx, created.ID, reopened)
	require.NoError(t, err)
	assert.Equal(t, 2, edited.DocumentRevision)
	assert.Equal(t, "17500", edited.Terms.RentAmount)
	assert.NotEqual(t, created.Document, edited.Document)

	again, _, err := svc.ReopenForEdit(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "17500", again.RentAmount)
	assert.Empty(t, again.TenantPhone)
	assert.Equal(t, edited.ToSchema(), again)

	assert.Equal(t, []EventKind{EventCreated, EventEdited}, n.kinds())
}

func TestServiceEditFailureLeavesRecordUnchanged(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)

	bad := sampleFields()
	bad.EndDate = "2023-01-01"
	_, err = svc.Edit(ctx, created.ID, bad)
	var ve *fields.ValidationError
	require.ErrorAs(t, err, &ve)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Document, got.Document)
	assert.Equal(t, 1, got.DocumentRevision)
	assert.Equal(t, created.Version, got.Version)
}

func TestServiceEditClosedContract(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)
	_, err = svc.Transition(ctx, r.ID, Cancelled)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, r.ID, sampleFields())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestServiceTransitions(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, r.ID, Completed)
	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, Draft, te.From)
	assert.Contains(t, err.Error(), "allowed: active, cancelled")

	active, err := svc.Transition(ctx, r.ID, Active)
	require.NoError(t, err)
	assert.Equal(t, Active, active.Status)
	assert.Equal(t, r.Document, active.Document, "a transition never regenerates the document")
	assert.Equal(t, 1, active.DocumentRevision)

	done, err := svc.Transition(ctx, r.ID, Completed)
	require.NoError(t, err)
	assert.Equal(t, Completed, done.Status)

	_, err = svc.Transition(ctx, r.ID, Cancelled)
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "is final")

	_, err = svc.Transition(ctx, r.ID, Status("archived"))
	assert.Error(t, err)

	_, err = svc.Transition(ctx, "missing", Active)
	assert.ErrorIs(t, err, ErrNotFound)

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.events, 3)
	assert.Equal(t, Draft, n.events[1].From)
	assert.Equal(t, Active, n.events[1].To)
	assert.Contains(t, n.events[2].Message, "Tamamlandı")
}

func TestServiceFinalizeForPrint(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)

	flat, err := svc.FinalizeForPrint(ctx, r.ID)
	require.NoError(t, err)
	info, err := document.Inspect(ctx, flat)
	require.NoError(t, err)
	assert.True(t, info.Flattened)

	stored, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Document, stored.Document)
}

type printerFunc func(ctx context.Context, doc []byte) error

func (f printerFunc) Print(ctx context.Context, doc []byte) error { return f(ctx, doc) }

func TestServicePrintSendsFlattenedDocument(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)

	var printed []byte
	err = svc.Print(ctx, r.ID, printerFunc(func(_ context.Context, doc []byte) error {
		printed = doc
		return nil
	}))
	require.NoError(t, err)

	info, err := document.Inspect(ctx, printed)
	require.NoError(t, err)
	assert.False(t, info.Fillable)
	assert.Contains(t, n.kinds(), EventPrinted)

	failure := &delivery.DeliveryError{Op: "print", Err: errors.New("no printer")}
	err = svc.Print(ctx, r.ID, printerFunc(func(context.Context, []byte) error { return failure }))
	var de *delivery.DeliveryError
	assert.ErrorAs(t, err, &de)
}

func TestServiceDownload(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)

	sink, err := delivery.NewDirSink(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	loc, err := svc.Download(ctx, r.ID, sink)
	require.NoError(t, err)
	assert.Equal(t, "kira-sozlesmesi-ayse-demir-2024-06-01.pdf", loc.Name)

	saved, err := os.ReadFile(loc.Path)
	require.NoError(t, err)
	assert.Equal(t, r.Document, saved, "download delivers the fillable document as stored")
}

func TestServiceUsesOneClock(t *testing.T) {
	cfg, err := document.DefaultConfig(zerolog.Nop())
	require.NoError(t, err)
	// 01:30 on 2 June in Istanbul is still 1 June in UTC.
	istanbul := time.FixedZone("TRT", 3*60*60)
	late := time.Date(2024, 6, 2, 1, 30, 0, 0, istanbul)
	svc := NewService(NewMemoryStore(0), cfg, nil, Options{Now: func() time.Time { return late }})

	r, err := svc.Create(context.Background(), "office", sampleFields())
	require.NoError(t, err)
	assert.Equal(t, time.UTC, r.CreatedAt.Location())
	assert.Equal(t, "2024-06-01", r.CreatedAt.Format(delivery.DateLayout))

	sink, err := delivery.NewDirSink(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	loc, err := svc.Download(context.Background(), r.ID, sink)
	require.NoError(t, err)
	assert.Equal(t, "kira-sozlesmesi-ayse-demir-2024-06-01.pdf", loc.Name)
}

func TestServiceExportAll(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, tenant := range []string{"Ayşe Demir", "Ayşe Demir", "Ali Veli"} {
		f := sampleFields()
		f.TenantName = tenant
		_, err := svc.Create(ctx, "office-1", f)
		require.NoError(t, err)
	}
	other := sampleFields()
	other.TenantName = "Can Öz"
	_, err := svc.Create(ctx, "office-2", other)
	require.NoError(t, err)

	dir := t.TempDir()
	sink, err := delivery.NewDirSink(dir, zerolog.Nop())
	require.NoError(t, err)

	locs, err := svc.ExportAll(ctx, Filter{OfficeID: "office-1"}, sink)
	require.NoError(t, err)
	require.Len(t, locs, 3)

	var names []string
	for _, l := range locs {
		names = append(names, l.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"kira-sozlesmesi-ali-veli-2024-06-01.pdf",
		"kira-sozlesmesi-ayse-demir-2024-06-01-2.pdf",
		"kira-sozlesmesi-ayse-demir-2024-06-01.pdf",
	}, names)

	for _, l := range locs {
		b, err := os.ReadFile(l.Path)
		require.NoError(t, err)
		info, err := document.Inspect(ctx, b)
		require.NoError(t, err)
		assert.True(t, info.Flattened, l.Name)
	}
}

type failingSink struct{}

func (failingSink) Save(context.Context, string, []byte) (delivery.Location, error) {
	return delivery.Location{}, &delivery.DeliveryError{Op: "save", Err: errors.New("disk full")}
}

func TestServiceExportAllStopsOnError(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, "office-1", sampleFields())
		require.NoError(t, err)
	}

	_, err := svc.ExportAll(ctx, Filter{}, failingSink{})
	var de *delivery.DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, err.Error(), "disk full")
}

func TestServiceDelete(t *testing.T) {
	svc, store, n := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, "office-1", sampleFields())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, r.ID))
	assert.Zero(t, store.Len())
	assert.ErrorIs(t, svc.Delete(ctx, r.ID), ErrNotFound)
	assert.Equal(t, []EventKind{EventCreated, EventDeleted}, n.kinds())

	_, _, err = svc.ReopenForEdit(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRecordWithoutDocument(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &Record{ID: "legacy", Status: Active, CreatedAt: fixedNow}))

	_, _, err := svc.ReopenForEdit(ctx, "legacy")
	assert.ErrorIs(t, err, ErrNoDocument)
	_, err = svc.FinalizeForPrint(ctx, "legacy")
	assert.ErrorIs(t, err, ErrNoDocument)

	sink, err := delivery.NewDirSink(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	locs, err := svc.ExportAll(ctx, Filter{}, sink)
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestLogNotifier(t *testing.T) {
	var buf syncBuffer
	n := NewLogNotifier(zerolog.New(&buf))
	n.Notify(context.Background(), Event{Kind: EventTransition, RecordID: "a", From: Draft, To: Active, Message: "ok"})
	out := buf.String()
	assert.Contains(t, out, `"event":"transition"`)
	assert.Contains(t, out, `"from":"draft"`)
	assert.Contains(t, out, `"message":"ok"`)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
