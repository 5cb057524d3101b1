package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-rental-contract/internal/delivery"
	"github.com/a3tai/mcp-rental-contract/internal/document"
	"github.com/a3tai/mcp-rental-contract/internal/fields"
)

// DocumentKind prefixes every delivered contract file name.
const DocumentKind = "kira-sozlesmesi"

var (
	// ErrNoDocument is returned for records that carry no document bytes.
	ErrNoDocument = errors.New("contract has no document")
	// ErrClosed is returned when editing a completed or cancelled contract.
	ErrClosed = errors.New("contract is closed for editing")
)

// TransitionError reports a status change the lifecycle does not allow.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	if len(e.From.Next()) == 0 {
		return fmt.Sprintf("cannot move contract from %s to %s: %s is final", e.From, e.To, e.From)
	}
	return fmt.Sprintf("cannot move contract from %s to %s (allowed: %s)", e.From, e.To, joinStatuses(e.From.Next()))
}

func joinStatuses(ss []Status) string {
	parts := make([]string, len(ss))
	for i, s := range ss {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// Options tune a Service.
type Options struct {
	// ExportWorkers bounds concurrent work in ExportAll.
	ExportWorkers int
	Now           func() time.Time
	NewID         func() string
}

// Service runs the contract lifecycle on top of a Store and the document
// pipeline.
type Service struct {
	store     Store
	builder   *document.Builder
	extractor *document.Extractor
	preparer  *document.Preparer
	notifier  Notifier
	log       zerolog.Logger

	workers int
	// now is the single UTC clock for record stamps and file name dates.
	now     func() time.Time
	newID   func() string
}

// NewService wires a service. notifier may be nil.
func NewService(store Store, cfg document.Config, notifier Notifier, opts Options) *Service {
	if notifier == nil {
		notifier = NewLogNotifier(cfg.Logger)
	}
	if opts.ExportWorkers <= 0 {
		opts.ExportWorkers = 4
	}
	clock := opts.Now
	if clock == nil {
		clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		store:     store,
		builder:   document.NewBuilder(cfg),
		extractor: document.NewExtractor(cfg),
		preparer:  document.NewPreparer(cfg),
		notifier:  notifier,
		log:       cfg.Logger.With().Str("component", "contracts").Logger(),
		workers:   opts.ExportWorkers,
		now:       func() time.Time { return clock().UTC() },
		newID:     opts.NewID,
	}
}

// Create validates s, builds its document and stores a new draft.
func (s *Service) Create(ctx context.Context, officeID string, f fields.Schema) (*Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.builder.Build(ctx, f)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := &Record{
		ID:               s.newID(),
		OfficeID:         officeID,
		Status:           Draft,
		Details:          FromSchema(f),
		Document:         doc,
		DocumentRevision: 1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to store contract: %w", err)
	}

	s.notify(ctx, r, Event{Kind: EventCreated, To: Draft, Message: "Sözleşme oluşturuldu"})
	return r, nil
}

// Get returns a record.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.store.Get(ctx, id)
}

// List returns records matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]*Record, error) {
	return s.store.List(ctx, f)
}

// ReopenForEdit reads the field values back out of the stored document.
// The document, not the structured details, is the source of truth here.
func (s *Service) ReopenForEdit(ctx context.Context, id string) (fields.Schema, []document.FieldMismatch, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return fields.Schema{}, nil, err
	}
	if len(r.Document) == 0 {
		return fields.Schema{}, nil, fmt.Errorf("%w: %s", ErrNoDocument, id)
	}
	return s.extractor.Extract(ctx, r.Document)
}

// Edit regenerates the document from f and replaces the record's document
// and details in one store write. On any failure the record is unchanged.
func (s *Service) Edit(ctx context.Context, id string, f fields.Schema) (*Record, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", ErrClosed, id, r.Status)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.builder.Build(ctx, f)
	if err != nil {
		return nil, err
	}

	r.Details = FromSchema(f)
	r.Document = doc
	r.DocumentRevision++
	r.UpdatedAt = s.now()
	if err := s.store.Replace(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to store contract: %w", err)
	}

	s.notify(ctx, r, Event{Kind: EventEdited, Message: "Sözleşme güncellendi"})
	return r, nil
}

// Transition moves a record to another status. The document is left as
// it is.
func (s *Service) Transition(ctx context.Context, id string, to Status) (*Record, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("unknown status %q", to)
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := r.Status
	if !from.CanTransition(to) {
		return nil, &TransitionError{From: from, To: to}
	}

	r.Status = to
	r.UpdatedAt = s.now()
	if err := s.store.Replace(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to store contract: %w", err)
	}

	s.notify(ctx, r, Event{
		Kind:    EventTransition,
		From:    from,
		To:      to,
		Message: fmt.Sprintf("Sözleşme durumu güncellendi: %s", to.Label()),
	})
	return r, nil
}

// FinalizeForPrint returns a flattened copy of the stored document. The
// record keeps its fillable document.
func (s *Service) FinalizeForPrint(ctx context.Context, id string) ([]byte, error) {
	r, err := s.documentOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.preparer.Flatten(ctx, r.Document)
}

// Download saves the stored, still fillable document to sink under
// "kira-sozlesmesi-<tenant>-<today>.pdf".
func (s *Service) Download(ctx context.Context, id string, sink delivery.Sink) (delivery.Location, error) {
	r, err := s.documentOf(ctx, id)
	if err != nil {
		return delivery.Location{}, err
	}
	name := delivery.Filename(DocumentKind, r.Tenant.Name, s.now())
	loc, err := sink.Save(ctx, name, r.Document)
	if err != nil {
		return delivery.Location{}, err
	}
	s.notify(ctx, r, Event{Kind: EventDownloaded, Message: "Sözleşme indirildi: " + name})
	return loc, nil
}

// Print flattens the stored document and sends it to printer.
func (s *Service) Print(ctx context.Context, id string, printer delivery.Printer) error {
	r, err := s.documentOf(ctx, id)
	if err != nil {
		return err
	}
	flat, err := s.preparer.Flatten(ctx, r.Document)
	if err != nil {
		return err
	}
	if err := printer.Print(ctx, flat); err != nil {
		return err
	}
	s.notify(ctx, r, Event{Kind: EventPrinted, Message: "Sözleşme yazdırıldı"})
	return nil
}

// ExportAll flattens the documents of every matching record and saves them
// to sink concurrently. The first failure cancels the remaining work.
// Records without a document are skipped.
func (s *Service) ExportAll(ctx context.Context, f Filter, sink delivery.Sink) ([]delivery.Location, error) {
	records, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	type job struct {
		record *Record
		name   string
	}
	var jobs []job
	taken := make(map[string]int)
	today := s.now()
	for _, r := range records {
		if len(r.Document) == 0 {
			s.log.Warn().Str("contract", r.ID).Msg("skipping contract without document")
			continue
		}
		name := delivery.Filename(DocumentKind, r.Tenant.Name, today)
		taken[name]++
		if n := taken[name]; n > 1 {
			name = strings.TrimSuffix(name, ".pdf") + fmt.Sprintf("-%d.pdf", n)
		}
		jobs = append(jobs, job{record: r, name: name})
	}

	locations := make([]delivery.Location, len(jobs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i, j := range jobs {
		eg.Go(func() error {
			flat, err := s.preparer.Flatten(gctx, j.record.Document)
			if err != nil {
				return fmt.Errorf("contract %s: %w", j.record.ID, err)
			}
			loc, err := sink.Save(gctx, j.name, flat)
			if err != nil {
				return fmt.Errorf("contract %s: %w", j.record.ID, err)
			}
			locations[i] = loc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	s.log.Info().Int("exported", len(locations)).Int("matched", len(records)).Msg("contracts exported")
	return locations, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id string) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, r, Event{Kind: EventDeleted, Message: "Sözleşme silindi"})
	return nil
}

func (s *Service) documentOf(ctx context.Context, id string) (*Record, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(r.Document) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocument, id)
	}
	return r, nil
}

func (s *Service) notify(ctx context.Context, r *Record, e Event) {
	e.RecordID = r.ID
	e.OfficeID = r.OfficeID
	e.At = s.now()
	s.notifier.Notify(ctx, e)
}
