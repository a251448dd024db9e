// Package leads implements lead listing, CRUD and change events on top of a LeadStore.
package leads

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/leadflow/leadflow/internal/core/pubsub"
	"github.com/leadflow/leadflow/internal/core/storage/types"
	"github.com/leadflow/leadflow/internal/metrics"
	"github.com/leadflow/leadflow/pkg/model"
	"golang.org/x/sync/errgroup"
)

// ListParams selects one page of filtered leads. Page and Limit are expected
// to be normalized already.
type ListParams struct {
	Page    int
	Limit   int
	Filters model.FilterSet
}

// Page is one page of a listing.
type Page struct {
	Leads      []*model.Lead
	Page       int
	Limit      int
	Total      int64
	TotalPages int64
}

// Service defines lead operations
type Service interface {
	// List returns one page of leads matching the filters, newest first
	List(ctx context.Context, params ListParams) (*Page, error)

	// Get returns a lead by id
	Get(ctx context.Context, id string) (*model.Lead, error)

	// Create validates the payload, checks email uniqueness and stores a new lead
	Create(ctx context.Context, in model.LeadInput) (*model.Lead, error)

	// Update applies the supplied fields to an existing lead
	Update(ctx context.Context, id string, in model.LeadInput) (*model.Lead, error)

	// Delete removes a lead permanently
	Delete(ctx context.Context, id string) error

	// Export returns up to the configured maximum of matching leads, newest first
	Export(ctx context.Context, filters model.FilterSet) ([]*model.Lead, error)
}

type service struct {
	store     types.LeadStore
	publisher pubsub.Publisher
	config    Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a lead service. A nil publisher disables events.
func NewService(store types.LeadStore, publisher pubsub.Publisher, config Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = pubsub.Nop{}
	}
	config.ApplyDefaults()

	return &service{
		store:     store,
		publisher: publisher,
		config:    config,
		logger:    logger.With("component", "leads"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) List(ctx context.Context, params ListParams) (*Page, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = s.config.DefaultLimit
	}
	for field := range params.Filters {
		metrics.RecordFilterField(field)
	}

	var (
		leads []*model.Lead
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = s.store.Find(gctx, params.Filters, types.FindOptions{
			Skip:  int64(params.Page-1) * int64(params.Limit),
			Limit: int64(params.Limit),
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.store.Count(gctx, params.Filters)
		return err
	})
	err := g.Wait()
	metrics.RecordLeadOp("list", err)
	if err != nil {
		return nil, err
	}

	return &Page{
		Leads:      leads,
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: TotalPages(total, params.Limit),
	}, nil
}

func (s *service) Get(ctx context.Context, id string) (*model.Lead, error) {
	return s.store.Get(ctx, id)
}

func (s *service) Create(ctx context.Context, in model.LeadInput) (*model.Lead, error) {
	in.Normalize()
	if !in.HasRequired() {
		return nil, model.NewValidationError(MsgRequiredFields)
	}
	if err := ValidateInput(&in); err != nil {
		return nil, err
	}

	exists, err := s.store.ExistsByEmail(ctx, *in.Email, "")
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.ErrDuplicateEmail
	}

	lead := model.NewLead(in, s.now())
	err = s.store.Create(ctx, lead)
	metrics.RecordLeadOp("create", err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, newEvent(EventCreated, lead.ID, lead, s.now()))
	return lead, nil
}

func (s *service) Update(ctx context.Context, id string, in model.LeadInput) (*model.Lead, error) {
	// Resolves a malformed or unknown id before the payload is considered.
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}

	in.Normalize()
	if err := checkNotBlank(&in); err != nil {
		return nil, err
	}
	if err := ValidateInput(&in); err != nil {
		return nil, err
	}

	if in.Email != nil {
		exists, err := s.store.ExistsByEmail(ctx, *in.Email, id)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, model.ErrDuplicateEmail
		}
	}

	lead, err := s.store.Update(ctx, id, in)
	metrics.RecordLeadOp("update", err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, newEvent(EventUpdated, lead.ID, lead, s.now()))
	return lead, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	metrics.RecordLeadOp("delete", err)
	if err != nil {
		return err
	}
	s.publish(ctx, newEvent(EventDeleted, id, nil, s.now()))
	return nil
}

func (s *service) Export(ctx context.Context, filters model.FilterSet) ([]*model.Lead, error) {
	leads, err := s.store.Find(ctx, filters, types.FindOptions{Limit: int64(s.config.ExportMaxRows)})
	metrics.RecordLeadOp("export", err)
	return leads, err
}

// publish delivers the event after the write has committed. Failures are
// logged and never fail the request.
func (s *service) publish(ctx context.Context, evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("Failed to encode lead event", "type", evt.Type, "lead_id", evt.LeadID, "error", err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, evt.Type.Subject(), data); err != nil {
		s.logger.Warn("Failed to publish lead event",
			"type", evt.Type,
			"lead_id", evt.LeadID,
			"error", err)
	}
}

// checkNotBlank rejects required fields that an update supplies as blank.
func checkNotBlank(in *model.LeadInput) error {
	var fields []model.FieldError
	for _, f := range []struct {
		name string
		v    *string
	}{
		{"first_name", in.FirstName},
		{"last_name", in.LastName},
		{"email", in.Email},
	} {
		if f.v != nil && *f.v == "" {
			fields = append(fields, model.FieldError{Field: f.name, Message: "is required"})
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return model.NewValidationError(MsgRequiredFields, fields...)
}
