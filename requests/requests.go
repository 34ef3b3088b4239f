// Package requests keeps the requests, form fields and statuses of the instance in sync
// with the backend. The three tables are loaded together and share one setup flag.
package requests

import (
	"context"
	"errors"
	"fmt"
	"procurement/bizerror"
	"procurement/collection"
	"procurement/domain"
	"procurement/idgen"
	"procurement/seed"
	"procurement/tables"
	"sync"
	"time"
)

type Options struct {
	IDs *idgen.Generator
	// Seed fills empty form_fields and statuses tables with the default catalog.
	Seed bool
	// SeedRequests also fills an empty requests table with the sample requests.
	SeedRequests bool
}

type State struct {
	Loading         bool     `json:"loading"`
	ConnectionError string   `json:"connectionError,omitempty"`
	MissingTables   []string `json:"missingTables"`
}

type Service struct {
	guard *collection.Guard

	requests *collection.Collection[int64, domain.Request]
	fields   *collection.Collection[string, domain.FormField]
	statuses *collection.Collection[string, domain.WorkflowStatus]
}

func NewService(client tables.Client, opts Options) *Service {
	ids := opts.IDs
	if ids == nil {
		ids = idgen.Default()
	}
	guard := collection.NewGuard()

	requestOpts := collection.Options[int64, domain.Request]{
		Table:   domain.TableRequests,
		Order:   &tables.Order{Column: "id", Descending: true},
		Prepend: true,
		NewKey:  ids.NextID,
		WithKey: func(r domain.Request, id int64) domain.Request { r.ID = id; return r },
		Guard:   guard,
	}
	fieldOpts := collection.Options[string, domain.FormField]{
		Table:   domain.TableFormFields,
		NewKey:  func() string { return ids.NextString(domain.CustomFieldPrefix) },
		WithKey: func(f domain.FormField, id string) domain.FormField { f.ID = id; return f },
		Normalize: func(rows []domain.FormField) []domain.FormField {
			return domain.EnsureStandardFields(domain.BackfillVisibility(rows), domain.BackfillVisibility(seed.FormFields()))
		},
		Guard: guard,
	}
	statusOpts := collection.Options[string, domain.WorkflowStatus]{
		Table:   domain.TableStatuses,
		NewKey:  func() string { return ids.NextString("status") },
		WithKey: func(s domain.WorkflowStatus, id string) domain.WorkflowStatus { s.ID = id; return s },
		Guard:   guard,
	}
	if opts.Seed {
		fieldOpts.Seed = seed.FormFields
		statusOpts.Seed = seed.Statuses
	}
	if opts.SeedRequests {
		requestOpts.Seed = seed.Requests
	}

	return &Service{
		guard:    guard,
		requests: collection.New(client, requestOpts),
		fields:   collection.New(client, fieldOpts),
		statuses: collection.New(client, statusOpts),
	}
}

// Load loads the three tables concurrently.
func (s *Service) Load(ctx context.Context) error {
	return s.each(func(l loader) error { return l.Load(ctx) })
}

// Start loads the three tables and keeps them in sync until Close.
func (s *Service) Start(ctx context.Context) error {
	return s.each(func(l loader) error { return l.Start(ctx) })
}

type loader interface {
	Load(ctx context.Context) error
	Start(ctx context.Context) error
	Close()
}

func (s *Service) loaders() []loader {
	return []loader{s.fields, s.statuses, s.requests}
}

func (s *Service) each(f func(l loader) error) error {
	loaders := s.loaders()
	errs := make([]error, len(loaders))
	wg := sync.WaitGroup{}
	for i, l := range loaders {
		wg.Add(1)
		go func(i int, l loader) {
			defer wg.Done()
			errs[i] = f(l)
		}(i, l)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Service) Close() {
	for _, l := range s.loaders() {
		l.Close()
	}
}

// Retry clears the setup flag and loads again.
func (s *Service) Retry(ctx context.Context) error {
	s.guard.Clear()
	return s.Load(ctx)
}

func (s *Service) Loading() bool {
	return s.requests.Loading() || s.fields.Loading() || s.statuses.Loading()
}

func (s *Service) State() State {
	state := State{Loading: s.Loading(), MissingTables: s.guard.MissingTables()}
	for _, msg := range []string{s.requests.LastError(), s.fields.LastError(), s.statuses.LastError()} {
		if msg != "" {
			state.ConnectionError = msg
			break
		}
	}
	return state
}

func (s *Service) ListRequests() []domain.Request {
	return s.requests.List()
}

func (s *Service) GetRequest(id int64) (domain.Request, bool) {
	return s.requests.Get(id)
}

// Rows decorates the requests with their status colour and overdue mark.
func (s *Service) Rows(today time.Time) []domain.RequestRow {
	statuses := s.statuses.List()
	requests := s.requests.List()
	rows := make([]domain.RequestRow, 0, len(requests))
	for _, r := range requests {
		rows = append(rows, domain.Row(r, statuses, today))
	}
	return rows
}

func (s *Service) AddRequest(ctx context.Context, c domain.RequestCreation) (domain.Request, *collection.Pending, error) {
	if err := domain.Validate(c); err != nil {
		return domain.Request{}, nil, err
	}
	r, err := domain.ValidateRequest(c.Request(), s.fields.List())
	if err != nil {
		return domain.Request{}, nil, err
	}
	assignItemIDs(r.Items)
	r, pending := s.requests.Add(ctx, r)
	return r, pending, nil
}

// UpdateRequest validates the patched request when it is cached. Custom values are only
// checked when the patch carries them. Validated items and custom values replace the ones of the patch.
func (s *Service) UpdateRequest(ctx context.Context, id int64, fields tables.Fields) (*collection.Pending, error) {
	_, hasItems := fields["items"]
	_, hasCustom := fields["customFields"]
	var validated domain.Request

	if current, found := s.requests.Get(id); found {
		merged, err := collection.MergeFields(current, fields)
		if err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		catalog := s.fields.List()
		if !hasCustom {
			merged.CustomFields = nil
			catalog = standardFields(catalog)
		}
		if validated, err = domain.ValidateRequest(merged, catalog); err != nil {
			return nil, err
		}
	} else {
		// the row is not cached, only the structured columns carried by the patch can be checked
		if !hasItems && !hasCustom {
			return s.requests.Update(ctx, id, fields)
		}
		partial, err := collection.MergeFields(domain.Request{}, tables.Fields{
			"items": fields["items"], "customFields": fields["customFields"],
		})
		if err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		if err := domain.ValidateItems(partial.Items); err != nil {
			return nil, err
		}
		if hasCustom {
			if partial.CustomFields, err = domain.ValidateCustomFields(partial.CustomFields, s.fields.List()); err != nil {
				return nil, err
			}
		}
		validated = partial
	}

	assignItemIDs(validated.Items)
	patch := tables.Fields{}
	for k, v := range fields {
		patch[k] = v
	}
	if hasItems {
		patch["items"] = validated.Items
	}
	if hasCustom {
		patch["customFields"] = validated.CustomFields
	}
	return s.requests.Update(ctx, id, patch)
}

func (s *Service) DeleteRequest(ctx context.Context, id int64) *collection.Pending {
	return s.requests.Delete(ctx, id)
}

func standardFields(catalog []domain.FormField) []domain.FormField {
	standard := make([]domain.FormField, 0, len(catalog))
	for _, f := range catalog {
		if f.IsStandard {
			standard = append(standard, f)
		}
	}
	return standard
}

func assignItemIDs(items domain.RequestItems) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = idgen.NewItemID()
		}
	}
}

func (s *Service) ListFormFields() []domain.FormField {
	return s.fields.List()
}

func (s *Service) AddFormField(ctx context.Context, c domain.FormFieldCreation) (domain.FormField, *collection.Pending, error) {
	if err := domain.Validate(c); err != nil {
		return domain.FormField{}, nil, err
	}
	field, pending := s.fields.Add(ctx, c.FormField())
	return field, pending, nil
}

func (s *Service) UpdateFormField(ctx context.Context, id string, fields tables.Fields) (*collection.Pending, error) {
	if domain.IsStandardField(id) {
		if standard, ok := fields["isStandard"].(bool); ok && !standard {
			return nil, fmt.Errorf("%w: %s", bizerror.ErrStandardField, id)
		}
	}
	return s.fields.Update(ctx, id, fields)
}

// DeleteFormField refuses standard fields, requests keep their values in dedicated columns.
func (s *Service) DeleteFormField(ctx context.Context, id string) (*collection.Pending, error) {
	if domain.IsStandardField(id) {
		return nil, fmt.Errorf("%w: %s", bizerror.ErrStandardField, id)
	}
	if field, found := s.fields.Get(id); found && field.IsStandard {
		return nil, fmt.Errorf("%w: %s", bizerror.ErrStandardField, id)
	}
	return s.fields.Delete(ctx, id), nil
}

// ReplaceFormFields swaps the whole catalog, typically after a reorder. Every standard field must remain.
func (s *Service) ReplaceFormFields(ctx context.Context, fields []domain.FormField) (*collection.Pending, error) {
	present := map[string]bool{}
	for _, f := range fields {
		if f.ID == "" {
			return nil, &bizerror.ErrBadParam{Cause: errors.New("form field without id")}
		}
		if present[f.ID] {
			return nil, &bizerror.ErrBadParam{Cause: fmt.Errorf("duplicate form field %s", f.ID)}
		}
		present[f.ID] = true
	}
	for _, id := range domain.StandardFieldIDs {
		if !present[id] {
			return nil, fmt.Errorf("%w: %s", bizerror.ErrStandardField, id)
		}
	}
	replacement := make([]domain.FormField, len(fields))
	copy(replacement, fields)
	return s.fields.ReplaceAll(ctx, domain.BackfillVisibility(replacement)), nil
}

func (s *Service) ListStatuses() []domain.WorkflowStatus {
	return s.statuses.List()
}

func (s *Service) AddStatus(ctx context.Context, c domain.StatusCreation) (domain.WorkflowStatus, *collection.Pending, error) {
	if err := domain.Validate(c); err != nil {
		return domain.WorkflowStatus{}, nil, err
	}
	status, pending := s.statuses.Add(ctx, domain.WorkflowStatus{Name: c.Name, Color: c.Color})
	return status, pending, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, fields tables.Fields) (*collection.Pending, error) {
	if color, ok := fields["color"]; ok {
		if !validColor(color) {
			return nil, &bizerror.ErrBadParam{Cause: fmt.Errorf("unknown color %v", color)}
		}
	}
	return s.statuses.Update(ctx, id, fields)
}

func validColor(v interface{}) bool {
	color, _ := v.(string)
	switch color {
	case domain.ColorYellow, domain.ColorBlue, domain.ColorPurple, domain.ColorGreen, domain.ColorRed, domain.ColorGray:
		return true
	}
	return false
}

func (s *Service) DeleteStatus(ctx context.Context, id string) *collection.Pending {
	return s.statuses.Delete(ctx, id)
}

// StatusColor resolves a status name, names without a definition are gray.
func (s *Service) StatusColor(name string) string {
	return domain.StatusColor(s.statuses.List(), name)
}

func (s *Service) Dashboard(today time.Time) domain.Summary {
	return domain.Summarize(s.requests.List(), s.statuses.List(), today)
}
