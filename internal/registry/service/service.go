// Package service is the resource registry: it creates non-fungible
// resources, mints records into them and enforces each resource's roles.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"badgeissuer/internal/authz"
	"badgeissuer/internal/metadata"
	"badgeissuer/internal/registry/metrics"
	"badgeissuer/internal/registry/models"
	"badgeissuer/pkg/attrs"
	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
	"badgeissuer/pkg/platform/audit"
	"badgeissuer/pkg/platform/sentinel"
	"badgeissuer/pkg/requestcontext"
)

const defaultMintAttempts = 3

var (
	ErrFieldImmutable  = dErrors.New(dErrors.CodeInvalidInput, "field is not mutable")
	ErrAlreadyRecalled = dErrors.New(dErrors.CodeInvalidState, "non-fungible already recalled")
)

type Store interface {
	CreateResource(ctx context.Context, def *models.ResourceDefinition) error
	GetResource(ctx context.Context, addr domain.ResourceAddress) (*models.ResourceDefinition, error)
	UpdateResource(ctx context.Context, addr domain.ResourceAddress, fn func(*models.ResourceDefinition) error) (*models.ResourceDefinition, error)
	InsertNonFungible(ctx context.Context, nf *models.NonFungible) error
	GetNonFungible(ctx context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID) (*models.NonFungible, error)
	ListNonFungibles(ctx context.Context, addr domain.ResourceAddress) ([]*models.NonFungible, error)
	UpdateNonFungible(ctx context.Context, addr domain.ResourceAddress, id domain.NonFungibleLocalID, fn func(*models.NonFungible) error) (*models.NonFungible, error)
}

type AddressAllocator interface {
	NewResourceAddress() domain.ResourceAddress
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Manager owns every resource it creates. All role checks happen here.
type Manager struct {
	store          Store
	addresses      AddressAllocator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	newLocalID     func() domain.NonFungibleLocalID
	mintAttempts   int
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(m *Manager) {
		m.auditPublisher = publisher
	}
}

func WithMetrics(met *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = met
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(m *Manager) {
		if tracer != nil {
			m.tracer = tracer
		}
	}
}

// WithLocalIDGenerator replaces the RUID source.
func WithLocalIDGenerator(fn func() domain.NonFungibleLocalID) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newLocalID = fn
		}
	}
}

// WithMintAttempts bounds retries when a generated local id collides.
func WithMintAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.mintAttempts = n
		}
	}
}

func New(store Store, addresses AddressAllocator, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		addresses:    addresses,
		tracer:       noop.NewTracerProvider().Tracer("registry"),
		newLocalID:   domain.NewRUID,
		mintAttempts: defaultMintAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateNonFungible creates a resource with RUID local ids.
func (m *Manager) CreateNonFungible(ctx context.Context, spec models.ResourceSpec) (_ *models.ResourceDefinition, err error) {
	ctx, span := m.tracer.Start(ctx, "registry.CreateNonFungible")
	defer func() { endSpan(span, err) }()

	if err := spec.Owner.Validate(); err != nil {
		return nil, err
	}
	for key, rule := range spec.Roles {
		if _, err := authz.ParseRoleKey(string(key)); err != nil {
			return nil, err
		}
		if err := rule.Validate(); err != nil {
			return nil, err
		}
	}
	for _, key := range spec.Metadata.Keys() {
		if err := metadata.ValidateKey(key); err != nil {
			return nil, err
		}
	}

	def := &models.ResourceDefinition{
		Address:       m.addresses.NewResourceAddress(),
		Owner:         spec.Owner,
		Roles:         spec.Roles.Clone(),
		MutableFields: spec.MutableFields,
		Metadata:      spec.Metadata.Clone(),
		CreatedAt:     requestcontext.Now(ctx).UTC().Truncate(time.Second),
	}
	if def.Metadata == nil {
		def.Metadata = metadata.Map{}
	}
	span.SetAttributes(attribute.String("resource_address", def.Address.String()))

	if err := m.store.CreateResource(ctx, def); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create resource")
	}

	m.logAudit(ctx, audit.EventResourceCreated,
		"resource_address", def.Address.String(),
		"owner_rule", def.Owner.String())
	if m.metrics != nil {
		m.metrics.IncrementResourcesCreated()
	}
	return def.Clone(), nil
}

// Mint creates one record with a registry-assigned local id. The zone must
// satisfy the resource's minter role. Supply grows by exactly one on
// success and not at all on failure.
func (m *Manager) Mint(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, data map[string]string, holder domain.AccountAddress) (_ *models.NonFungible, err error) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "registry.Mint",
		trace.WithAttributes(attribute.String("resource_address", resource.String())))
	defer func() { endSpan(span, err) }()

	def, err := m.loadResource(ctx, resource)
	if err != nil {
		return nil, err
	}
	if err := m.authorize(ctx, zone, def, authz.RoleMinter, "mint"); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(data))
	for k, v := range data {
		fields[k] = v
	}
	mintedAt := requestcontext.Now(ctx).UTC()

	for attempt := 1; ; attempt++ {
		nf := &models.NonFungible{
			Resource: resource,
			LocalID:  m.newLocalID(),
			Data:     fields,
			Holder:   holder,
			MintedAt: mintedAt,
		}
		err = m.store.InsertNonFungible(ctx, nf)
		if err == nil {
			span.SetAttributes(attribute.String("local_id", nf.LocalID.String()))
			m.logAudit(ctx, audit.EventNonFungibleMinted,
				"resource_address", resource.String(),
				"local_id", nf.LocalID.String(),
				"holder", holder.String())
			if m.metrics != nil {
				m.metrics.IncrementMinted()
				m.metrics.ObserveMint(start)
			}
			return nf.Clone(), nil
		}
		if !errors.Is(err, sentinel.ErrConflict) || attempt >= m.mintAttempts {
			break
		}
		if m.logger != nil {
			m.logger.WarnContext(ctx, "local id collision, retrying",
				"resource_address", resource.String(),
				"attempt", attempt)
		}
	}
	return nil, translate(err, "resource", "failed to mint")
}

// UpdateData changes one declared-mutable field of a record.
func (m *Manager) UpdateData(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, id domain.NonFungibleLocalID, field, value string) (_ *models.NonFungible, err error) {
	ctx, span := m.tracer.Start(ctx, "registry.UpdateData",
		trace.WithAttributes(
			attribute.String("resource_address", resource.String()),
			attribute.String("local_id", id.String())))
	defer func() { endSpan(span, err) }()

	def, err := m.loadResource(ctx, resource)
	if err != nil {
		return nil, err
	}
	if err := m.authorize(ctx, zone, def, authz.RoleNonFungibleDataUpdater, "update non-fungible data"); err != nil {
		return nil, err
	}
	if !def.IsMutable(field) {
		return nil, ErrFieldImmutable
	}

	updated, err := m.store.UpdateNonFungible(ctx, resource, id, func(nf *models.NonFungible) error {
		if nf.Data == nil {
			nf.Data = map[string]string{}
		}
		nf.Data[field] = value
		return nil
	})
	if err != nil {
		return nil, translate(err, "non-fungible", "failed to update non-fungible")
	}
	m.logAudit(ctx, audit.EventNonFungibleUpdated,
		"resource_address", resource.String(),
		"local_id", id.String(),
		"field", field)
	return updated, nil
}

// Recall takes a record back from its holder. A record can be recalled
// once.
func (m *Manager) Recall(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, id domain.NonFungibleLocalID) (_ *models.NonFungible, err error) {
	ctx, span := m.tracer.Start(ctx, "registry.Recall",
		trace.WithAttributes(
			attribute.String("resource_address", resource.String()),
			attribute.String("local_id", id.String())))
	defer func() { endSpan(span, err) }()

	def, err := m.loadResource(ctx, resource)
	if err != nil {
		return nil, err
	}
	if err := m.authorize(ctx, zone, def, authz.RoleRecaller, "recall"); err != nil {
		return nil, err
	}

	var previous domain.AccountAddress
	now := requestcontext.Now(ctx).UTC()
	updated, err := m.store.UpdateNonFungible(ctx, resource, id, func(nf *models.NonFungible) error {
		if nf.Recalled() {
			return ErrAlreadyRecalled
		}
		previous = nf.Holder
		nf.Holder = ""
		nf.RecalledAt = &now
		return nil
	})
	if err != nil {
		return nil, translate(err, "non-fungible", "failed to recall non-fungible")
	}
	m.logAudit(ctx, audit.EventNonFungibleRecalled,
		"resource_address", resource.String(),
		"local_id", id.String(),
		"holder", previous.String())
	if m.metrics != nil {
		m.metrics.IncrementRecalled()
	}
	return updated, nil
}

// SetRole replaces a role's rule. The zone must satisfy the role's updater,
// or the owner rule when role is itself an updater.
func (m *Manager) SetRole(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, role authz.RoleKey, rule authz.AccessRule) (_ *models.ResourceDefinition, err error) {
	ctx, span := m.tracer.Start(ctx, "registry.SetRole",
		trace.WithAttributes(
			attribute.String("resource_address", resource.String()),
			attribute.String("role", string(role))))
	defer func() { endSpan(span, err) }()

	if _, err := authz.ParseRoleKey(string(role)); err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	updated, err := m.store.UpdateResource(ctx, resource, func(def *models.ResourceDefinition) error {
		if err := m.authorize(ctx, zone, def, role.Updater(), "update role "+string(role)); err != nil {
			return err
		}
		if def.Roles == nil {
			def.Roles = authz.Roles{}
		}
		def.Roles[role] = rule
		return nil
	})
	if err != nil {
		return nil, translate(err, "resource", "failed to update role")
	}
	m.logAudit(ctx, audit.EventRoleUpdated,
		"resource_address", resource.String(),
		"role", string(role),
		"rule", rule.String())
	return updated, nil
}

// SetMetadata writes one metadata value under the metadata_setter role.
func (m *Manager) SetMetadata(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, key, value string) (_ *models.ResourceDefinition, err error) {
	ctx, span := m.tracer.Start(ctx, "registry.SetMetadata",
		trace.WithAttributes(attribute.String("resource_address", resource.String())))
	defer func() { endSpan(span, err) }()

	updated, err := m.store.UpdateResource(ctx, resource, func(def *models.ResourceDefinition) error {
		if err := m.authorize(ctx, zone, def, authz.RoleMetadataSetter, "set metadata"); err != nil {
			return err
		}
		if def.Metadata == nil {
			def.Metadata = metadata.Map{}
		}
		return def.Metadata.Set(key, value)
	})
	if err != nil {
		return nil, translate(err, "resource", "failed to set metadata")
	}
	m.logAudit(ctx, audit.EventMetadataSet,
		"resource_address", resource.String(),
		"key", key)
	return updated, nil
}

// LockMetadata freezes one metadata key under the metadata_locker role.
func (m *Manager) LockMetadata(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, key string) (_ *models.ResourceDefinition, err error) {
	ctx, span := m.tracer.Start(ctx, "registry.LockMetadata",
		trace.WithAttributes(attribute.String("resource_address", resource.String())))
	defer func() { endSpan(span, err) }()

	updated, err := m.store.UpdateResource(ctx, resource, func(def *models.ResourceDefinition) error {
		if err := m.authorize(ctx, zone, def, authz.RoleMetadataLocker, "lock metadata"); err != nil {
			return err
		}
		return def.Metadata.Lock(key)
	})
	if err != nil {
		return nil, translate(err, "resource", "failed to lock metadata")
	}
	m.logAudit(ctx, audit.EventMetadataLocked,
		"resource_address", resource.String(),
		"key", key)
	return updated, nil
}

func (m *Manager) Get(ctx context.Context, resource domain.ResourceAddress) (*models.ResourceDefinition, error) {
	return m.loadResource(ctx, resource)
}

func (m *Manager) GetNonFungible(ctx context.Context, resource domain.ResourceAddress, id domain.NonFungibleLocalID) (*models.NonFungible, error) {
	nf, err := m.store.GetNonFungible(ctx, resource, id)
	if err != nil {
		return nil, translate(err, "non-fungible", "failed to load non-fungible")
	}
	return nf, nil
}

func (m *Manager) ListNonFungibles(ctx context.Context, resource domain.ResourceAddress) ([]*models.NonFungible, error) {
	list, err := m.store.ListNonFungibles(ctx, resource)
	if err != nil {
		return nil, translate(err, "resource", "failed to list non-fungibles")
	}
	return list, nil
}

func (m *Manager) TotalSupply(ctx context.Context, resource domain.ResourceAddress) (uint64, error) {
	def, err := m.loadResource(ctx, resource)
	if err != nil {
		return 0, err
	}
	return def.TotalSupply, nil
}

func (m *Manager) loadResource(ctx context.Context, resource domain.ResourceAddress) (*models.ResourceDefinition, error) {
	def, err := m.store.GetResource(ctx, resource)
	if err != nil {
		return nil, translate(err, "resource", "failed to load resource")
	}
	return def, nil
}

func (m *Manager) authorize(ctx context.Context, zone authz.Zone, def *models.ResourceDefinition, role authz.RoleKey, action string) error {
	err := authz.Authorize(zone, def.Rule(role), action)
	if err == nil {
		return nil
	}
	label := string(role)
	if label == "" {
		label = "owner"
	}
	if m.metrics != nil {
		m.metrics.IncrementAccessDenied(label)
	}
	m.logAudit(ctx, audit.EventAccessDenied,
		"resource_address", def.Address.String(),
		"caller", zone.Caller.String(),
		"role", label)
	return err
}

// translate maps store failures to coded errors. Coded errors raised inside
// update callbacks pass through unchanged.
func translate(err error, entity, message string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, message)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTimeout, message)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (m *Manager) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if m.logger != nil {
		m.logger.InfoContext(ctx, string(event), args...)
	}
	if m.auditPublisher == nil {
		return
	}
	_ = m.auditPublisher.Emit(ctx, audit.Event{
		Subject:   attrs.FirstString(attributes, "holder", "caller"),
		Action:    string(event),
		Resource:  attrs.ExtractString(attributes, "resource_address"),
		LocalID:   attrs.ExtractString(attributes, "local_id"),
		Reason:    attrs.ExtractString(attributes, "role"),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
	})
}
