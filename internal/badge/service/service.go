// Package service is the issuance component: it sets up a badge resource
// with a fixed claim window and hands out one badge per call until the
// window closes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"badgeissuer/internal/address"
	"badgeissuer/internal/authz"
	"badgeissuer/internal/badge/metrics"
	"badgeissuer/internal/badge/models"
	registrymodels "badgeissuer/internal/registry/models"
	"badgeissuer/pkg/domain"
	dErrors "badgeissuer/pkg/domain-errors"
	"badgeissuer/pkg/platform/audit"
	"badgeissuer/pkg/platform/sentinel"
	"badgeissuer/pkg/requestcontext"
)

var (
	ErrSetupOverflow   = dErrors.New(dErrors.CodeInternal, "claim deadline is not representable")
	ErrDeadlineExpired = dErrors.New(dErrors.CodeDeadlineExpired, "The hackathon has ended, you can no longer claim your badge")
	ErrInvalidTeamName = dErrors.New(dErrors.CodeInvalidInput, "Team name must be at least 1 character long")
)

const claimWindowSeconds = int64(models.ClaimWindow / time.Second)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Registry,ComponentStore,AuditPublisher

// Registry is the resource registry the component mints through.
type Registry interface {
	CreateNonFungible(ctx context.Context, spec registrymodels.ResourceSpec) (*registrymodels.ResourceDefinition, error)
	Mint(ctx context.Context, zone authz.Zone, resource domain.ResourceAddress, data map[string]string, holder domain.AccountAddress) (*registrymodels.NonFungible, error)
	TotalSupply(ctx context.Context, resource domain.ResourceAddress) (uint64, error)
}

type ComponentStore interface {
	Create(ctx context.Context, c *models.Component) error
	Get(ctx context.Context, addr domain.ComponentAddress) (*models.Component, error)
	List(ctx context.Context) ([]*models.Component, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// ComponentView is a component with its live issuance state.
type ComponentView struct {
	Component *models.Component
	Issued    uint64
	Open      bool
}

// Service holds no locks; the registry serializes id assignment.
type Service struct {
	components     ComponentStore
	registry       Registry
	allocator      *address.Allocator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func New(components ComponentStore, registry Registry, allocator *address.Allocator, opts ...Option) *Service {
	s := &Service{
		components: components,
		registry:   registry,
		allocator:  allocator,
		tracer:     noop.NewTracerProvider().Tracer("badge"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Instantiate reserves a component address, creates the badge resource
// mintable only by that address and publishes the component with a claim
// deadline seven days from now.
func (s *Service) Instantiate(ctx context.Context, owner domain.ResourceAddress, dappDef domain.ComponentAddress) (_ *models.Component, err error) {
	ctx, span := s.tracer.Start(ctx, "badge.Instantiate",
		trace.WithAttributes(attribute.String("owner_badge", owner.String())))
	defer func() { endSpan(span, err) }()

	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner badge address is required")
	}
	if dappDef.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "dapp definition address is required")
	}

	now := requestcontext.Now(ctx).UTC().Truncate(time.Second)
	deadline, err := DeadlineFor(now)
	if err != nil {
		return nil, err
	}

	reservation, err := s.allocator.Reserve(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve component address")
	}
	defer reservation.Release()
	componentAddr := reservation.Address()
	span.SetAttributes(attribute.String("component_address", componentAddr.String()))

	ownerRule := authz.Require(owner)
	def, err := s.registry.CreateNonFungible(ctx, registrymodels.ResourceSpec{
		Owner: ownerRule,
		Roles: authz.Roles{
			authz.RoleMinter:                        authz.RequireGlobalCaller(componentAddr.Global()),
			authz.RoleMinterUpdater:                 ownerRule,
			authz.RoleNonFungibleDataUpdater:        ownerRule,
			authz.RoleNonFungibleDataUpdaterUpdater: ownerRule,
			authz.RoleRecaller:                      ownerRule,
			authz.RoleRecallerUpdater:               ownerRule,
		},
		Metadata: models.ResourceMetadata(),
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to create badge resource")
	}

	component := &models.Component{
		Resource:       def.Address,
		OwnerBadge:     owner,
		DappDefinition: dappDef,
		Deadline:       deadline,
		Metadata:       models.ComponentMetadata(dappDef),
		CreatedAt:      now,
	}
	err = reservation.Bind(func(addr domain.ComponentAddress) error {
		component.Address = addr
		return s.components.Create(ctx, component)
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "badge resource orphaned: component was not published",
				"request_id", requestcontext.RequestID(ctx),
				"resource_address", def.Address.String(),
				"component_address", componentAddr.String(),
				"error", err,
			)
		}
		return nil, wrapInternal(err, "failed to publish component")
	}

	s.logAudit(ctx, audit.EventComponentInstantiated, audit.Event{
		Component: component.Address.String(),
		Resource:  component.Resource.String(),
	}, "deadline", deadline.Format(time.RFC3339))
	if s.metrics != nil {
		s.metrics.IncrementComponentsInstantiated()
	}
	return component.Clone(), nil
}

// DeadlineFor returns now plus the claim window, failing when the result
// does not fit in a Unix timestamp.
func DeadlineFor(now time.Time) (time.Time, error) {
	if now.Unix() > math.MaxInt64-claimWindowSeconds {
		return time.Time{}, ErrSetupOverflow
	}
	deadline := now.Add(models.ClaimWindow)
	if deadline.Unix()-now.Unix() != claimWindowSeconds {
		return time.Time{}, ErrSetupOverflow
	}
	return deadline, nil
}

// GetHackathonBadge mints one badge and returns it to whoever called. The
// claim window is checked before the team name, so late requests always
// report the deadline. Anonymous callers receive an unheld badge.
func (s *Service) GetHackathonBadge(ctx context.Context, componentAddr domain.ComponentAddress, teamName string) (_ *registrymodels.NonFungible, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "badge.GetHackathonBadge",
		trace.WithAttributes(attribute.String("component_address", componentAddr.String())))
	defer func() { endSpan(span, err) }()

	component, err := s.loadComponent(ctx, componentAddr)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.reject(ctx, componentAddr, metrics.ReasonUnknownComponent, teamName, err)
		}
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC().Truncate(time.Second)
	if !component.Open(now) {
		s.reject(ctx, componentAddr, metrics.ReasonDeadlineExpired, teamName, ErrDeadlineExpired)
		return nil, ErrDeadlineExpired
	}
	if len(teamName) < 1 {
		s.reject(ctx, componentAddr, metrics.ReasonInvalidTeamName, teamName, ErrInvalidTeamName)
		return nil, ErrInvalidTeamName
	}
	caller := requestcontext.Caller(ctx)

	badge, err := s.registry.Mint(ctx, authz.ComponentZone(component.Address), component.Resource,
		models.NewHacker(teamName).Fields(), caller)
	if err != nil {
		s.reject(ctx, componentAddr, metrics.ReasonMintFailed, teamName, err)
		return nil, wrapInternal(err, "failed to mint badge")
	}

	span.SetAttributes(attribute.String("local_id", badge.LocalID.String()))
	s.logAudit(ctx, audit.EventBadgeIssued, audit.Event{
		Subject:   caller.String(),
		Component: component.Address.String(),
		Resource:  component.Resource.String(),
		LocalID:   badge.LocalID.String(),
		TeamName:  teamName,
		Decision:  "issued",
	})
	if s.metrics != nil {
		s.metrics.IncrementBadgesIssued()
		s.metrics.ObserveIssue(start)
	}
	return badge, nil
}

// SetComponentMetadata always fails: the component's metadata roles deny
// everyone.
func (s *Service) SetComponentMetadata(ctx context.Context, componentAddr domain.ComponentAddress, key, value string) error {
	component, err := s.loadComponent(ctx, componentAddr)
	if err != nil {
		return err
	}
	zone := authz.ZoneFromContext(ctx)
	rule := component.Roles().Rule(authz.RoleMetadataSetter, component.Owner())
	if err := authz.Authorize(zone, rule, "set component metadata"); err != nil {
		s.logAudit(ctx, audit.EventComponentMetadataDenied, audit.Event{
			Subject:   zone.Caller.String(),
			Component: component.Address.String(),
			Decision:  "denied",
			Reason:    key,
		})
		return err
	}
	return dErrors.New(dErrors.CodeInvalidState, "component metadata cannot change after publication")
}

// GetComponent returns the component with its issued count and whether
// the claim window is still open.
func (s *Service) GetComponent(ctx context.Context, componentAddr domain.ComponentAddress) (*ComponentView, error) {
	component, err := s.loadComponent(ctx, componentAddr)
	if err != nil {
		return nil, err
	}
	issued, err := s.registry.TotalSupply(ctx, component.Resource)
	if err != nil {
		return nil, wrapInternal(err, "failed to read issued count")
	}
	now := requestcontext.Now(ctx).UTC()
	return &ComponentView{Component: component, Issued: issued, Open: component.Open(now)}, nil
}

func (s *Service) ListComponents(ctx context.Context) ([]*models.Component, error) {
	list, err := s.components.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list components")
	}
	return list, nil
}

func (s *Service) loadComponent(ctx context.Context, addr domain.ComponentAddress) (*models.Component, error) {
	component, err := s.components.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "component not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load component")
	}
	return component, nil
}

func (s *Service) reject(ctx context.Context, componentAddr domain.ComponentAddress, reason, teamName string, cause error) {
	if s.metrics != nil {
		s.metrics.IncrementRejection(reason)
	}
	s.logAudit(ctx, audit.EventBadgeRejected, audit.Event{
		Subject:   requestcontext.Caller(ctx).String(),
		Component: componentAddr.String(),
		TeamName:  teamName,
		Decision:  "rejected",
		Reason:    reason,
	}, "error", cause.Error())
}

// wrapInternal keeps coded errors and wraps everything else.
func wrapInternal(err error, message string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, base audit.Event, attributes ...any) {
	base.Action = string(event)
	base.RequestID = requestcontext.RequestID(ctx)
	base.ClientIP = requestcontext.ClientIP(ctx)
	base.Device = requestcontext.Device(ctx)

	if s.logger != nil {
		args := append(attributes,
			"event", string(event),
			"log_type", "audit",
			"component_address", base.Component,
		)
		if base.Resource != "" {
			args = append(args, "resource_address", base.Resource)
		}
		if base.Subject != "" {
			args = append(args, "subject", base.Subject)
		}
		if base.LocalID != "" {
			args = append(args, "local_id", base.LocalID)
		}
		if base.Reason != "" {
			args = append(args, "reason", base.Reason)
		}
		if base.RequestID != "" {
			args = append(args, "request_id", base.RequestID)
		}
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, base); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", string(event),
			"error", err,
		)
	}
}
