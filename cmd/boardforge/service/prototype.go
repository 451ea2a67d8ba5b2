package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/cache"
	"github.com/boardforge/boardforge/common/logger"
	"github.com/boardforge/boardforge/common/models"
	"github.com/boardforge/boardforge/common/validation"
)

const defaultGraphCacheTTL = 30 * time.Second

// ContentStore is the non-transactional read/write surface behind the
// prototype routes. Single-row mutations do not need the replication
// engine's transaction machinery.
type ContentStore interface {
	GetPrototype(ctx context.Context, id uuid.UUID) (*models.Prototype, error)
	ListPrototypes(ctx context.Context) ([]*models.Prototype, error)
	ListPrototypesByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Prototype, error)
	UpdatePrototypeFields(ctx context.Context, id uuid.UUID, name string, minPlayers, maxPlayers int) error
	DeletePrototype(ctx context.Context, id uuid.UUID) error

	GetVersion(ctx context.Context, id uuid.UUID) (*models.PrototypeVersion, error)
	ListVersions(ctx context.Context, prototypeID uuid.UUID) ([]*models.PrototypeVersion, error)
	LatestVersion(ctx context.Context, prototypeID uuid.UUID) (*models.PrototypeVersion, error)
	NextVersionNumber(ctx context.Context, prototypeID uuid.UUID) (int, error)

	ListPlayers(ctx context.Context, versionID uuid.UUID) ([]*models.Player, error)
	ListParts(ctx context.Context, versionID uuid.UUID) ([]*models.Part, error)
	ListProperties(ctx context.Context, versionID uuid.UUID) ([]*models.PartProperty, error)

	// ClaimSeat binds the first unclaimed seat of the version to the
	// user and returns it. Returns the seat the user already holds when
	// there is one, and ErrNotFound when every seat is taken.
	ClaimSeat(ctx context.Context, versionID uuid.UUID, userID string) (*models.Player, error)
}

// VersionGraph is the full content of one version, as served to clients
// and to the realtime layer after a reconnect.
type VersionGraph struct {
	Version    *models.PrototypeVersion `json:"version"`
	Players    []*models.Player         `json:"players"`
	Parts      []*models.Part           `json:"parts"`
	Properties []*models.PartProperty   `json:"properties"`
}

// CreatePrototypeInput is the payload of the create endpoint.
type CreatePrototypeInput struct {
	Name       string `json:"name"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
}

// UpdatePrototypeInput is the payload of the update endpoint.
type UpdatePrototypeInput struct {
	Name       string `json:"name"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
}

// CreateVersionInput is the payload of the snapshot endpoint. A nil
// SourceVersionID snapshots the prototype's latest version.
type CreateVersionInput struct {
	SourceVersionID *uuid.UUID `json:"source_version_id"`
	Description     string     `json:"description"`
}

// PrototypeService composes the replication engine, the authorization
// engine and the content store behind the prototype routes.
type PrototypeService struct {
	store      ContentStore
	engine     *ReplicationEngine
	authz      *AuthzEngine
	validator  *validation.RuleValidator
	graphCache cache.Cache
	graphTTL   time.Duration
	notifier   *Notifier
	log        *logger.Logger
}

// PrototypeServiceOpts contains options for creating a PrototypeService
type PrototypeServiceOpts struct {
	Store      ContentStore
	Engine     *ReplicationEngine
	Authz      *AuthzEngine
	Validator  *validation.RuleValidator
	GraphCache cache.Cache
	GraphTTL   time.Duration
	Notifier   *Notifier
	Logger     *logger.Logger
}

// NewPrototypeService creates a new prototype service
func NewPrototypeService(opts *PrototypeServiceOpts) *PrototypeService {
	ttl := opts.GraphTTL
	if ttl <= 0 {
		ttl = defaultGraphCacheTTL
	}
	return &PrototypeService{
		store:      opts.Store,
		engine:     opts.Engine,
		authz:      opts.Authz,
		validator:  opts.Validator,
		graphCache: opts.GraphCache,
		graphTTL:   ttl,
		notifier:   opts.Notifier,
		log:        opts.Logger,
	}
}

// authorize wraps the permission check into the service error contract.
func (s *PrototypeService) authorize(ctx context.Context, userID string, resource models.ResourceType, action models.Action, resourceID *uuid.UUID) error {
	allowed, err := s.authz.HasPermission(ctx, userID, resource, action, resourceID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%s %s: %w", action, resource, ErrForbidden)
	}
	return nil
}

func graphCacheKey(versionID uuid.UUID) string {
	return "version_graph:" + versionID.String()
}

// Create provisions a new editable prototype with its project, initial
// version and seats, then grants the creator the editor role on the
// prototype and the player role on the project.
func (s *PrototypeService) Create(ctx context.Context, userID string, input CreatePrototypeInput) (*models.Prototype, error) {
	if err := s.validator.CheckPrototype(map[string]interface{}{
		"name":        input.Name,
		"min_players": input.MinPlayers,
		"max_players": input.MaxPlayers,
	}); err != nil {
		return nil, err
	}

	result, err := s.engine.CreatePrototype(ctx, CreatePrototypeParams{
		Name:        input.Name,
		OwnerUserID: userID,
		MinPlayers:  input.MinPlayers,
		MaxPlayers:  input.MaxPlayers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prototype: %w", err)
	}

	proto, err := s.store.GetPrototype(ctx, *result.PrototypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created prototype: %w", err)
	}

	if err := s.authz.AssignRoleByName(ctx, userID, models.RoleEditor, models.ResourcePrototype, result.PrototypeID); err != nil {
		return nil, fmt.Errorf("failed to grant editor role: %w", err)
	}
	projectID := proto.ProjectID
	if err := s.authz.AssignRoleByName(ctx, userID, models.RolePlayer, models.ResourceProject, &projectID); err != nil {
		return nil, fmt.Errorf("failed to grant player role: %w", err)
	}

	s.notifier.Notify(ctx, Event{
		Type:        EventPrototypeCreated,
		PrototypeID: proto.ID,
		VersionID:   &result.VersionID,
		UserID:      userID,
	})
	return proto, nil
}

// Get returns one prototype, permission-checked.
func (s *PrototypeService) Get(ctx context.Context, userID string, id uuid.UUID) (*models.Prototype, error) {
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionRead, &id); err != nil {
		return nil, err
	}
	return s.store.GetPrototype(ctx, id)
}

// List returns the prototypes the user may read. A global read grant
// returns everything; otherwise only the ids the user holds a specific
// grant for.
func (s *PrototypeService) List(ctx context.Context, userID string) ([]*models.Prototype, error) {
	global, err := s.authz.HasPermission(ctx, userID, models.ResourcePrototype, models.ActionRead, nil)
	if err != nil {
		return nil, err
	}
	if global {
		return s.store.ListPrototypes(ctx)
	}

	ids, err := s.authz.AccessibleResourceIDs(ctx, userID, models.ResourcePrototype, models.ActionRead)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Prototype{}, nil
	}
	return s.store.ListPrototypesByIDs(ctx, ids)
}

// Update rewrites the prototype's mutable fields. Versioned content is
// untouched; it only changes through new versions.
func (s *PrototypeService) Update(ctx context.Context, userID string, id uuid.UUID, input UpdatePrototypeInput) (*models.Prototype, error) {
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionWrite, &id); err != nil {
		return nil, err
	}

	if _, err := s.store.GetPrototype(ctx, id); err != nil {
		return nil, err
	}

	if err := s.validator.CheckPrototype(map[string]interface{}{
		"name":        input.Name,
		"min_players": input.MinPlayers,
		"max_players": input.MaxPlayers,
	}); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePrototypeFields(ctx, id, input.Name, input.MinPlayers, input.MaxPlayers); err != nil {
		return nil, fmt.Errorf("failed to update prototype: %w", err)
	}

	proto, err := s.store.GetPrototype(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, Event{
		Type:        EventPrototypeUpdated,
		PrototypeID: id,
		UserID:      userID,
	})
	return proto, nil
}

// Delete removes the prototype and, through the store's cascade, every
// version, seat, part and property under it. Cached graphs age out on
// their TTL.
func (s *PrototypeService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionDelete, &id); err != nil {
		return err
	}

	if _, err := s.store.GetPrototype(ctx, id); err != nil {
		return err
	}

	if err := s.store.DeletePrototype(ctx, id); err != nil {
		return fmt.Errorf("failed to delete prototype: %w", err)
	}

	s.notifier.Notify(ctx, Event{
		Type:        EventPrototypeDeleted,
		PrototypeID: id,
		UserID:      userID,
	})
	return nil
}

// ListVersions returns the prototype's versions, newest first.
func (s *PrototypeService) ListVersions(ctx context.Context, userID string, prototypeID uuid.UUID) ([]*models.PrototypeVersion, error) {
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionRead, &prototypeID); err != nil {
		return nil, err
	}
	return s.store.ListVersions(ctx, prototypeID)
}

// GetVersionGraph returns the full content of one version. Reads go
// through the short-TTL cache; the cached value is the serialized graph.
func (s *PrototypeService) GetVersionGraph(ctx context.Context, userID string, versionID uuid.UUID) (*VersionGraph, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	prototypeID := version.PrototypeID
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionRead, &prototypeID); err != nil {
		return nil, err
	}

	key := graphCacheKey(versionID)
	if cached, ok, err := s.graphCache.Get(ctx, key); err == nil && ok {
		var graph VersionGraph
		if err := json.Unmarshal(cached, &graph); err == nil {
			return &graph, nil
		}
		s.log.Warn("discarding undecodable cached graph", "version_id", versionID)
	}

	graph, err := s.loadGraph(ctx, version)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(graph); err == nil {
		if err := s.graphCache.Set(ctx, key, encoded, s.graphTTL); err != nil {
			s.log.Warn("failed to cache graph", "version_id", versionID, "error", err)
		}
	}
	return graph, nil
}

func (s *PrototypeService) loadGraph(ctx context.Context, version *models.PrototypeVersion) (*VersionGraph, error) {
	players, err := s.store.ListPlayers(ctx, version.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	parts, err := s.store.ListParts(ctx, version.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parts: %w", err)
	}
	props, err := s.store.ListProperties(ctx, version.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	return &VersionGraph{
		Version:    version,
		Players:    players,
		Parts:      parts,
		Properties: props,
	}, nil
}

// CreateVersion snapshots a source version into a new version of the
// same prototype. The source defaults to the latest version.
func (s *PrototypeService) CreateVersion(ctx context.Context, userID string, prototypeID uuid.UUID, input CreateVersionInput) (*models.PrototypeVersion, error) {
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionWrite, &prototypeID); err != nil {
		return nil, err
	}

	source, err := s.resolveSource(ctx, prototypeID, input.SourceVersionID)
	if err != nil {
		return nil, err
	}

	next, err := s.store.NextVersionNumber(ctx, prototypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute next version number: %w", err)
	}

	result, err := s.engine.ReplicateVersion(ctx, source.ID, ReplicateParams{
		PrototypeID:   prototypeID,
		VersionNumber: next,
		Description:   input.Description,
	}, ReplicateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to replicate version: %w", err)
	}

	version, err := s.store.GetVersion(ctx, result.VersionID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, Event{
		Type:        EventVersionCreated,
		PrototypeID: prototypeID,
		VersionID:   &version.ID,
		UserID:      userID,
	})
	return version, nil
}

func (s *PrototypeService) resolveSource(ctx context.Context, prototypeID uuid.UUID, sourceVersionID *uuid.UUID) (*models.PrototypeVersion, error) {
	if sourceVersionID == nil {
		source, err := s.store.LatestVersion(ctx, prototypeID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest version: %w", err)
		}
		return source, nil
	}

	source, err := s.store.GetVersion(ctx, *sourceVersionID)
	if err != nil {
		return nil, err
	}
	if source.PrototypeID != prototypeID {
		return nil, fmt.Errorf("version %s does not belong to prototype %s: %w", source.ID, prototypeID, ErrValidation)
	}
	return source, nil
}

// Duplicate clones the prototype's latest version into an independent
// editable copy under a new project and a new group, with the caller as
// owner. The copy gets its own access grant and role assignments.
func (s *PrototypeService) Duplicate(ctx context.Context, userID string, sourceID uuid.UUID, name string) (*models.Prototype, error) {
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionRead, &sourceID); err != nil {
		return nil, err
	}

	source, err := s.store.GetPrototype(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = source.Name + " (copy)"
	}

	latest, err := s.store.LatestVersion(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve latest version: %w", err)
	}

	result, err := s.engine.ReplicateVersion(ctx, latest.ID, ReplicateParams{
		NewPrototype: &NewPrototypeParams{
			Name:        name,
			OwnerUserID: userID,
			NewProject:  true,
			Variant:     models.VariantEdit,
			MinPlayers:  source.MinPlayers,
			MaxPlayers:  source.MaxPlayers,
		},
		VersionNumber: 0,
		Description:   fmt.Sprintf("duplicated from %s", source.Name),
	}, ReplicateOptions{ProvisionAccess: true, CreatorUserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to duplicate prototype: %w", err)
	}

	dup, err := s.store.GetPrototype(ctx, *result.PrototypeID)
	if err != nil {
		return nil, err
	}

	if err := s.authz.AssignRoleByName(ctx, userID, models.RoleEditor, models.ResourcePrototype, result.PrototypeID); err != nil {
		return nil, fmt.Errorf("failed to grant editor role: %w", err)
	}
	projectID := dup.ProjectID
	if err := s.authz.AssignRoleByName(ctx, userID, models.RolePlayer, models.ResourceProject, &projectID); err != nil {
		return nil, fmt.Errorf("failed to grant player role: %w", err)
	}

	s.notifier.Notify(ctx, Event{
		Type:        EventPrototypeDuplicated,
		PrototypeID: dup.ID,
		VersionID:   &result.VersionID,
		UserID:      userID,
	})
	return dup, nil
}

// CreateInstance clones the editable prototype's latest version into a
// derived room copy in the same project and group. Grants on the project
// carry over; the instance gets no access grant of its own.
func (s *PrototypeService) CreateInstance(ctx context.Context, userID string, prototypeID uuid.UUID) (*models.Prototype, error) {
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionRead, &prototypeID); err != nil {
		return nil, err
	}

	source, err := s.store.GetPrototype(ctx, prototypeID)
	if err != nil {
		return nil, err
	}
	if source.IsInstance() {
		return nil, fmt.Errorf("cannot derive a room from another room: %w", ErrValidation)
	}

	latest, err := s.store.LatestVersion(ctx, prototypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve latest version: %w", err)
	}

	groupID := source.GroupID
	result, err := s.engine.ReplicateVersion(ctx, latest.ID, ReplicateParams{
		NewPrototype: &NewPrototypeParams{
			Name:        source.Name,
			OwnerUserID: userID,
			ProjectID:   source.ProjectID,
			GroupID:     &groupID,
			Variant:     models.VariantInstance,
			MinPlayers:  source.MinPlayers,
			MaxPlayers:  source.MaxPlayers,
		},
		VersionNumber: 0,
		Description:   fmt.Sprintf("room for %s", source.Name),
	}, ReplicateOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	instance, err := s.store.GetPrototype(ctx, *result.PrototypeID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, Event{
		Type:        EventInstanceCreated,
		PrototypeID: instance.ID,
		VersionID:   &result.VersionID,
		UserID:      userID,
	})
	return instance, nil
}

// Join seats the user at a room version. The permission check delegates
// to the owning project's interact grants; the editable master copy is
// never joinable.
func (s *PrototypeService) Join(ctx context.Context, userID string, versionID uuid.UUID) (*models.Player, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	prototypeID := version.PrototypeID
	if err := s.authorize(ctx, userID, models.ResourcePrototype, models.ActionInteract, &prototypeID); err != nil {
		return nil, err
	}

	seat, err := s.store.ClaimSeat(ctx, versionID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.graphCache.Delete(ctx, graphCacheKey(versionID)); err != nil {
		s.log.Warn("failed to invalidate graph cache", "version_id", versionID, "error", err)
	}

	s.notifier.Notify(ctx, Event{
		Type:        EventPlayerJoined,
		PrototypeID: prototypeID,
		VersionID:   &versionID,
		UserID:      userID,
	})
	return seat, nil
}
