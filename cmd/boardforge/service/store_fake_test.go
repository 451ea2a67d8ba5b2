package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/boardforge/boardforge/common/models"
)

type propKey struct {
	partID uuid.UUID
	side   models.PropertySide
}

// fakeStore is an in-memory Store with enough behavior to exercise the
// replication passes: store-assigned ids, per-version listing, and an
// optional injected failure for atomicity tests.
type fakeStore struct {
	projects     map[uuid.UUID]*models.Project
	prototypes   map[uuid.UUID]*models.Prototype
	versions     map[uuid.UUID]*models.PrototypeVersion
	players      map[uuid.UUID]*models.Player
	parts        map[uuid.UUID]*models.Part
	properties   map[propKey]*models.PartProperty
	accesses     map[uuid.UUID]*models.Access
	userAccesses []*models.UserAccess

	// failOn makes the named method return an error, for testing that
	// a failed pass leaves nothing behind.
	failOn string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:   make(map[uuid.UUID]*models.Project),
		prototypes: make(map[uuid.UUID]*models.Prototype),
		versions:   make(map[uuid.UUID]*models.PrototypeVersion),
		players:    make(map[uuid.UUID]*models.Player),
		parts:      make(map[uuid.UUID]*models.Part),
		properties: make(map[propKey]*models.PartProperty),
		accesses:   make(map[uuid.UUID]*models.Access),
	}
}

func (s *fakeStore) maybeFail(method string) error {
	if s.failOn == method {
		return fmt.Errorf("injected failure in %s", method)
	}
	return nil
}

func (s *fakeStore) GetVersion(ctx context.Context, id uuid.UUID) (*models.PrototypeVersion, error) {
	v, ok := s.versions[id]
	if !ok {
		return nil, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func (s *fakeStore) GetPrototype(ctx context.Context, id uuid.UUID) (*models.Prototype, error) {
	p, ok := s.prototypes[id]
	if !ok {
		return nil, fmt.Errorf("prototype %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) CreateProject(ctx context.Context, project *models.Project) error {
	if err := s.maybeFail("CreateProject"); err != nil {
		return err
	}
	project.ID = uuid.New()
	project.CreatedAt = time.Now()
	cp := *project
	s.projects[project.ID] = &cp
	return nil
}

func (s *fakeStore) CreatePrototype(ctx context.Context, proto *models.Prototype) error {
	if err := s.maybeFail("CreatePrototype"); err != nil {
		return err
	}
	proto.ID = uuid.New()
	proto.CreatedAt = time.Now()
	cp := *proto
	s.prototypes[proto.ID] = &cp
	return nil
}

func (s *fakeStore) CreateVersion(ctx context.Context, version *models.PrototypeVersion) error {
	if err := s.maybeFail("CreateVersion"); err != nil {
		return err
	}
	version.ID = uuid.New()
	version.CreatedAt = time.Now()
	cp := *version
	s.versions[version.ID] = &cp
	return nil
}

func (s *fakeStore) ListPlayers(ctx context.Context, versionID uuid.UUID) ([]*models.Player, error) {
	var out []*models.Player
	for _, p := range s.players {
		if p.VersionID == versionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatOrder < out[j].SeatOrder })
	return out, nil
}

func (s *fakeStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	if err := s.maybeFail("CreatePlayer"); err != nil {
		return err
	}
	player.ID = uuid.New()
	player.CreatedAt = time.Now()
	cp := *player
	s.players[player.ID] = &cp
	return nil
}

func (s *fakeStore) ListParts(ctx context.Context, versionID uuid.UUID) ([]*models.Part, error) {
	var out []*models.Part
	for _, p := range s.parts {
		if p.VersionID == versionID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZOrder < out[j].ZOrder })
	return out, nil
}

func (s *fakeStore) CreatePart(ctx context.Context, part *models.Part) error {
	if err := s.maybeFail("CreatePart"); err != nil {
		return err
	}
	part.ID = uuid.New()
	part.CreatedAt = time.Now()
	cp := *part
	s.parts[part.ID] = &cp
	return nil
}

func (s *fakeStore) SetPartParent(ctx context.Context, partID, parentID uuid.UUID) error {
	p, ok := s.parts[partID]
	if !ok {
		return fmt.Errorf("part %s: %w", partID, ErrNotFound)
	}
	id := parentID
	p.ParentID = &id
	return nil
}

func (s *fakeStore) SetPartOwner(ctx context.Context, partID, ownerID uuid.UUID) error {
	p, ok := s.parts[partID]
	if !ok {
		return fmt.Errorf("part %s: %w", partID, ErrNotFound)
	}
	id := ownerID
	p.OwnerID = &id
	return nil
}

func (s *fakeStore) ListProperties(ctx context.Context, versionID uuid.UUID) ([]*models.PartProperty, error) {
	var out []*models.PartProperty
	for key, prop := range s.properties {
		part, ok := s.parts[key.partID]
		if !ok || part.VersionID != versionID {
			continue
		}
		cp := *prop
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PartID != out[j].PartID {
			return out[i].PartID.String() < out[j].PartID.String()
		}
		return out[i].Side < out[j].Side
	})
	return out, nil
}

func (s *fakeStore) CreateProperty(ctx context.Context, prop *models.PartProperty) error {
	if err := s.maybeFail("CreateProperty"); err != nil {
		return err
	}
	cp := *prop
	s.properties[propKey{prop.PartID, prop.Side}] = &cp
	return nil
}

func (s *fakeStore) CreateAccess(ctx context.Context, access *models.Access) error {
	if err := s.maybeFail("CreateAccess"); err != nil {
		return err
	}
	access.ID = uuid.New()
	access.CreatedAt = time.Now()
	cp := *access
	s.accesses[access.ID] = &cp
	return nil
}

func (s *fakeStore) CreateUserAccess(ctx context.Context, userAccess *models.UserAccess) error {
	if err := s.maybeFail("CreateUserAccess"); err != nil {
		return err
	}
	cp := *userAccess
	s.userAccesses = append(s.userAccesses, &cp)
	return nil
}

func (s *fakeStore) ListPrototypes(ctx context.Context) ([]*models.Prototype, error) {
	var out []*models.Prototype
	for _, p := range s.prototypes {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *fakeStore) ListPrototypesByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Prototype, error) {
	var out []*models.Prototype
	for _, id := range ids {
		if p, ok := s.prototypes[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdatePrototypeFields(ctx context.Context, id uuid.UUID, name string, minPlayers, maxPlayers int) error {
	p, ok := s.prototypes[id]
	if !ok {
		return fmt.Errorf("prototype %s: %w", id, ErrNotFound)
	}
	p.Name = name
	p.MinPlayers = minPlayers
	p.MaxPlayers = maxPlayers
	return nil
}

func (s *fakeStore) DeletePrototype(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.prototypes[id]; !ok {
		return fmt.Errorf("prototype %s: %w", id, ErrNotFound)
	}
	delete(s.prototypes, id)
	for vid, v := range s.versions {
		if v.PrototypeID != id {
			continue
		}
		delete(s.versions, vid)
		for pid, p := range s.players {
			if p.VersionID == vid {
				delete(s.players, pid)
			}
		}
		for pid, p := range s.parts {
			if p.VersionID == vid {
				delete(s.parts, pid)
				for key := range s.properties {
					if key.partID == pid {
						delete(s.properties, key)
					}
				}
			}
		}
	}
	return nil
}

func (s *fakeStore) ListVersions(ctx context.Context, prototypeID uuid.UUID) ([]*models.PrototypeVersion, error) {
	var out []*models.PrototypeVersion
	for _, v := range s.versions {
		if v.PrototypeID == prototypeID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (s *fakeStore) LatestVersion(ctx context.Context, prototypeID uuid.UUID) (*models.PrototypeVersion, error) {
	versions, _ := s.ListVersions(ctx, prototypeID)
	if len(versions) == 0 {
		return nil, fmt.Errorf("prototype %s has no versions: %w", prototypeID, ErrNotFound)
	}
	return versions[0], nil
}

func (s *fakeStore) NextVersionNumber(ctx context.Context, prototypeID uuid.UUID) (int, error) {
	next := 0
	for _, v := range s.versions {
		if v.PrototypeID == prototypeID && v.VersionNumber >= next {
			next = v.VersionNumber + 1
		}
	}
	return next, nil
}

func (s *fakeStore) ClaimSeat(ctx context.Context, versionID uuid.UUID, userID string) (*models.Player, error) {
	players, _ := s.ListPlayers(ctx, versionID)
	for _, p := range players {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	for _, p := range players {
		if p.UserID == nil {
			stored := s.players[p.ID]
			uid := userID
			stored.UserID = &uid
			cp := *stored
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("no free seat in version %s: %w", versionID, ErrNotFound)
}

func (s *fakeStore) GetPart(ctx context.Context, id uuid.UUID) (*models.Part, error) {
	p, ok := s.parts[id]
	if !ok {
		return nil, fmt.Errorf("part %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpdatePart(ctx context.Context, part *models.Part) error {
	if _, ok := s.parts[part.ID]; !ok {
		return fmt.Errorf("part %s: %w", part.ID, ErrNotFound)
	}
	cp := *part
	s.parts[part.ID] = &cp
	return nil
}

func (s *fakeStore) DeletePart(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.parts[id]; !ok {
		return fmt.Errorf("part %s: %w", id, ErrNotFound)
	}
	delete(s.parts, id)
	for key := range s.properties {
		if key.partID == id {
			delete(s.properties, key)
		}
	}
	return nil
}

func (s *fakeStore) GetProperty(ctx context.Context, partID uuid.UUID, side models.PropertySide) (*models.PartProperty, error) {
	prop, ok := s.properties[propKey{partID, side}]
	if !ok {
		return nil, fmt.Errorf("property (%s, %s): %w", partID, side, ErrNotFound)
	}
	cp := *prop
	return &cp, nil
}

func (s *fakeStore) UpsertProperty(ctx context.Context, prop *models.PartProperty) error {
	cp := *prop
	s.properties[propKey{prop.PartID, prop.Side}] = &cp
	return nil
}

// snapshot deep-copies the store state.
func (s *fakeStore) snapshot() *fakeStore {
	cp := newFakeStore()
	cp.failOn = s.failOn
	for k, v := range s.projects {
		vc := *v
		cp.projects[k] = &vc
	}
	for k, v := range s.prototypes {
		vc := *v
		cp.prototypes[k] = &vc
	}
	for k, v := range s.versions {
		vc := *v
		cp.versions[k] = &vc
	}
	for k, v := range s.players {
		vc := *v
		cp.players[k] = &vc
	}
	for k, v := range s.parts {
		vc := *v
		cp.parts[k] = &vc
	}
	for k, v := range s.properties {
		vc := *v
		cp.properties[k] = &vc
	}
	for k, v := range s.accesses {
		vc := *v
		cp.accesses[k] = &vc
	}
	for _, v := range s.userAccesses {
		vc := *v
		cp.userAccesses = append(cp.userAccesses, &vc)
	}
	return cp
}

func (s *fakeStore) restore(from *fakeStore) {
	s.projects = from.projects
	s.prototypes = from.prototypes
	s.versions = from.versions
	s.players = from.players
	s.parts = from.parts
	s.properties = from.properties
	s.accesses = from.accesses
	s.userAccesses = from.userAccesses
}

// fakeTxRunner mimics transactional semantics by snapshotting before fn
// and restoring when fn fails.
type fakeTxRunner struct {
	store *fakeStore
}

func (r *fakeTxRunner) InTx(ctx context.Context, fn func(Store) error) error {
	before := r.store.snapshot()
	if err := fn(r.store); err != nil {
		r.store.restore(before)
		return err
	}
	return nil
}
