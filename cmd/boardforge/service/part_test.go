package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardforge/boardforge/common/cache"
	"github.com/boardforge/boardforge/common/models"
	"github.com/boardforge/boardforge/common/queue"
	"github.com/boardforge/boardforge/common/validation"
)

// partFixture wires a PartService over the fake store with one editable
// prototype, one version, two seats, and an editor grant for "alice".
type partFixture struct {
	svc     *PartService
	store   *fakeStore
	proto   *models.Prototype
	version *models.PrototypeVersion
	seat0   *models.Player
	seat1   *models.Player
	pub     *queue.MemoryPublisher
}

func newPartFixture(t *testing.T) *partFixture {
	t.Helper()
	log := testLogger()

	store := newFakeStore()
	proto, version := seedPrototype(store, models.VariantEdit, 2)
	seat0 := seedPlayer(store, version.ID, 0, nil)
	seat1 := seedPlayer(store, version.ID, 1, nil)

	perms := newFakePermissionStore()
	editor := perms.addRole(models.RoleEditor, permPair{models.ResourcePrototype, models.ActionWrite})
	perms.grant("alice", editor, models.ResourcePrototype, &proto.ID)

	authz := NewAuthzEngine(perms, &fakePrototypeReader{prototypes: map[uuid.UUID]*models.Prototype{proto.ID: proto}}, log)
	pub := queue.NewMemoryPublisher(log)

	svc := NewPartService(&PartServiceOpts{
		Store:      store,
		Authz:      authz,
		Validator:  validation.NewRuleValidator(),
		GraphCache: cache.NewMemoryCache(log),
		Notifier:   NewNotifier(pub, "test:events", log),
		Logger:     log,
	})

	return &partFixture{
		svc:     svc,
		store:   store,
		proto:   proto,
		version: version,
		seat0:   seat0,
		seat1:   seat1,
		pub:     pub,
	}
}

func TestCreatePart_HandDefaultsToFirstSeat(t *testing.T) {
	f := newPartFixture(t)

	part, err := f.svc.CreatePart(context.Background(), "alice", f.version.ID, CreatePartInput{
		Kind:   models.PartHand,
		Width:  10,
		Height: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, part.OwnerID)
	assert.Equal(t, f.seat0.ID, *part.OwnerID, "a hand with no owner goes to the first seat")
}

func TestCreatePart_ExplicitOwnerKept(t *testing.T) {
	f := newPartFixture(t)

	part, err := f.svc.CreatePart(context.Background(), "alice", f.version.ID, CreatePartInput{
		Kind:    models.PartHand,
		OwnerID: &f.seat1.ID,
		Width:   10,
		Height:  10,
	})
	require.NoError(t, err)
	require.NotNil(t, part.OwnerID)
	assert.Equal(t, f.seat1.ID, *part.OwnerID)
}

func TestCreatePart_RejectsForeignOwner(t *testing.T) {
	f := newPartFixture(t)

	stranger := uuid.New()
	_, err := f.svc.CreatePart(context.Background(), "alice", f.version.ID, CreatePartInput{
		Kind:    models.PartHand,
		OwnerID: &stranger,
		Width:   10,
		Height:  10,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreatePart_RejectsBadSize(t *testing.T) {
	f := newPartFixture(t)

	_, err := f.svc.CreatePart(context.Background(), "alice", f.version.ID, CreatePartInput{
		Kind:  models.PartCard,
		Width: 0, Height: 10,
	})
	var ruleErr *validation.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "size_positive", ruleErr.Rule)
}

func TestCreatePart_Forbidden(t *testing.T) {
	f := newPartFixture(t)

	_, err := f.svc.CreatePart(context.Background(), "mallory", f.version.ID, CreatePartInput{
		Kind:  models.PartCard,
		Width: 10, Height: 10,
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMovePart_FlipRequiresReversible(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)
	// card.IsReversible is false

	_, err := f.svc.MovePart(context.Background(), "alice", card.ID, MovePartInput{
		PosX: 1, PosY: 1, IsFlipped: true,
	})
	var ruleErr *validation.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "flip_requires_reversible", ruleErr.Rule)
}

func TestMovePart_RejectsNegativePosition(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)

	_, err := f.svc.MovePart(context.Background(), "alice", card.ID, MovePartInput{
		PosX: -1, PosY: 0,
	})
	var ruleErr *validation.RuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "position_non_negative", ruleErr.Rule)
}

func TestMovePart_ReparentsWithinVersion(t *testing.T) {
	f := newPartFixture(t)
	deck := seedPart(f.store, f.version.ID, models.PartDeck, 0, nil, nil)
	card := seedPart(f.store, f.version.ID, models.PartCard, 1, nil, nil)

	moved, err := f.svc.MovePart(context.Background(), "alice", card.ID, MovePartInput{
		PosX: 5, PosY: 7, ZOrder: 2, ParentID: &deck.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, deck.ID, *moved.ParentID)
	assert.Equal(t, 5, moved.PosX)
	assert.Equal(t, 7, moved.PosY)
}

func TestMovePart_RejectsSelfParent(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)

	_, err := f.svc.MovePart(context.Background(), "alice", card.ID, MovePartInput{
		ParentID: &card.ID,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestMovePart_RejectsCrossVersionParent(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)

	_, otherVersion := seedPrototype(f.store, models.VariantEdit, 2)
	foreignDeck := seedPart(f.store, otherVersion.ID, models.PartDeck, 0, nil, nil)

	_, err := f.svc.MovePart(context.Background(), "alice", card.ID, MovePartInput{
		ParentID: &foreignDeck.ID,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestPatchProperty_AppliesReplace(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)
	seedProperty(f.store, card.ID, models.SideFront, "Ace", nil)

	patch := []byte(`[{"op": "replace", "path": "/name", "value": "King"}]`)
	prop, err := f.svc.PatchProperty(context.Background(), "alice", card.ID, models.SideFront, patch)
	require.NoError(t, err)
	assert.Equal(t, "King", prop.Name)

	stored, err := f.store.GetProperty(context.Background(), card.ID, models.SideFront)
	require.NoError(t, err)
	assert.Equal(t, "King", stored.Name)
}

func TestPatchProperty_StartsFromEmptyRow(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)

	patch := []byte(`[{"op": "replace", "path": "/description", "value": "wild"}]`)
	prop, err := f.svc.PatchProperty(context.Background(), "alice", card.ID, models.SideBack, patch)
	require.NoError(t, err)
	assert.Equal(t, "wild", prop.Description)
	assert.Equal(t, models.SideBack, prop.Side)
}

func TestPatchProperty_CannotMoveRow(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)
	seedProperty(f.store, card.ID, models.SideFront, "Ace", nil)

	patch := []byte(`[{"op": "replace", "path": "/side", "value": "back"}]`)
	_, err := f.svc.PatchProperty(context.Background(), "alice", card.ID, models.SideFront, patch)
	require.ErrorIs(t, err, ErrValidation)
}

func TestPatchProperty_RejectsMalformedPatch(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)

	_, err := f.svc.PatchProperty(context.Background(), "alice", card.ID, models.SideFront, []byte(`{not json`))
	require.ErrorIs(t, err, ErrValidation)
}

func TestDeletePart_PublishesEvent(t *testing.T) {
	f := newPartFixture(t)
	card := seedPart(f.store, f.version.ID, models.PartCard, 0, nil, nil)

	require.NoError(t, f.svc.DeletePart(context.Background(), "alice", card.ID))

	_, err := f.store.GetPart(context.Background(), card.ID)
	require.ErrorIs(t, err, ErrNotFound)

	topic := "test:events:" + f.proto.ID.String()
	assert.NotEmpty(t, f.pub.Messages(topic), "deletion notifies live collaborators")
}
