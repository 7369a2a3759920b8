package registry

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/logger"
	"github.com/Ramsey-B/fern/pkg/models"
)

func newMemory(t *testing.T, enforceUniqueEmail bool) *Memory {
	t.Helper()
	return NewMemory(logger.NewNop(), enforceUniqueEmail)
}

func TestMemoryCreate(t *testing.T) {
	store := newMemory(t, true)

	ident, err := store.Create(context.Background(), models.CreateIdentityRequest{
		Email: "Sara.Johnson@Gmail.com",
		Name:  "  Sara Johnson ",
		Phone: "9876543210",
		SocialHandles: map[string]string{
			"instagram": "@sarapoetry23",
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ident.ID)
	assert.Equal(t, "sarajohnson@gmail.com", ident.CanonicalEmail)
	assert.Equal(t, "Sara Johnson", ident.CanonicalName)
	assert.Equal(t, []string{"919876543210"}, ident.PhoneNumbers)
	assert.Equal(t, "@sarapoetry23", ident.SocialHandles["instagram"])
	assert.Empty(t, ident.AlternativeEmails)
	assert.Equal(t, 1.0, ident.ConfidenceScore)
	assert.Equal(t, models.VerificationStatusVerified, ident.VerificationStatus)
}

func TestMemoryCreateValidation(t *testing.T) {
	store := newMemory(t, true)

	_, err := store.Create(context.Background(), models.CreateIdentityRequest{Email: "  ", Name: "Sara"})
	assert.ErrorIs(t, err, identity.ErrInvalidInput)

	_, err = store.Create(context.Background(), models.CreateIdentityRequest{Email: "sara@xyz.com", Name: " "})
	assert.ErrorIs(t, err, identity.ErrInvalidInput)
}

func TestMemoryCreateDuplicateEmail(t *testing.T) {
	store := newMemory(t, true)

	_, err := store.Create(context.Background(), models.CreateIdentityRequest{
		Email: "sara.johnson@gmail.com",
		Name:  "Sara Johnson",
	})
	require.NoError(t, err)

	// Dot variants normalize to the same gmail canonical email
	_, err = store.Create(context.Background(), models.CreateIdentityRequest{
		Email: "SaraJohnson@gmail.com",
		Name:  "Sara J",
	})
	assert.ErrorIs(t, err, identity.ErrDuplicateCanonicalEmail)
}

func TestMemoryCreateDuplicateEmailPermissive(t *testing.T) {
	store := newMemory(t, false)

	_, err := store.Create(context.Background(), models.CreateIdentityRequest{
		Email: "sara@xyz.com",
		Name:  "Sara Johnson",
	})
	require.NoError(t, err)

	_, err = store.Create(context.Background(), models.CreateIdentityRequest{
		Email: "sara@xyz.com",
		Name:  "Sara J",
	})
	assert.NoError(t, err)

	snapshot, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot, 2)
}

func TestMemoryGet(t *testing.T) {
	store := newMemory(t, true)

	created, err := store.Create(context.Background(), models.CreateIdentityRequest{
		Email: "sara@xyz.com",
		Name:  "Sara Johnson",
	})
	require.NoError(t, err)

	got, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = store.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)
}

func TestMemorySnapshotIsSortedAndIsolated(t *testing.T) {
	store := newMemory(t, true)

	for _, email := range []string{"a@xyz.com", "b@xyz.com", "c@xyz.com"} {
		_, err := store.Create(context.Background(), models.CreateIdentityRequest{Email: email, Name: "Someone"})
		require.NoError(t, err)
	}

	snapshot, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	assert.True(t, sort.SliceIsSorted(snapshot, func(i, j int) bool {
		return snapshot[i].ID < snapshot[j].ID
	}))

	// Mutating the snapshot must not leak into the registry
	snapshot[0].PhoneNumbers = append(snapshot[0].PhoneNumbers, "919876543210")
	snapshot[0].SocialHandles["test"] = "mutated"

	fresh, err := store.Get(context.Background(), snapshot[0].ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.PhoneNumbers)
	assert.Empty(t, fresh.SocialHandles)
}

func TestMemoryMerge(t *testing.T) {
	store := newMemory(t, true)
	ctx := context.Background()

	primary, err := store.Create(ctx, models.CreateIdentityRequest{
		Email: "sara.johnson@xyz.com",
		Name:  "Sara Johnson",
		Phone: "9876543210",
		SocialHandles: map[string]string{
			"instagram": "@sarapoetry23",
		},
	})
	require.NoError(t, err)

	secondary, err := store.Create(ctx, models.CreateIdentityRequest{
		Email: "sara.j@poetry.net",
		Name:  "Sara J",
		Phone: "9876543210", // duplicate of primary's phone
		SocialHandles: map[string]string{
			"instagram": "@different",
			"twitter":   "@sarapoetry",
		},
	})
	require.NoError(t, err)

	merged, err := store.Merge(ctx, primary.ID, secondary.ID)
	require.NoError(t, err)

	assert.Equal(t, primary.ID, merged.ID)
	assert.Equal(t, []string{"919876543210"}, merged.PhoneNumbers, "duplicate phone is not added twice")
	assert.Equal(t, "@sarapoetry23", merged.SocialHandles["instagram"], "existing platform handle survives")
	assert.Equal(t, "@sarapoetry", merged.SocialHandles["twitter"], "new platform handle is adopted")
	assert.Contains(t, merged.AlternativeEmails, "sara.j@poetry.net")

	// The secondary is destroyed and its id never reappears
	_, err = store.Get(ctx, secondary.ID)
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)

	snapshot, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot, 1)
}

func TestMemoryMergeErrors(t *testing.T) {
	store := newMemory(t, true)
	ctx := context.Background()

	ident, err := store.Create(ctx, models.CreateIdentityRequest{Email: "sara@xyz.com", Name: "Sara"})
	require.NoError(t, err)

	_, err = store.Merge(ctx, ident.ID, ident.ID)
	assert.ErrorIs(t, err, identity.ErrInvalidInput)

	_, err = store.Merge(ctx, ident.ID, "no-such-id")
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)

	_, err = store.Merge(ctx, "no-such-id", ident.ID)
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)
}

// Merging A into B then B into C carries the same signal union as merging
// both into C directly
func TestMemoryMergeAssociativeEffect(t *testing.T) {
	ctx := context.Background()

	build := func(t *testing.T) (*Memory, string, string, string) {
		store := newMemory(t, true)
		a, err := store.Create(ctx, models.CreateIdentityRequest{
			Email: "a@xyz.com", Name: "Sara A", Phone: "1111111111",
			SocialHandles: map[string]string{"instagram": "@a"},
		})
		require.NoError(t, err)
		b, err := store.Create(ctx, models.CreateIdentityRequest{
			Email: "b@xyz.com", Name: "Sara B", Phone: "2222222222",
			SocialHandles: map[string]string{"twitter": "@b"},
		})
		require.NoError(t, err)
		c, err := store.Create(ctx, models.CreateIdentityRequest{
			Email: "c@xyz.com", Name: "Sara C", Phone: "3333333333",
		})
		require.NoError(t, err)
		return store, a.ID, b.ID, c.ID
	}

	signalSet := func(ident *models.Identity) map[string]struct{} {
		set := map[string]struct{}{}
		for _, p := range ident.PhoneNumbers {
			set["phone:"+p] = struct{}{}
		}
		for platform, handle := range ident.SocialHandles {
			set["social:"+platform+":"+handle] = struct{}{}
		}
		for _, e := range ident.AlternativeEmails {
			set["email:"+e] = struct{}{}
		}
		return set
	}

	// Chained: A into B, then B into C
	chained, aID, bID, cID := build(t)
	_, err := chained.Merge(ctx, bID, aID)
	require.NoError(t, err)
	chainedResult, err := chained.Merge(ctx, cID, bID)
	require.NoError(t, err)

	// Direct: A into C, then B into C
	direct, aID, bID, cID := build(t)
	_, err = direct.Merge(ctx, cID, aID)
	require.NoError(t, err)
	directResult, err := direct.Merge(ctx, cID, bID)
	require.NoError(t, err)

	assert.Equal(t, signalSet(directResult), signalSet(chainedResult))
}

func TestMemoryReport(t *testing.T) {
	store := newMemory(t, true)
	ctx := context.Background()

	report, err := store.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalIdentities)
	assert.Equal(t, 0.0, report.AvgConfidence)

	for _, email := range []string{"a@xyz.com", "b@xyz.com"} {
		_, err := store.Create(ctx, models.CreateIdentityRequest{Email: email, Name: "Someone"})
		require.NoError(t, err)
	}

	report, err = store.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalIdentities)
	assert.Equal(t, 2, report.Verified)
	assert.Equal(t, 0, report.NeedsReview)
	assert.Equal(t, 0, report.AutoMatched)
	assert.InDelta(t, 1.0, report.AvgConfidence, 0.0001)
}
