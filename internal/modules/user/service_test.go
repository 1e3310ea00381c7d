package user

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusride/internal/types"
)

func strPtr(s string) *string { return &s }

func TestMe_BlankWhenUnknown(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	actor := types.Actor{ID: "s1", Role: types.RoleStudent}

	u, err := svc.Me(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, actor.ID, u.ID)
	assert.Equal(t, types.RoleStudent, u.Role)
	assert.Empty(t, u.Name)
	assert.Nil(t, u.Rating)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil)
	actor := types.Actor{ID: "d1", Role: types.RoleDriver}

	u, err := svc.UpdateProfile(ctx, actor, actor.ID, ProfileUpdate{Name: strPtr("  Ravi "), Email: strPtr("ravi@campus.edu")})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", u.Name)
	assert.Equal(t, "ravi@campus.edu", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	u, err = svc.UpdateProfile(ctx, actor, actor.ID, ProfileUpdate{Email: strPtr("r@campus.edu")})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", u.Name, "omitted fields are kept")
	assert.Equal(t, "r@campus.edu", u.Email)

	got, err := svc.GetDriver(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", got.Name)
}

func TestUpdateProfile_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)
	actor := types.Actor{ID: "s1", Role: types.RoleStudent}

	_, err := svc.UpdateProfile(ctx, actor, "s2", ProfileUpdate{Name: strPtr("x")})
	assert.ErrorIs(t, err, ErrForbidden)

	cases := map[string]ProfileUpdate{
		"empty":      {},
		"blank name": {Name: strPtr("   ")},
		"long name":  {Name: strPtr(strings.Repeat("n", 101))},
		"bad email":  {Email: strPtr("not-an-email")},
	}
	for name, upd := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, actor, actor.ID, upd)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestDriverRating(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil)

	_, err := svc.DriverRating(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetRating(ctx, "d1", 4.25))
	r, err := svc.DriverRating(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 4.25, *r)

	_, err = svc.UpdateProfile(ctx, types.Actor{ID: "s1", Role: types.RoleStudent}, "s1", ProfileUpdate{Name: strPtr("Mei")})
	require.NoError(t, err)
	_, err = svc.GetDriver(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound, "students are not listed as drivers")
	assert.ErrorIs(t, store.SetRating(ctx, "s1", 3), ErrNotDriver)
}
