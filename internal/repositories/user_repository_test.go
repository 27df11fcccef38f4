package repositories

import (
	"context"
	"testing"

	"github.com/anonto42/songoftheday/backend/internal/models"
	"github.com/anonto42/songoftheday/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostgresUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &models.User{Username: "alice", Password: "h"}))
	err := repo.CreateUser(ctx, &models.User{Username: "alice", Password: "h2"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserLookups(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostgresUserRepository(db)
	ctx := context.Background()
	uid := "firebase-123"
	alice := &models.User{Username: "alice", Password: "h", FirebaseUID: &uid}
	require.NoError(t, repo.CreateUser(ctx, alice))
	bob := testutil.CreateUser(t, db, "bob")

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = repo.GetUserByFirebaseUID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	users, err := repo.GetUsersByIDs(ctx, []uint{alice.ID, bob.ID, 999})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "bob", users[bob.ID].Username)

	got.FavoriteBand = "The Band"
	require.NoError(t, repo.UpdateUser(ctx, got))
	reloaded, err := repo.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Band", reloaded.FavoriteBand)
}
