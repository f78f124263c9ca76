//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/creative-composer/internal/types"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := Connect(ctx, databaseURL)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func testAttrs() types.RunAttributes {
	return types.RunAttributes{
		ProductDescription: "test product",
		PrimaryFont:        "Didot",
	}
}

func TestCreateAndGetRun_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	created, err := db.CreateRun(ctx, "owner-1", "s3://creatives/in.png", testAttrs())
	require.NoError(t, err)
	assert.Equal(t, types.RunStateCreated, created.State)
	assert.Equal(t, int64(1), created.Version)

	fetched, err := db.GetRun(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "test product", fetched.Attributes.ProductDescription)
}

func TestUpdateRunCAS_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	record, err := db.CreateRun(ctx, "owner-1", "s3://creatives/in.png", testAttrs())
	require.NoError(t, err)

	stale := *record

	record.State = types.RunStateCompiling
	require.NoError(t, db.UpdateRun(ctx, record))
	assert.Equal(t, int64(2), record.Version)

	// The stale copy still holds version 1; its write must be discarded.
	stale.State = types.RunStateCancelled
	err = db.UpdateRun(ctx, &stale)
	assert.ErrorIs(t, err, ErrStaleRun)

	fetched, err := db.GetRun(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStateCompiling, fetched.State)
}

func TestSpecRevisions_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	record, err := db.CreateRun(ctx, "owner-1", "s3://creatives/in.png", testAttrs())
	require.NoError(t, err)

	spec := &types.CompositionSpec{
		Canvas:     types.DefaultCanvas,
		Background: types.Background{Kind: types.BackgroundSolidColor, Color: "#FFFFFF"},
	}

	first, err := db.AddSpecRevision(ctx, record.ID, spec, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Revision)

	second, err := db.AddSpecRevision(ctx, record.ID, spec, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Revision)

	revisions, err := db.ListSpecRevisions(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Equal(t, 1, revisions[0].Revision)
}
