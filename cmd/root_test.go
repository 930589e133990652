package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RMShur/model-organization/internal/document"
	"github.com/RMShur/model-organization/internal/experiments"
	"github.com/RMShur/model-organization/internal/organizer"
	"github.com/RMShur/model-organization/internal/testutil"
)

func TestSnapshotFrom_GroupsExperimentsByProject(t *testing.T) {
	ctx := context.Background()
	fixture := testutil.NewConfigDir(t)
	root := fixture.AddProject("vision")
	fixture.AddProject("speech")
	fixture.WriteExperiment(root, "mnist", document.FromPairs("project", "vision", "lr", 0.01))

	t.Setenv(organizer.ConfigDirEnv("snaptest"), fixture.Dir)
	cfg, err := organizer.New(ctx, "snaptest", organizer.WithStore(fixture.Store))
	require.NoError(t, err)
	defer cfg.Close()

	snap, err := snapshotFrom(cfg)
	require.NoError(t, err)
	require.Equal(t, "snaptest", snap.AppName)
	require.Len(t, snap.Projects, 2)
	require.Equal(t, "vision", snap.Projects[0].Name)
	require.Len(t, snap.Projects[0].Experiments, 1)
	require.Equal(t, "mnist", snap.Projects[0].Experiments[0].Name)
	require.Equal(t, "unloaded", snap.Projects[0].Experiments[0].State)
	require.Empty(t, snap.Projects[1].Experiments)
}

func TestSnapshotFrom_ReflectsArchivedState(t *testing.T) {
	ctx := context.Background()
	fixture := testutil.NewConfigDir(t)
	root := fixture.AddProject("vision")
	fixture.WriteExperiment(root, "mnist", document.FromPairs("project", "vision"))

	t.Setenv(organizer.ConfigDirEnv("snaptest"), fixture.Dir)
	cfg, err := organizer.New(ctx, "snaptest", organizer.WithStore(fixture.Store))
	require.NoError(t, err)
	defer cfg.Close()

	require.NoError(t, cfg.Experiments.SetArchive("mnist", experiments.NewArchive("done", "vision")))

	snap, err := snapshotFrom(cfg)
	require.NoError(t, err)
	require.Equal(t, "archived", snap.Projects[0].Experiments[0].State)
}

func TestStoreOptions_CacheOnlyWhenConfigured(t *testing.T) {
	settings.LockTimeout = time.Second
	settings.RetryDelay = 10 * time.Millisecond

	settings.CacheTTL = 0
	require.Len(t, storeOptions(), 2)

	settings.CacheTTL = time.Minute
	require.Len(t, storeOptions(), 3)
	settings.CacheTTL = 0
}
