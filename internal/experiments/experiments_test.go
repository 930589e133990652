package experiments

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RMShur/model-organization/internal/document"
	"github.com/RMShur/model-organization/internal/pubsub"
	"github.com/RMShur/model-organization/internal/testutil"
)

func TestLoad_MissingIndexBootstrapsEmpty(t *testing.T) {
	cfg := testutil.NewConfigDir(t)
	r, err := Load(context.Background(), cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, 0, r.Len())
}

func TestLoad_DiscoversOrphanedExperimentFiles(t *testing.T) {
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")
	cfg.WriteExperiment(root, "exp1", document.FromPairs("project", "base", "outdir", "out"))
	cfg.WriteExperiment(root, "exp2", document.FromPairs("project", "base"))

	r, err := Load(context.Background(), cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	require.ElementsMatch(t, []string{"exp1", "exp2"}, r.Names())
	state, err := r.Status("exp1")
	require.NoError(t, err)
	require.Equal(t, StateUnloaded, state, "discovery must be lazy")

	// The scan skips the project's own record file.
	require.NotContains(t, r.Names(), ".project")
}

func TestRealize_NormalizesPathsAndCaches(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")
	cfg.WriteExperiment(root, "exp1", document.FromPairs(
		"project", "base",
		"outdir", "out",
		"data", []any{"a.nc", "b.nc"},
	))

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	doc, err := r.Realize(ctx, "exp1")
	require.NoError(t, err)

	outdir, _ := doc.String("outdir")
	require.Equal(t, filepath.Join(root, "out"), outdir)
	data, _ := doc.Sequence("data")
	require.Equal(t, []any{filepath.Join(root, "a.nc"), filepath.Join(root, "b.nc")}, data)

	state, err := r.Status("exp1")
	require.NoError(t, err)
	require.Equal(t, StateLoaded, state)

	again, err := r.Realize(ctx, "exp1")
	require.NoError(t, err)
	require.Same(t, doc, again, "second access must return the cached document")
}

func TestRealize_UnknownName(t *testing.T) {
	cfg := testutil.NewConfigDir(t)
	r, err := Load(context.Background(), cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Realize(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrUnknownExperiment)
}

func TestProjectMap_TracksReadsAndArchives(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	rootA := cfg.AddProject("alpha")
	rootB := cfg.AddProject("beta")
	cfg.WriteExperiment(rootA, "exp1", document.FromPairs("project", "alpha"))
	cfg.WriteExperiment(rootB, "exp2", document.FromPairs("project", "beta"))

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	pm := r.ProjectMap()
	require.Equal(t, []string{"exp1"}, pm["alpha"])
	require.Equal(t, []string{"exp2"}, pm["beta"])

	// A new in-memory experiment shows up under its project once set.
	require.NoError(t, r.Set("exp3", document.FromPairs("project", "alpha")))
	pm = r.ProjectMap()
	require.Equal(t, []string{"exp1", "exp3"}, pm["alpha"])

	// Archiving keeps the name resolvable under its project.
	require.NoError(t, r.SetArchive("exp3", NewArchive("exp3.tar", "alpha")))
	pm = r.ProjectMap()
	require.Contains(t, pm["alpha"], "exp3")
}

func TestSetArchive_RemovesFromRealizationButKeepsName(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")
	cfg.WriteExperiment(root, "exp1", document.FromPairs("project", "base"))

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SetArchive("exp1", NewArchive("exp1.tar", "base")))

	_, err = r.Realize(ctx, "exp1")
	require.ErrorIs(t, err, ErrArchived)

	archive, ok := r.Archived("exp1")
	require.True(t, ok)
	require.Equal(t, "exp1.tar", archive.Label)
	require.Equal(t, "base", archive.Project)
	require.Contains(t, r.Names(), "exp1")
}

func TestSave_WritesRelativePathsAndIndex(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Set("exp1", document.FromPairs(
		"project", "base",
		"outdir", filepath.Join(root, "out"),
	)))
	require.NoError(t, r.Save(ctx))

	// The persisted file holds root-relative paths.
	onDisk, err := cfg.Store.Load(ctx, RecordPath(root, "exp1"))
	require.NoError(t, err)
	outdir, _ := onDisk.String("outdir")
	require.Equal(t, "out", outdir)

	// The master index lists the experiment as active (null).
	index, err := cfg.Store.Load(ctx, r.IndexPath())
	require.NoError(t, err)
	value, ok := index.Get("exp1")
	require.True(t, ok)
	require.Nil(t, value)
}

func TestSaveReload_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	original := document.FromPairs(
		"project", "base",
		"outdir", filepath.Join(root, "out"),
		"data", []any{filepath.Join(root, "a.nc")},
	)
	require.NoError(t, r.Set("exp1", original.Clone()))
	require.NoError(t, r.Save(ctx))
	r.Close()

	fresh, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer fresh.Close()

	realized, err := fresh.Realize(ctx, "exp1")
	require.NoError(t, err)
	require.True(t, original.Equal(realized),
		"reloaded experiment differs after a save/normalize round trip")
}

func TestSave_ArchiveMarkerSurvivesReload(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")
	cfg.WriteExperiment(root, "exp1", document.FromPairs("project", "base"))

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	marker := NewArchive("exp1.tar", "base")
	require.NoError(t, r.SetArchive("exp1", marker))
	require.NoError(t, r.Save(ctx))
	r.Close()

	fresh, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer fresh.Close()

	state, err := fresh.Status("exp1")
	require.NoError(t, err)
	require.Equal(t, StateArchived, state,
		"archived entry must not be downgraded by the directory scan")

	archive, ok := fresh.Archived("exp1")
	require.True(t, ok)
	require.Equal(t, marker.Label, archive.Label)
	require.Equal(t, marker.Project, archive.Project)
	require.Equal(t, marker.Time, archive.Time)
}

func TestLoad_RealizesEverything(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")
	cfg.WriteExperiment(root, "exp1", document.FromPairs("project", "base"))
	cfg.WriteExperiment(root, "exp2", document.FromPairs("project", "base"))

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Load(ctx)
	require.NoError(t, err)

	for _, name := range r.Names() {
		state, err := r.Status(name)
		require.NoError(t, err)
		require.Equal(t, StateLoaded, state)
	}
}

func TestEvents_RealizeAndArchivePublish(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")
	cfg.WriteExperiment(root, "exp1", document.FromPairs("project", "base"))

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	events := r.Events().Subscribe(ctx)

	_, err = r.Realize(ctx, "exp1")
	require.NoError(t, err)
	ev := <-events
	require.Equal(t, pubsub.RealizedEvent, ev.Type)
	require.Equal(t, "exp1", ev.Payload)

	require.NoError(t, r.SetArchive("exp1", NewArchive("exp1.tar", "base")))
	ev = <-events
	require.Equal(t, pubsub.ArchivedEvent, ev.Type)
}

func TestRealize_FailureLeavesEntryRetryable(t *testing.T) {
	ctx := context.Background()
	cfg := testutil.NewConfigDir(t)
	root := cfg.AddProject("base")
	// No project and no root key: root resolution must fail.
	path := cfg.WriteExperiment(root, "bad", document.FromPairs("outdir", "out"))

	r, err := Load(ctx, cfg.Projects(), cfg.Store)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Realize(ctx, "bad")
	require.Error(t, err)

	state, stateErr := r.Status("bad")
	require.NoError(t, stateErr)
	require.Equal(t, StateUnloaded, state, "failed load must stay a pending reference")

	// Fix the file on disk; the retry now succeeds.
	fixed := document.FromPairs("project", "base", "outdir", "out")
	require.NoError(t, cfg.Store.Save(ctx, fixed, path))
	_, err = r.Realize(ctx, "bad")
	require.NoError(t, err)
}
