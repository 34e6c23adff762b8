package preferences_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/airwatch/internal/preferences"
)

func repositories(t *testing.T) map[string]preferences.Repository {
	t.Helper()

	sqlite, err := preferences.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "data", "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]preferences.Repository{
		"memory": preferences.NewInMemoryRepository(),
		"sqlite": sqlite,
	}
}

func TestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(ctx, "missing")
			assert.ErrorIs(t, err, preferences.ErrNotFound)

			require.NoError(t, repo.Set(ctx, "k", []byte(`{"a":1}`)))
			got, err := repo.Get(ctx, "k")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":1}`, string(got))

			require.NoError(t, repo.Set(ctx, "k", []byte(`{"a":2}`)))
			got, err = repo.Get(ctx, "k")
			require.NoError(t, err)
			assert.JSONEq(t, `{"a":2}`, string(got))

			require.NoError(t, repo.Delete(ctx, "k"))
			_, err = repo.Get(ctx, "k")
			assert.ErrorIs(t, err, preferences.ErrNotFound)

			assert.NoError(t, repo.Delete(ctx, "k"))
		})
	}
}

func TestSQLiteRepository_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	repo, err := preferences.OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.Set(ctx, preferences.LayoutKey, []byte(`{"leftWidth":600,"rightWidth":350}`)))
	require.NoError(t, repo.Close())

	reopened, err := preferences.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, preferences.LayoutKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"leftWidth":600,"rightWidth":350}`, string(got))
}

func TestInMemoryRepository_CopiesValues(t *testing.T) {
	ctx := context.Background()
	repo := preferences.NewInMemoryRepository()

	v := []byte("abc")
	require.NoError(t, repo.Set(ctx, "k", v))
	v[0] = 'x'

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
