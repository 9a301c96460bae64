package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"dicescraper/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	mgr, err := NewManager(filepath.Join(t.TempDir(), "state", "progress.json"), log)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return mgr, log
}

func TestCheckpointManager(t *testing.T) {
	query := map[string]string{"q": "Java Developer", "filters.postedDate": "THREE"}

	t.Run("SaveAndLoad", func(t *testing.T) {
		mgr, _ := newTestManager(t)

		if err := mgr.Save(3, query); err != nil {
			t.Fatalf("Failed to save checkpoint: %v", err)
		}

		loaded := mgr.Load()
		if loaded == nil {
			t.Fatal("Expected checkpoint, got nil")
		}
		if loaded.LastCompletedPage != 3 {
			t.Errorf("Expected last completed page 3, got %d", loaded.LastCompletedPage)
		}
		if !loaded.MatchesQuery(query) {
			t.Errorf("Expected query %v, got %v", query, loaded.Query)
		}
		if loaded.NextPage() != 4 {
			t.Errorf("Expected next page 4, got %d", loaded.NextPage())
		}
	})

	t.Run("SaveReplacesPreviousState", func(t *testing.T) {
		mgr, _ := newTestManager(t)

		require.NoError(t, mgr.Save(1, query))
		require.NoError(t, mgr.Save(2, map[string]string{"q": "Go"}))

		loaded := mgr.Load()
		require.NotNil(t, loaded)
		assert.Equal(t, 2, loaded.LastCompletedPage)
		assert.Equal(t, map[string]string{"q": "Go"}, loaded.Query)
	})

	t.Run("SaveDoesNotAliasQuery", func(t *testing.T) {
		mgr, _ := newTestManager(t)
		q := map[string]string{"q": "Java"}

		require.NoError(t, mgr.Save(1, q))
		q["q"] = "changed"

		assert.Equal(t, "Java", mgr.Load().Query["q"])
	})

	t.Run("FileFormat", func(t *testing.T) {
		mgr, _ := newTestManager(t)
		require.NoError(t, mgr.Save(5, map[string]string{"filters.employmentType": "CONTRACTS|THIRD_PARTY"}))

		data, err := os.ReadFile(mgr.Path())
		require.NoError(t, err)

		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, float64(5), raw["last_completed_page"])
		assert.Equal(t, map[string]interface{}{"filters.employmentType": "CONTRACTS|THIRD_PARTY"}, raw["query"])

		// No temp files are left behind
		entries, err := os.ReadDir(filepath.Dir(mgr.Path()))
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp")
		}
	})

	t.Run("NegativePageRejected", func(t *testing.T) {
		mgr, _ := newTestManager(t)
		assert.Error(t, mgr.Save(-1, query))
		assert.False(t, mgr.Exists())
	})

	t.Run("DeleteAndExists", func(t *testing.T) {
		mgr, _ := newTestManager(t)
		require.NoError(t, mgr.Save(1, query))
		assert.True(t, mgr.Exists())

		require.NoError(t, mgr.Delete())
		assert.False(t, mgr.Exists())
		assert.Nil(t, mgr.Load())

		// Deleting twice is fine
		assert.NoError(t, mgr.Delete())
	})

	t.Run("Backup", func(t *testing.T) {
		mgr, _ := newTestManager(t)
		assert.NoError(t, mgr.Backup())

		require.NoError(t, mgr.Save(7, query))
		require.NoError(t, mgr.Backup())

		original, err := os.ReadFile(mgr.Path())
		require.NoError(t, err)
		backup, err := os.ReadFile(mgr.Path() + ".backup")
		require.NoError(t, err)
		assert.Equal(t, original, backup)
	})
}

func TestLoadTreatsBadFilesAsAbsent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		warnText string
	}{
		{
			name:     "corrupt json",
			content:  `{"last_completed_page": 3,`,
			warnText: "Corrupt checkpoint, starting fresh",
		},
		{
			name:     "missing page field",
			content:  `{"query": {"q": "Java"}}`,
			warnText: "Checkpoint has no last_completed_page, starting fresh",
		},
		{
			name:     "negative page",
			content:  `{"last_completed_page": -2, "query": {}}`,
			warnText: "Checkpoint page is negative, starting fresh",
		},
		{
			name:     "wrong type",
			content:  `{"last_completed_page": "three"}`,
			warnText: "Corrupt checkpoint, starting fresh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, log := newTestManager(t)
			require.NoError(t, os.WriteFile(mgr.Path(), []byte(tt.content), 0644))

			assert.Nil(t, mgr.Load())

			msg, ok := log.FindMessage(tt.warnText)
			require.True(t, ok, "expected warning %q, got:\n%s", tt.warnText, log.String())
			assert.Equal(t, "WARN", msg.Level)
		})
	}
}

func TestLoadMissingFileIsQuiet(t *testing.T) {
	mgr, log := newTestManager(t)

	assert.Nil(t, mgr.Load())
	assert.Empty(t, log.GetMessagesByLevel("WARN"))
	assert.True(t, log.HasMessage("No checkpoint found, starting fresh"))
}

func TestLoadWithoutQueryField(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, os.WriteFile(mgr.Path(), []byte(`{"last_completed_page": 0}`), 0644))

	cp := mgr.Load()
	require.NotNil(t, cp)
	assert.Equal(t, 0, cp.LastCompletedPage)
	assert.NotNil(t, cp.Query)
	assert.Equal(t, 1, cp.NextPage())
}

func TestSaveFailsWhenDirectoryIsGone(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, os.RemoveAll(filepath.Dir(mgr.Path())))

	assert.Error(t, mgr.Save(1, nil))
}
