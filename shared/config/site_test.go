package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/itchan-dev/boardkeeper/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	t.Run("generates the default layout", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "site")

		configs, err := Bootstrap(root)
		require.NoError(t, err)

		want := []domain.BoardConfig{
			{Name: "α", Description: DefaultBoardDescription, ActiveCapacity: 16, ArchiveCapacity: 8},
			{Name: "test", Description: DefaultBoardDescription, ActiveCapacity: 16, ArchiveCapacity: 8},
		}
		assert.Equal(t, want, configs)

		site, err := os.ReadFile(filepath.Join(root, "config.txt"))
		require.NoError(t, err)
		assert.Equal(t, "boards: α, test\r\n", string(site))
		for _, name := range []string{"α", "test"} {
			assert.FileExists(t, filepath.Join(root, "boards", name, "config.txt"))
		}

		again, err := Bootstrap(root)
		require.NoError(t, err)
		assert.Equal(t, want, again, "second run reads the generated files")
	})

	t.Run("reads existing configs", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "config.txt"), "boards: b ,  ру,\r\n")
		writeFile(t, filepath.Join(root, "boards", "b", "config.txt"),
			"description: Random\r\nactive_count: 2\r\narchive_count: 1\r\n")

		configs, err := Bootstrap(root)
		require.NoError(t, err)
		require.Len(t, configs, 2)
		assert.Equal(t, domain.BoardConfig{Name: "b", Description: "Random", ActiveCapacity: 2, ArchiveCapacity: 1}, configs[0])
		assert.Equal(t, "ру", configs[1].Name)
		assert.Equal(t, DefaultActiveCount, configs[1].ActiveCapacity)
	})

	t.Run("values are taken verbatim after the first separator", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "config.txt"), "boards: a, b\r\n")
		writeFile(t, filepath.Join(root, "boards", "a", "config.txt"), "description: Rules: be nice\r\n")
		writeFile(t, filepath.Join(root, "boards", "b", "config.txt"), "description: #1 board\r\n")

		configs, err := Bootstrap(root)
		require.NoError(t, err)
		assert.Equal(t, "Rules: be nice", configs[0].Description)
		assert.Equal(t, "#1 board", configs[1].Description)
	})

	t.Run("empty description is kept", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "config.txt"), "boards: a\n")
		writeFile(t, filepath.Join(root, "boards", "a", "config.txt"), "description: \n")
		configs, err := Bootstrap(root)
		require.NoError(t, err)
		assert.Empty(t, configs[0].Description)
	})

	t.Run("partial board config keeps defaults", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "config.txt"), "boards: a\n")
		writeFile(t, filepath.Join(root, "boards", "a", "config.txt"), "active_count: 3\n")
		configs, err := Bootstrap(root)
		require.NoError(t, err)
		assert.Equal(t, domain.BoardConfig{Name: "a", Description: DefaultBoardDescription, ActiveCapacity: 3, ArchiveCapacity: 8}, configs[0])
	})

	errorCases := []struct {
		name  string
		site  string
		board string
	}{
		{name: "no boards", site: "boards:  , \n"},
		{name: "missing boards key", site: "other: x\n"},
		{name: "duplicate board", site: "boards: a, a\n"},
		{name: "path in board name", site: "boards: ../etc\n"},
		{name: "zero active count", site: "boards: a\n", board: "active_count: 0\n"},
		{name: "negative archive count", site: "boards: a\n", board: "archive_count: -1\n"},
		{name: "non numeric count", site: "boards: a\n", board: "active_count: many\n"},
		{name: "line without separator", site: "boards: a\n", board: "active_count 3\n"},
		{name: "malformed site config", site: "boards a\n"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, filepath.Join(root, "config.txt"), tc.site)
			if tc.board != "" {
				writeFile(t, filepath.Join(root, "boards", "a", "config.txt"), tc.board)
			}
			_, err := Bootstrap(root)
			assert.Error(t, err)
		})
	}
}
