package loader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+Extension), []byte(src), 0o644))
}

func TestLoadCachesByCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "greet", "name = \"glint\"\nexport name\n")

	l := New(dir)
	a, err := l.Load("greet")
	require.NoError(t, err)
	b, err := l.Load("greet")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestLoadMissingModuleErrors(t *testing.T) {
	l := New(t.TempDir())
	_, err := l.Load("nope")
	assert.Error(t, err)
}

func TestConcurrentLoadsCoalesce(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "shared", "value = 1\nexport value\n")
	l := New(dir)

	var wg sync.WaitGroup
	results := make([]interface{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chunk, err := l.Load("shared")
			require.NoError(t, err)
			results[i] = chunk
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}
