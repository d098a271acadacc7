package lexical

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/akolanti/irbench/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var corpus = []commonModels.Document{
	{DocID: "d1", Text: "勾股定理的证明方法与应用"},
	{DocID: "d2", Text: "一元二次方程的求根公式"},
	{DocID: "d3", Text: "光合作用需要光照和二氧化碳"},
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b c", Sanitize(`a+b:"c"`))
	assert.Equal(t, "勾股定理 证明", Sanitize("勾股定理?(证明)"))
	assert.Equal(t, "", Sanitize(`*?~`))
}

func TestIndexSearch(t *testing.T) {
	ctx := context.Background()
	idx, err := New("")
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Add(ctx, corpus))
	n, err := idx.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	hits, err := idx.Search(ctx, "勾股定理怎么证明", 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "d1", hits[0].DocID)
	assert.Equal(t, corpus[0].Text, hits[0].Text)
	assert.LessOrEqual(t, len(hits), 2)

	hits, err = idx.Search(ctx, "光合作用", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "d3", hits[0].DocID)

	t.Run("syntax only query", func(t *testing.T) {
		hits, err := idx.Search(ctx, `"*"`, 3)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := idx.Search(ctx, "方程", 0)
		assert.Error(t, err)
	})
}

func TestIndexOnDiskReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idx")

	idx, err := New(path)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, corpus[:2]))
	require.NoError(t, idx.Close())

	idx, err = New(path)
	require.NoError(t, err)
	defer idx.Close()
	n, err := idx.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
