package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdpsession/pkg/model"
)

func TestNewContent_InvalidTier(t *testing.T) {
	_, err := NewContent(0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page tier")

	_, err = NewContent(10, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset tier")

	var cfgErr *model.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestContent_TiersAreIndependent(t *testing.T) {
	c, err := NewContent(1, 2)
	require.NoError(t, err)

	c.StorePage("https://a.test/", []byte("<html>a</html>"))
	c.StoreAsset("https://a.test/", []byte("asset"))

	page, ok := c.GetPage("https://a.test/")
	require.True(t, ok)
	assert.Equal(t, "<html>a</html>", string(page))

	asset, ok := c.GetAsset("https://a.test/")
	require.True(t, ok)
	assert.Equal(t, "asset", string(asset))

	// 页面层满后淘汰不影响资源层
	c.StorePage("https://b.test/", []byte("b"))
	_, ok = c.GetPage("https://a.test/")
	assert.False(t, ok)
	_, ok = c.GetAsset("https://a.test/")
	assert.True(t, ok)
}

func TestContent_ClearAll(t *testing.T) {
	c, err := NewContent(4, 4)
	require.NoError(t, err)

	urls := []string{"https://x.test/1", "https://x.test/2"}
	for _, u := range urls {
		c.StorePage(u, []byte("p"))
		c.StoreAsset(u, []byte("a"))
	}
	c.ClearAll()

	for _, u := range urls {
		_, ok := c.GetPage(u)
		assert.False(t, ok)
		_, ok = c.GetAsset(u)
		assert.False(t, ok)
	}
	st := c.Stats()
	assert.Zero(t, st.Pages.Len)
	assert.Zero(t, st.Assets.Len)
}

func TestContent_ValuesAreCopied(t *testing.T) {
	c, err := NewContent(1, 1)
	require.NoError(t, err)

	body := []byte("abc")
	c.Store(model.TierAsset, "u", body)
	body[0] = 'z'

	got, ok := c.Get(model.TierAsset, "u")
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))
}

func TestContent_PurgeOlderThan(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c, err := NewContent(2, 2, WithClock[[]byte](func() time.Time { return now }))
	require.NoError(t, err)

	c.StorePage("p", []byte("1"))
	c.StoreAsset("a", []byte("1"))
	now = now.Add(2 * time.Hour)
	c.StoreAsset("b", []byte("2"))

	pages, assets := c.PurgeOlderThan(now.Add(-time.Hour))
	assert.Equal(t, 1, pages)
	assert.Equal(t, 1, assets)
	_, ok := c.GetAsset("b")
	assert.True(t, ok)
}

func TestContent_UnknownTierIsIgnored(t *testing.T) {
	c, err := NewContent(2, 2)
	require.NoError(t, err)

	c.Store("", "https://a.test/", []byte("x"))
	c.Store("pages", "https://a.test/", []byte("x"))
	_, ok := c.Get("", "https://a.test/")
	assert.False(t, ok)

	st := c.Stats()
	assert.Zero(t, st.Pages.Len)
	assert.Zero(t, st.Assets.Len)

	c.Store(model.TierAsset, "https://a.test/a.js", []byte("js"))
	got, ok := c.Get(model.TierAsset, "https://a.test/a.js")
	require.True(t, ok)
	assert.Equal(t, "js", string(got))
}

func TestContent_StorePages(t *testing.T) {
	c, err := NewContent(2, 2)
	require.NoError(t, err)

	batch := map[string][]byte{
		"https://a.test/1": []byte("1"),
		"https://a.test/2": []byte("2"),
		"https://a.test/3": []byte("3"),
	}
	c.StorePages(batch)
	batch["https://a.test/1"][0] = 'x'

	st := c.Stats()
	assert.Equal(t, 2, st.Pages.Len)
	assert.Equal(t, uint64(1), st.Pages.Evictions)
	assert.Zero(t, st.Assets.Len)

	for url := range batch {
		if got, ok := c.GetPage(url); ok {
			assert.Equal(t, url[len(url)-1:], string(got))
		}
	}
}
