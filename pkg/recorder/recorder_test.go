package recorder

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdpsession/pkg/model"
	"cdpsession/pkg/traffic"
)

func req(url string) traffic.RequestRecord {
	return traffic.RequestRecord{URL: url, Method: "GET"}
}

func urls(recs []traffic.RequestRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.URL)
	}
	return out
}

func TestNew_RejectsNonPositiveMax(t *testing.T) {
	_, err := New(0)
	var cfgErr *model.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "max_records", cfgErr.Field)
}

func TestRecorder_KeepsLastRecordsInOrder(t *testing.T) {
	r, err := New(3)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "api"}))

	for i := 1; i <= 5; i++ {
		assert.True(t, r.Intercept(req(fmt.Sprintf("https://x.test/api/%d", i))))
	}

	assert.Equal(t, []string{
		"https://x.test/api/3",
		"https://x.test/api/4",
		"https://x.test/api/5",
	}, urls(r.Records()))
	assert.Equal(t, int64(2), r.Stats().Evicted)
}

func TestNew_LargeMaxAllocatesLazily(t *testing.T) {
	r, err := New(1 << 40)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{}))

	r.Intercept(req("https://x.test/1"))
	r.Intercept(req("https://x.test/2"))
	assert.Equal(t, 1<<40, r.Cap())
	assert.Equal(t, []string{"https://x.test/1", "https://x.test/2"}, urls(r.Records()))
}

func TestRecorder_OrderAcrossGrowAndWrap(t *testing.T) {
	r, err := New(3)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{}))

	var want []string
	for i := 1; i <= 7; i++ {
		u := fmt.Sprintf("https://x.test/%d", i)
		r.Intercept(req(u))
		want = append(want, u)
		if len(want) > 3 {
			want = want[1:]
		}
		assert.Equal(t, want, urls(r.Records()), "after %d records", i)
	}

	r.Clear()
	r.Intercept(req("https://x.test/8"))
	assert.Equal(t, []string{"https://x.test/8"}, urls(r.Records()))
}

func TestRecorder_NoFiltersRecordsNothing(t *testing.T) {
	r, err := New(10)
	require.NoError(t, err)

	assert.False(t, r.Intercept(req("https://x.test/api")))
	assert.Zero(t, r.Len())
}

func TestRecorder_NonMatchingIsDropped(t *testing.T) {
	r, err := New(10)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "api"}))
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "graphql", Method: "POST"}))

	assert.False(t, r.Intercept(req("https://x.test/static/app.css")))
	assert.False(t, r.Intercept(req("https://x.test/graphql")))
	assert.True(t, r.Intercept(traffic.RequestRecord{URL: "https://x.test/graphql", Method: "POST"}))
	assert.Equal(t, []string{"https://x.test/graphql"}, urls(r.Records()))
}

func TestRecorder_AddFilterErrorKeepsExisting(t *testing.T) {
	r, err := New(2)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "api"}))

	err = r.AddFilter(model.RequestFilter{URLGlob: "[oops"})
	var fe *model.FilterError
	require.True(t, errors.As(err, &fe))

	assert.Len(t, r.Filters(), 1)
	assert.True(t, r.Intercept(req("https://x.test/api")))
}

func TestRecorder_ClearKeepsFilters(t *testing.T) {
	r, err := New(2)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "api"}))
	r.Intercept(req("https://x.test/api/1"))

	r.Clear()
	assert.Zero(t, r.Len())
	assert.Len(t, r.Filters(), 1)

	r.Intercept(req("https://x.test/api/2"))
	assert.Equal(t, []string{"https://x.test/api/2"}, urls(r.Records()))
}

func TestRecorder_RecordsAreImmutable(t *testing.T) {
	r, err := New(2)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "api"}))

	in := traffic.RequestRecord{URL: "https://x.test/api", Method: "POST", Body: []byte("abc")}
	in.Headers.Add("Accept", "*/*")
	r.Intercept(in)
	in.Body[0] = 'z'
	in.Headers[0].Value = "changed"

	got := r.Records()[0]
	assert.Equal(t, "abc", string(got.Body))
	assert.Equal(t, "*/*", got.Headers.Get("accept"))
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())

	got.Body[0] = 'q'
	assert.Equal(t, "abc", string(r.Records()[0].Body))
}

func TestRecorder_RedactsJSONBody(t *testing.T) {
	r, err := New(2, WithRedactPaths("password", "card.number"))
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "login"}))

	r.Intercept(traffic.RequestRecord{
		URL:    "https://x.test/login",
		Method: "POST",
		Body:   []byte(`{"user":"amy","password":"hunter2","card":{"number":"4111"}}`),
	})
	r.Intercept(traffic.RequestRecord{URL: "https://x.test/login?plain", Method: "POST", Body: []byte("password=hunter2")})

	recs := r.Records()
	assert.JSONEq(t, `{"user":"amy","password":"[REDACTED]","card":{"number":"[REDACTED]"}}`, string(recs[0].Body))
	assert.Equal(t, "password=hunter2", string(recs[1].Body))
}

func TestRecorder_DropBefore(t *testing.T) {
	now := time.Unix(1700000000, 0)
	r, err := New(5, WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{}))

	r.Intercept(req("https://x.test/1"))
	r.Intercept(req("https://x.test/2"))
	now = now.Add(time.Hour)
	r.Intercept(req("https://x.test/3"))

	assert.Equal(t, 2, r.DropBefore(now.Add(-time.Minute)))
	assert.Equal(t, []string{"https://x.test/3"}, urls(r.Records()))

	// 环形缓冲在丢弃后仍保持顺序
	for i := 4; i <= 8; i++ {
		r.Intercept(req(fmt.Sprintf("https://x.test/%d", i)))
	}
	assert.Equal(t, []string{
		"https://x.test/4", "https://x.test/5", "https://x.test/6", "https://x.test/7", "https://x.test/8",
	}, urls(r.Records()))
}

func TestRecorder_Subscribe(t *testing.T) {
	r, err := New(2)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "api"}))

	ch, cancel := r.Subscribe(4)
	r.Intercept(req("https://x.test/api"))
	r.Intercept(req("https://x.test/other"))

	select {
	case got := <-ch:
		assert.Equal(t, "https://x.test/api", got.URL)
	case <-time.After(time.Second):
		t.Fatal("no record delivered")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestRecorder_ConcurrentIntercept(t *testing.T) {
	r, err := New(50)
	require.NoError(t, err)
	require.NoError(t, r.AddFilter(model.RequestFilter{URLContains: "api"}))

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				r.Intercept(req(fmt.Sprintf("https://x.test/api/%d/%d", g, i)))
			}
		}(g)
	}
	wg.Wait()

	st := r.Stats()
	assert.Equal(t, 50, st.Len)
	assert.Equal(t, int64(1600), st.Matched)
	assert.Equal(t, int64(1550), st.Evicted)
}

func TestRecorder_SubscribeAfterClose(t *testing.T) {
	r, err := New(2)
	require.NoError(t, err)
	r.Close()

	ch, cancel := r.Subscribe(1)
	defer cancel()
	_, open := <-ch
	assert.False(t, open)
}
