package forecasts

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swellwatch/internal/external"
	"swellwatch/internal/types"
)

const sampleForecast = `{"region_id":"r1","date":"2026-06-01",
	"wind":{"speed_kt":12.5,"direction_deg":135},
	"swell":{"height_m":1.6,"period_s":12,"direction_deg":185}}`

var testDay = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func noSleep(context.Context, time.Duration) error { return nil }

func newProvider(url string) *HTTPProvider {
	return NewHTTPProvider(http.DefaultClient, ProviderConfig{BaseURL: url, APIKey: "k"}, external.WithSleepFunc(noSleep))
}

func TestHTTPProvider_GetForecast_Plain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/regions/r1/forecast", r.URL.Path)
		assert.Equal(t, "2026-06-01", r.URL.Query().Get("date"))
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		w.Write([]byte(sampleForecast))
	}))
	defer server.Close()

	f, err := newProvider(server.URL).GetForecast(context.Background(), "r1", testDay.Add(7*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, testDay, f.Date)
	assert.Equal(t, 12.5, f.WindSpeedKnots)
	assert.Equal(t, 185.0, f.SwellDirectionDeg)
	assert.Equal(t, "provider", f.Source)
}

func TestHTTPProvider_GetForecast_Compressed(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write([]byte(sampleForecast))
	gw.Close()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zs := enc.EncodeAll([]byte(sampleForecast), nil)
	enc.Close()

	for name, tc := range map[string]struct {
		encoding string
		body     []byte
	}{
		"gzip": {"gzip", gz.Bytes()},
		"zstd": {"zstd", zs},
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tc.encoding)
				w.Write(tc.body)
			}))
			defer server.Close()

			f, err := newProvider(server.URL).GetForecast(context.Background(), "r1", testDay)
			require.NoError(t, err)
			assert.Equal(t, 1.6, f.SwellHeightM)
		})
	}
}

func TestHTTPProvider_GetForecast_NotFoundIsAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f, err := newProvider(server.URL).GetForecast(context.Background(), "r1", testDay)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestHTTPProvider_GetForecast_Errors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"missing fields": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"wind":{"speed_kt":3}}`))
		},
		"wrong day": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"date":"2026-05-31","wind":{"speed_kt":1,"direction_deg":1},"swell":{"height_m":1,"period_s":1,"direction_deg":1}}`))
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{`))
		},
		"unauthorized": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		"unknown encoding": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", "br")
			w.Write([]byte("xx"))
		},
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(h)
			defer server.Close()

			f, err := newProvider(server.URL).GetForecast(context.Background(), "r1", testDay)
			assert.Nil(t, f)
			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, types.ErrCodeUpstreamForecast, appErr.Code)
		})
	}
}
