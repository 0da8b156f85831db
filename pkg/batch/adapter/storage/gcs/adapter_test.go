package gcs_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/taxiweather/pkg/batch/adapter/storage/gcs"
)

// fakeGCS serves the JSON listing endpoint and XML media reads for one bucket.
func fakeGCS(t *testing.T, bucket string, objects map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		listPath := "/storage/v1/b/" + bucket + "/o"
		switch {
		case r.Method == http.MethodGet && r.URL.Path == listPath:
			prefix := r.URL.Query().Get("prefix")
			var items []map[string]string
			for _, name := range []string{"trips/a.parquet", "trips/b.parquet", "weather.csv"} {
				if _, ok := objects[name]; ok && strings.HasPrefix(name, prefix) {
					items = append(items, map[string]string{"name": name, "bucket": bucket})
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"kind": "storage#objects", "items": items})
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/"+bucket+"/"):
			body, ok := objects[strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = io.WriteString(w, body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAdapter(t *testing.T, srv *httptest.Server) interface {
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	Close() error
} {
	t.Helper()
	conn, err := gcs.NewGCSAdapter(context.Background(), storageConfig.StorageConfig{
		Type:       "gcs",
		BucketName: "taxi",
		Endpoint:   srv.URL + "/storage/v1/",
		ReadOnly:   true,
	}, "input")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewGCSAdapter_RequiresBucket(t *testing.T) {
	_, err := gcs.NewGCSAdapter(context.Background(), storageConfig.StorageConfig{Type: "gcs"}, "export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket_name")
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, gcs.ClientOptions(storageConfig.StorageConfig{}))
	assert.Len(t, gcs.ClientOptions(storageConfig.StorageConfig{CredentialsFile: "/etc/key.json"}), 1)
	assert.Len(t, gcs.ClientOptions(storageConfig.StorageConfig{Endpoint: "http://localhost:4443/storage/v1/"}), 2)
}

func TestGCSAdapter_ListAndDownload(t *testing.T) {
	srv := fakeGCS(t, "taxi", map[string]string{
		"trips/a.parquet": "A",
		"trips/b.parquet": "B",
		"weather.csv":     "datetime\n",
	})
	conn := newAdapter(t, srv)
	ctx := context.Background()

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "", "trips/", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"trips/a.parquet", "trips/b.parquet"}, names)

	r, err := conn.Download(ctx, "", "weather.csv")
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "datetime\n", string(body))

	_, err = conn.Download(ctx, "", "missing.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestGCSAdapter_ReadOnlyRefusesUpload(t *testing.T) {
	srv := fakeGCS(t, "taxi", nil)
	conn := newAdapter(t, srv)
	err := conn.Upload(context.Background(), "", "x", strings.NewReader("x"), "text/plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
}
