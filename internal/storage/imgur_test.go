package storage

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImgurPutAndDelete(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Client-ID test-client", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/3/image":
			assert.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "base64", r.FormValue("type"))
			assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")), r.FormValue("image"))
			_, _ = w.Write([]byte(`{"data":{"id":"abc","link":"https://i.imgur.com/abc.jpg","deletehash":"del123","type":"image/jpeg"},"success":true,"status":200}`))
		case r.Method == http.MethodDelete:
			deleted = r.URL.Path
			_, _ = w.Write([]byte(`{"data":true,"success":true,"status":200}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	im := NewImgur("test-client", srv.URL, time.Second)
	ref, err := im.Put(context.Background(), Object{Name: "photo.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")})
	require.NoError(t, err)
	assert.Equal(t, "imgur:del123", ref)

	require.NoError(t, im.Delete(context.Background(), ref))
	assert.Equal(t, "/3/image/del123", deleted)
}

func TestImgurFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"data":{"error":"bad image"},"success":false,"status":400}`))
	}))
	defer srv.Close()

	im := NewImgur("test-client", srv.URL, time.Second)
	_, err := im.Put(context.Background(), Object{Name: "x.png", ContentType: "image/png", Data: []byte("png")})
	require.Error(t, err)

	err = im.Delete(context.Background(), "imgur:del123")
	require.Error(t, err)

	assert.ErrorIs(t, im.Delete(context.Background(), "local:abc"), ErrInvalidRef)
}

func TestImgurTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	im := NewImgur("test-client", srv.URL, 20*time.Millisecond)
	_, err := im.Put(context.Background(), Object{Name: "a.png", ContentType: "image/png", Data: []byte("x")})
	require.Error(t, err)
}

func TestImgurRefusesNonImages(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	im := NewImgur("test-client", srv.URL, time.Second)
	for _, ct := range []string{"application/pdf", "audio/mpeg", "text/plain; charset=utf-8", ""} {
		t.Run(ct, func(t *testing.T) {
			assert.False(t, im.Accepts(ct))
			assert.False(t, Accepts(im, ct))
			_, err := im.Put(context.Background(), Object{Name: "statement.pdf", ContentType: ct, Data: []byte("%PDF-1.4")})
			assert.ErrorIs(t, err, ErrUnsupportedType)
		})
	}
	assert.Zero(t, calls.Load(), "non-image files must not reach imgur")
	assert.True(t, im.Accepts("image/jpeg"))
}
