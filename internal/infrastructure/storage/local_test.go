package storage

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir(), "/storage/")
	require.NoError(t, err)

	key := "pdfs/internal-transfers/transfer-t-1.pdf"
	url, err := l.Save(ctx, key, []byte("%PDF-1.3"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "/storage/pdfs/internal-transfers/transfer-t-1.pdf", url)

	ok, err := l.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := l.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	_, err = l.Save(ctx, key, []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	data, err = l.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, l.Delete(ctx, key))
	require.NoError(t, l.Delete(ctx, key))
	ok, err = l.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir(), "")
	require.NoError(t, err)

	for _, key := range []string{"", "../escape.pdf", "pdfs/../../escape.pdf", "..\\escape.pdf"} {
		_, err := l.Save(ctx, key, []byte("x"), "text/plain")
		assert.ErrorIs(t, err, ErrInvalidKey, key)
		_, err = l.Get(ctx, key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	assert.Equal(t, "", l.URL("../x"))
	assert.Equal(t, "/storage/a/b.pdf", l.URL("/a/b.pdf"))
}

func TestNewSelectsProvider(t *testing.T) {
	ctx := context.Background()
	p, err := New(ctx, Config{LocalPath: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Local{}, p)

	_, err = New(ctx, Config{Provider: "ftp"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(ctx, Config{Provider: "s3"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestObjectURL(t *testing.T) {
	cfg := S3Config{Bucket: "docs", Endpoint: "minio.local:9000"}
	assert.Equal(t, "http://minio.local:9000/docs/pdfs/a.pdf", objectURL(cfg, "pdfs/a.pdf"))

	cfg.UseSSL = true
	assert.Equal(t, "https://minio.local:9000/docs/pdfs/a.pdf", objectURL(cfg, "pdfs/a.pdf"))

	cfg.PublicURL = "https://cdn.example.com/"
	assert.Equal(t, "https://cdn.example.com/pdfs/a.pdf", objectURL(cfg, "pdfs/a.pdf"))
}
