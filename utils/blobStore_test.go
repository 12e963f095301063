package utils

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"lms/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBlobStore(t *testing.T) *LocalBlobStore {
	t.Helper()
	return NewLocalBlobStore(&config.Config{
		BlobDir:        filepath.Join(t.TempDir(), "public"),
		BlobPrivateDir: filepath.Join(t.TempDir(), "private"),
		BlobBaseURL:    "http://localhost:8080",
		BlobSignSecret: "test-secret",
	})
}

func TestLocalBlobStorePut(t *testing.T) {
	store := newTestBlobStore(t)

	publicURL, err := store.Put("certificates/1-2-3.html", []byte("<html>cert</html>"), true)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/certificates/1-2-3.html", publicURL)

	privateURL, err := store.Put("products/ebook.pdf", []byte("pdf-bytes"), false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/products/ebook.pdf", privateURL)

	// Private objects live outside the public dir.
	data, err := os.ReadFile(store.PrivatePath("products/ebook.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))
	_, err = os.Stat(filepath.Join(store.publicDir, "products", "ebook.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestSignURLRoundTrip(t *testing.T) {
	store := newTestBlobStore(t)

	signed, err := store.SignURL("products/ebook.pdf", 15*time.Minute)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	expires, err := strconv.ParseInt(parsed.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	sig := parsed.Query().Get("sig")

	assert.True(t, store.VerifySignature("products/ebook.pdf", expires, sig))

	// Any tampering invalidates the signature.
	assert.False(t, store.VerifySignature("products/other.pdf", expires, sig))
	assert.False(t, store.VerifySignature("products/ebook.pdf", expires+1, sig))
	assert.False(t, store.VerifySignature("products/ebook.pdf", expires, sig+"00"))
}

func TestVerifySignatureRejectsExpired(t *testing.T) {
	store := newTestBlobStore(t)

	expires := time.Now().Add(-time.Minute).Unix()
	sig := store.signature("products/ebook.pdf", expires)
	assert.False(t, store.VerifySignature("products/ebook.pdf", expires, sig))
}

func TestDecodeEmailJob(t *testing.T) {
	job, err := decodeEmailJob([]byte(`{"to":"a@b.com","subject":"Hi","html":"<p>Hi</p>"}`))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", job.To)

	_, err = decodeEmailJob([]byte(`{"subject":"no recipient"}`))
	assert.Error(t, err)

	_, err = decodeEmailJob([]byte(`not-json`))
	assert.Error(t, err)
}
