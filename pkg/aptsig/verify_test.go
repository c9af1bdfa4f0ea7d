package aptsig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicwaller/apt-look/pkg/aptdistro"
)

type stubFetcher struct {
	text string
	err  error
}

func (s stubFetcher) GetText(ctx context.Context, url string) (string, error) {
	return s.text, s.err
}

func TestVerifySkipVerificationReturnsInputUnchanged(t *testing.T) {
	input := "Origin: Ubuntu\nSuite: jammy\n"
	out, err := Verify(context.Background(), stubFetcher{}, aptdistro.NoSignatureCheck(), input)
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestVerifyFailsOnGarbageKey(t *testing.T) {
	_, err := Verify(context.Background(), stubFetcher{text: "not a pgp key"}, aptdistro.ArmoredKey("http://example.com/key.pub"), "signed text")
	assert.Error(t, err)
}

func TestVerifyFailsWhenNoClearsignBlock(t *testing.T) {
	// An empty entity list still fails at the keyring-parse stage before we
	// ever reach clearsign.Decode, but this documents the expected failure
	// path for a document with no embedded signature once a real keyring
	// parses successfully (covered by integration-level fixtures, not unit
	// tests, since valid PGP keys can't be authored inline here).
	_, err := Verify(context.Background(), stubFetcher{text: ""}, aptdistro.ArmoredKey("http://example.com/key.pub"), "no signature here")
	assert.Error(t, err)
}

func TestLoadKeyMaterialReadsLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pub")
	require.NoError(t, os.WriteFile(path, []byte("key-bytes"), 0o644))

	data, err := loadKeyMaterial(context.Background(), stubFetcher{}, path)
	require.NoError(t, err)
	assert.Equal(t, "key-bytes", string(data))
}

func TestLoadKeyMaterialFetchesHTTPLocation(t *testing.T) {
	data, err := loadKeyMaterial(context.Background(), stubFetcher{text: "armored-key-text"}, "http://example.com/key.pub")
	require.NoError(t, err)
	assert.Equal(t, "armored-key-text", string(data))
}

func TestVerifySelfSignaturesRejectsEmptyKeyring(t *testing.T) {
	err := verifySelfSignatures(nil)
	assert.Error(t, err)
}
