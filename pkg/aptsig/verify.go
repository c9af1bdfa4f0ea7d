// Package aptsig verifies cleartext-signed release documents, turning a
// signed InRelease into its signed text payload using an OpenPGP public key
// loaded per the owning Distro's KeyPolicy. Detached signatures (a Release
// plus Release.gpg pair) are not handled.
package aptsig

import (
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"

	"github.com/nicwaller/apt-look/pkg/apterrors"
	"github.com/nicwaller/apt-look/pkg/aptdistro"
)

// textGetter is the slice of Fetcher used here: load key/document text by
// URL. Satisfied by *apttransport.Fetcher; kept as an interface so this
// package doesn't import apttransport (which would create an import
// cycle once apttransport starts depending on aptsig for key handling).
type textGetter interface {
	GetText(ctx context.Context, url string) (string, error)
}

// Verify applies policy to signed, a cleartext-signed document (or plain
// text, for SkipVerification), returning the signed text payload with the
// PGP framing removed.
func Verify(ctx context.Context, fetcher textGetter, policy aptdistro.KeyPolicy, signed string) (string, error) {
	if policy.Kind == aptdistro.KeySkipVerification {
		return signed, nil
	}

	keyBytes, err := loadKeyMaterial(ctx, fetcher, policy.Location)
	if err != nil {
		return "", apterrors.Wrap(apterrors.Signature, "loading key "+policy.Location, err)
	}

	var keyring openpgp.EntityList
	switch policy.Kind {
	case aptdistro.KeyArmored:
		keyring, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(keyBytes))
	case aptdistro.KeyBinary:
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(keyBytes))
	default:
		return "", apterrors.New(apterrors.CallerMisuse, "unknown key policy kind "+string(policy.Kind))
	}
	if err != nil {
		return "", apterrors.Wrap(apterrors.Signature, "parsing key "+policy.Location, err)
	}
	if err := verifySelfSignatures(keyring); err != nil {
		return "", apterrors.Wrap(apterrors.Signature, "key self-verification failed for "+policy.Location, err)
	}

	block, _ := clearsign.Decode([]byte(signed))
	if block == nil {
		return "", apterrors.New(apterrors.Signature, "no cleartext signature found in document")
	}

	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(block.Bytes), block.ArmoredSignature.Body, nil); err != nil {
		return "", apterrors.Wrap(apterrors.Signature, "cleartext signature verification failed", err)
	}

	return string(block.Plaintext), nil
}

// verifySelfSignatures requires at least one entity in keyring to carry at
// least one identity whose self-signature was accepted during parsing (the
// go-crypto reader discards identities whose self-signature doesn't
// verify, so a present identity is already a verified one).
func verifySelfSignatures(keyring openpgp.EntityList) error {
	for _, entity := range keyring {
		if len(entity.Identities) > 0 {
			return nil
		}
	}
	return apterrors.New(apterrors.Signature, "no entity in keyring has a verified identity")
}

// loadKeyMaterial fetches location over HTTP(S) when it looks like a URL,
// otherwise reads it as a local filesystem path.
func loadKeyMaterial(ctx context.Context, fetcher textGetter, location string) ([]byte, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		text, err := fetcher.GetText(ctx, location)
		if err != nil {
			return nil, err
		}
		return []byte(text), nil
	}
	return os.ReadFile(location)
}
