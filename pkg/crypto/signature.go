/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	appErrors "github.com/almforge/coreforge/internal/errors"
)

// pssOptions fixes the PSS parameters named in the signature contract:
// SHA-256 digest, MGF1(SHA-256), salt length equal to the digest length.
var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA256,
}

// Sign computes the RSA-PSS signature of contentHashHex (a hex-encoded
// SHA-256 digest, typically from CanonicalHash) using privateKeyPEM, and
// returns the signature as lowercase hex. The signature is non-deterministic
// (PSS salts randomly) — two signing calls over the same content with the
// same key produce different signature bytes, both equally valid.
func Sign(contentHashHex, privateKeyPEM string) (string, error) {
	digest, err := hex.DecodeString(contentHashHex)
	if err != nil {
		return "", appErrors.Wrapf(err, appErrors.ErrorTypeCrypto, "content hash is not valid hex")
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}

	sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest, pssOptions)
	if err != nil {
		return "", appErrors.Wrapf(err, appErrors.ErrorTypeCrypto, "signing failed")
	}
	return hex.EncodeToString(sig), nil
}

// Verify reports whether signatureHex is a valid RSA-PSS signature of
// contentHashHex under publicKeyPEM. It never raises: any parse failure,
// key mismatch, or cryptographic verification failure is reported as
// false.
func Verify(contentHashHex, signatureHex, publicKeyPEM string) bool {
	digest, err := hex.DecodeString(contentHashHex)
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}
	key, err := parsePublicKey(publicKeyPEM)
	if err != nil {
		return false
	}
	return rsa.VerifyPSS(key, crypto.SHA256, digest, sig, pssOptions) == nil
}

// GenerateKeyPair creates a new RSA key pair of the given modulus size (in
// bits, e.g. 2048) and returns both halves PEM-encoded. Used by tests and
// by operator tooling (almctl) to provision signing identities.
func GenerateKeyPair(bits int) (privateKeyPEM, publicKeyPEM string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", fmt.Errorf("generate rsa key: %w", err)
	}

	privDER := x509.MarshalPKCS1PrivateKey(key)
	privBlock := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("marshal public key: %w", err)
	}
	pubBlock := &pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}

	return string(pem.EncodeToMemory(privBlock)), string(pem.EncodeToMemory(pubBlock)), nil
}

func parsePrivateKey(pemStr string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, appErrors.NewCryptoError("malformed private key PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrorTypeCrypto, "malformed private key")
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, appErrors.NewCryptoError("private key is not RSA")
	}
	return key, nil
}

func parsePublicKey(pemStr string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, appErrors.NewCryptoError("malformed public key PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, appErrors.Wrapf(err, appErrors.ErrorTypeCrypto, "malformed public key")
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, appErrors.NewCryptoError("public key is not RSA")
	}
	return key, nil
}
