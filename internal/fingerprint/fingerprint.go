// Package fingerprint computes and verifies sha256 content digests of
// template artifacts. A digest pins an export to the exact artifact bytes
// that were authored; any drift is a hard failure.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prefix identifies the digest algorithm in the serialized form.
const Prefix = "sha256:"

// Digest is a serialized content hash, "sha256:<hex>".
type Digest string

// Valid reports whether the digest has the expected shape.
func (d Digest) Valid() bool {
	s := string(d)
	if !strings.HasPrefix(s, Prefix) {
		return false
	}
	hexPart := strings.TrimPrefix(s, Prefix)
	if len(hexPart) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

func (d Digest) String() string { return string(d) }

// Bytes computes the digest of an in-memory buffer.
func Bytes(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest(Prefix + hex.EncodeToString(sum[:]))
}

// File computes the digest of a file, streaming its contents rather than
// buffering the whole artifact.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening artifact: %w", err)
	}
	defer func() {
		_ = f.Close() // Best-effort cleanup
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing artifact %s: %w", path, err)
	}
	return Digest(Prefix + hex.EncodeToString(h.Sum(nil))), nil
}

// MismatchError indicates an artifact's content no longer matches the
// digest recorded at authoring time. It is always fatal, never downgraded.
type MismatchError struct {
	Path     string
	Expected Digest
	Actual   Digest
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf(
		"integrity check failed for %s: expected %s, got %s",
		e.Path, e.Expected, e.Actual,
	)
}

// Verify recomputes the file's digest and compares it to expected.
// Returns a *MismatchError on drift.
func Verify(path string, expected Digest) error {
	actual, err := File(path)
	if err != nil {
		return err
	}
	if actual != expected {
		return &MismatchError{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}
