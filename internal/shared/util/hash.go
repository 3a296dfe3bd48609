package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"time"
)

// HashUserKey returns a filesystem-safe identifier for a user ID, so guest
// and account IDs never appear in storage keys.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// UploadKey builds the slash-separated key an upload is stored under:
// <hashed owner>/<random id>_<sanitized name>.
func UploadKey(ownerID, fileName string) (string, error) {
	name, err := SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(HashUserKey(ownerID), RandomID()+"_"+name), nil
}

// RandomID returns 32 hex characters, falling back to the clock if the
// system random source fails.
func RandomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
