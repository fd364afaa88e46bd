// Package codegen produces the short random strings that identify
// submissions and users and protect the grading endpoint.
package codegen

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	// EditCodeAlphabet is the set edit codes are drawn from
	EditCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// EditCodeLength is the number of characters in an edit code
	EditCodeLength = 6
)

var alphabetSize = big.NewInt(int64(len(EditCodeAlphabet)))

// GenerateEditCode returns EditCodeLength characters drawn uniformly, with
// replacement, from EditCodeAlphabet. No collision check is made.
func GenerateEditCode() (string, error) {
	result := make([]byte, EditCodeLength)
	for i := range result {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate edit code: %w", err)
		}
		result[i] = EditCodeAlphabet[n.Int64()]
	}
	return string(result), nil
}

// GenerateID returns an opaque identifier made of two base-36 fragments
// taken from the halves of a random UUID.
func GenerateID() string {
	id := uuid.New()
	hi := binary.BigEndian.Uint64(id[:8])
	lo := binary.BigEndian.Uint64(id[8:])
	return strconv.FormatUint(hi, 36) + strconv.FormatUint(lo, 36)
}

// GenerateUserID returns user_<unix millis>_<base36 fragment>
func GenerateUserID(now time.Time) string {
	id := uuid.New()
	frag := strconv.FormatUint(binary.BigEndian.Uint64(id[8:]), 36)
	if len(frag) > 9 {
		frag = frag[:9]
	}
	return fmt.Sprintf("user_%d_%s", now.UnixMilli(), frag)
}

// IsEditCode reports whether s has the shape of an edit code
func IsEditCode(s string) bool {
	if len(s) != EditCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
