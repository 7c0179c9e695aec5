// Package password hashes and verifies account passwords.
//
// New hashes use scrypt in the "scrypt:<n>:<r>:<p>$salt$hex" layout, which places
// no limit on password length. Verify also accepts pbkdf2 hashes in the same
// layout, written by older deployments of the portal, and bcrypt hashes, so
// existing accounts keep working after an in-place database upgrade.
package password

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// ErrUnsupportedHash is returned for stored hashes in an unknown format.
var ErrUnsupportedHash = errors.New("unsupported password hash format")

// scrypt cost parameters and derived key length for new hashes
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
)

// Hash returns a salted scrypt hash of the plaintext password.
func Hash(plain string) (string, error) {
	salt := rand.Text()
	key, err := scrypt.Key([]byte(plain), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return fmt.Sprintf("scrypt:%d:%d:%d$%s$%s", scryptN, scryptR, scryptP, salt, hex.EncodeToString(key)), nil
}

// Verify reports whether plain matches the stored hash.
func Verify(stored, plain string) (bool, error) {
	switch {
	case strings.HasPrefix(stored, "$2"):
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	case strings.HasPrefix(stored, "pbkdf2:"), strings.HasPrefix(stored, "scrypt:"):
		return verifyLegacy(stored, plain)
	default:
		return false, ErrUnsupportedHash
	}
}

func verifyLegacy(stored, plain string) (bool, error) {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return false, ErrUnsupportedHash
	}
	method, salt, want := parts[0], parts[1], parts[2]

	expected, err := hex.DecodeString(want)
	if err != nil {
		return false, fmt.Errorf("decoding stored hash: %w", err)
	}

	params := strings.Split(method, ":")
	var got []byte
	switch params[0] {
	case "pbkdf2":
		got, err = derivePBKDF2(params[1:], plain, salt)
	case "scrypt":
		got, err = deriveScrypt(params[1:], plain, salt, len(expected))
	default:
		return false, ErrUnsupportedHash
	}
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare(got, expected) == 1, nil
}

// derivePBKDF2 handles pbkdf2:<hash>[:<iterations>].
func derivePBKDF2(params []string, plain, salt string) ([]byte, error) {
	if len(params) == 0 {
		return nil, ErrUnsupportedHash
	}
	var h func() hash.Hash
	switch params[0] {
	case "sha256":
		h = sha256.New
	case "sha512":
		h = sha512.New
	case "sha1":
		h = sha1.New
	default:
		return nil, fmt.Errorf("%w: pbkdf2 digest %q", ErrUnsupportedHash, params[0])
	}

	iterations := 260000
	if len(params) > 1 {
		n, err := strconv.Atoi(params[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: pbkdf2 iterations %q", ErrUnsupportedHash, params[1])
		}
		iterations = n
	}

	return pbkdf2.Key([]byte(plain), []byte(salt), iterations, h().Size(), h), nil
}

// deriveScrypt handles scrypt:<n>:<r>:<p>.
func deriveScrypt(params []string, plain, salt string, keyLen int) ([]byte, error) {
	n, r, p := 32768, 8, 1
	values := []*int{&n, &r, &p}
	for i, raw := range params {
		if i >= len(values) {
			break
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("%w: scrypt parameter %q", ErrUnsupportedHash, raw)
		}
		*values[i] = v
	}

	key, err := scrypt.Key([]byte(plain), []byte(salt), n, r, p, keyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving scrypt key: %w", err)
	}
	return key, nil
}
