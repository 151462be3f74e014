package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password does not match")

// ErrMalformedHash is returned for stored hashes that cannot be parsed.
var ErrMalformedHash = errors.New("cryptox: malformed password hash")

var b64 = base64.RawStdEncoding

// HashPassword returns an argon2id PHC string of the peppered password. The
// cost parameters are fixed; callers cannot tune them.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password+GetPepper()), salt, iterations, memory, parallelism, keyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, memory, iterations, parallelism, b64.EncodeToString(salt), b64.EncodeToString(key),
	), nil
}

// VerifyPassword checks password against a stored hash and returns nil,
// ErrPasswordMismatch, or an error describing a malformed hash.
//
// Argon2id PHC strings produced by HashPassword are the normal case. Accounts
// migrated from the old desktop database still carry bcrypt hashes ($2a$,
// $2b$, $2y$) without a pepper, so those are checked with bcrypt instead.
func VerifyPassword(password, encodedHash string) error {
	if isBcryptHash(encodedHash) {
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}

	h, err := parseArgon2id(encodedHash)
	if err != nil {
		return err
	}

	// #nosec G115 -- digest length comes from our own 32 byte keys
	computed := argon2.IDKey([]byte(password+GetPepper()), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	if subtle.ConstantTimeCompare(computed, h.key) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

type argon2idHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// parseArgon2id splits "$argon2id$v=19$m=M,t=T,p=P$salt$key".
func parseArgon2id(encoded string) (argon2idHash, error) {
	var h argon2idHash

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return h, fmt.Errorf("%w: not an argon2id PHC string", ErrMalformedHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return h, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return h, fmt.Errorf("%w: parameters: %v", ErrMalformedHash, err)
	}

	var err error
	if h.salt, err = b64.DecodeString(parts[4]); err != nil {
		return h, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	if h.key, err = b64.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: digest", ErrMalformedHash)
	}
	return h, nil
}

func isBcryptHash(h string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return false
}
