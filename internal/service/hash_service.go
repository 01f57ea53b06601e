package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	hashTime    uint32 = 1
	hashMemory  uint32 = 64 * 1024 // KiB
	hashThreads uint8  = 4
	hashKeyLen  uint32 = 32
	hashSaltLen        = 16
)

// Argon2HashService implements ports.HashService with Argon2id. The
// cost parameters are encoded into every hash, so they can be raised
// later without invalidating stored credentials.
type Argon2HashService struct{}

func NewArgon2HashService() *Argon2HashService {
	return &Argon2HashService{}
}

// Hash derives an Argon2id hash and encodes it in the standard
// $argon2id$v=..$m=..,t=..,p=..$salt$key form.
func (s *Argon2HashService) Hash(password string) (string, error) {
	salt := make([]byte, hashSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, hashTime, hashMemory, hashThreads, hashKeyLen)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, hashMemory, hashTime, hashThreads,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify re-derives the key with the parameters stored in the hash and
// compares in constant time.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	salt, key, memory, time, threads, err := parseArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	derived := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, derived) == 1, nil
}

func parseArgon2Hash(encoded string) (salt, key []byte, memory, time uint32, threads uint8, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed hash: %d segments", len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("unsupported algorithm %q", parts[1])
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("parsing version: %w", err)
	}
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("parsing cost parameters: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("decoding salt: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("decoding key: %w", err)
	}
	return salt, key, memory, time, threads, nil
}
