package store

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/fuzzball-muck/muckcore/value"
)

// legacy SHA1 hashing was the original engine's only password format;
// dumps restored from an original_source/-era database still carry it,
// so login must accept it once and transparently upgrade it to bcrypt
// (spec.md's supplemented password-migration feature).

// HashPassword returns a bcrypt hash suitable for PlayerData.PasswordHash.
func HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func legacySHA1(plain string) string {
	sum := sha1.Sum([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// CheckPassword verifies plain against a player's stored hash. legacy
// reports whether the stored hash was in the pre-bcrypt SHA1 format, so
// the caller can immediately re-hash and persist the upgrade.
func CheckPassword(stored string, legacy bool, plain string) (ok bool) {
	if legacy {
		return subtle.ConstantTimeCompare([]byte(legacySHA1(plain)), []byte(stored)) == 1
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
}

// Authenticate checks plain against id's stored password and, on a
// successful legacy-format login, upgrades the stored hash to bcrypt in
// place (spec.md's supplemented password-migration feature: "next
// successful login re-hashes with bcrypt and clears the legacy flag").
func (t *Table) Authenticate(id value.ObjectID, plain string) (bool, error) {
	o := t.Get(id)
	if o == nil || o.Kind != KindPlayer {
		return false, fmt.Errorf("authenticate: %s is not a player", id)
	}
	if !CheckPassword(o.Player.PasswordHash, o.Player.LegacyHash, plain) {
		return false, nil
	}
	if o.Player.LegacyHash {
		upgraded, err := HashPassword(plain)
		if err != nil {
			return true, fmt.Errorf("authenticate: upgrade hash: %w", err)
		}
		o.Player.PasswordHash = upgraded
		o.Player.LegacyHash = false
		t.MarkDirty(id)
	}
	return true, nil
}
