package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/rand" // secure random number generation for confirmation codes
	"fmt"         // formatting the zero-padded code
	"math/big"    // bounded random integers
	"time"        // time utilities for generating expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  The token is presented as a Bearer value in
// the Authorization header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  It takes the
// signing secret, the user ID, whether the user is an admin, and a TTL in
// minutes.  The JWT carries the standard sub/exp/iat claims plus a custom
// "adm" boolean used by the admin middleware.
func NewAccessToken(secret string, userID uint64, isAdmin bool, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub": userID,
		"adm": isAdmin,
		"exp": exp.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ConfirmationTTL is how long an emailed confirmation code stays valid.
const ConfirmationTTL = 10 * time.Minute

// NewConfirmationCode returns a cryptographically random 6-digit code and
// its expiry.  The code proves email ownership during registration and is
// consumed exactly once.
func NewConfirmationCode() (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", time.Time{}, err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	return code, time.Now().UTC().Add(ConfirmationTTL), nil
}
