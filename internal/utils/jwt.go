package utils // package utils provides token, code and label helpers

import (
    "crypto/rand"  // secure random number generation
    "encoding/hex" // hex encoding of random tokens
    "fmt"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken is a signed JWT together with its expiry.  Customers and
// admins send it as a Bearer token; guests never get one and use their
// reservation access token instead.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT.  The claims carry the
// subject (user id), role, exp and iat, which is exactly what the JWT
// middleware reads back.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
    if secret == "" {
        return AccessToken{}, fmt.Errorf("jwt: empty signing secret")
    }
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    claims := jwt.MapClaims{
        "sub":  userID,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// RandomToken returns n bytes of cryptographically secure random data,
// hex encoded (2n characters).
func RandomToken(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
