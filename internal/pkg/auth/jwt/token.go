package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	// IdentityExpiration is the lifetime of an identity token.
	IdentityExpiration = 24 * time.Hour

	// TokenIssuer identifies the issuer of the token.
	TokenIssuer = "TeamSync-Server"
)

// Issuer signs identity tokens with a shared HMAC secret.
type Issuer struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

// NewIssuer returns an Issuer signing with secret for tokens valid for duration.
func NewIssuer(secret string, duration time.Duration) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		duration: duration,
		now:      time.Now,
	}
}

// Issue signs a token for the given user.
func (i *Issuer) Issue(userID, name string) (string, error) {
	return GenerateToken(&Payload{ID: userID, Name: name}, i.secret, i.now(), i.duration)
}

// Parse validates tokenString and returns its payload.
func (i *Issuer) Parse(tokenString string) (*Payload, error) {
	return ParseToken(tokenString, i.secret)
}

// GenerateToken signs payload (HS256) with a validity window starting at now.
func GenerateToken(payload *Payload, secretKey []byte, now time.Time, duration time.Duration) (string, error) {
	payload.StandardClaims = jwt.StandardClaims{
		ExpiresAt: now.Add(duration).Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    TokenIssuer,
		Subject:   payload.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)

	return token.SignedString(secretKey)
}

// ParseToken parses and validates tokenString.
func ParseToken(tokenString string, secretKey []byte) (*Payload, error) {
	claims := &Payload{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.ID == "" {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}
