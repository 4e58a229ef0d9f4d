// Package paytoken issues and verifies the short-lived signed token that
// carries a payment wizard's transaction id between requests.
package paytoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "revenue-payments"

// ErrInvalidToken means the token is malformed, tampered with or expired.
var ErrInvalidToken = errors.New("invalid payment token")

// Claims identify one in-progress payment.
type Claims struct {
	PaymentID string `json:"pid"`
	jwt.RegisteredClaims
}

// Signer creates and validates payment tokens with an HMAC secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner creates a Signer. now may be nil to use the wall clock.
func NewSigner(secret string, ttl time.Duration, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue returns a signed token for a payment and its expiry.
func (s *Signer) Issue(paymentID string) (string, time.Time, error) {
	issued := s.now()
	expires := issued.Add(s.ttl)

	claims := Claims{
		PaymentID: paymentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   paymentID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign payment token: %w", err)
	}
	return token, expires, nil
}

// Verify checks the signature and expiry and returns the payment id.
func (s *Signer) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.PaymentID == "" {
		return "", ErrInvalidToken
	}
	return claims.PaymentID, nil
}
