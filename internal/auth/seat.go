package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid seat token")
	ErrWrongMatch   = errors.New("seat token is for another match")
)

// SeatClaims binds a bearer to one seat of one match.
type SeatClaims struct {
	MatchToken string `json:"match"`
	Seat       int    `json:"seat"`
	Name       string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IssueSeatToken signs an HS256 token for a seat.
func IssueSeatToken(secret, matchToken string, seat int, name string, ttl time.Duration) (string, error) {
	if seat != 1 && seat != 2 {
		return "", fmt.Errorf("invalid seat %d", seat)
	}
	now := time.Now()
	claims := SeatClaims{
		MatchToken: matchToken,
		Seat:       seat,
		Name:       name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   fmt.Sprintf("%s:%d", matchToken, seat),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign seat token: %w", err)
	}
	return signed, nil
}

// ParseSeatToken verifies a seat token and returns its claims.
func ParseSeatToken(secret, tokenString string) (*SeatClaims, error) {
	claims := &SeatClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Seat != 1 && claims.Seat != 2 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseSeatTokenFor verifies a seat token and checks it belongs to matchToken.
func ParseSeatTokenFor(secret, tokenString, matchToken string) (*SeatClaims, error) {
	claims, err := ParseSeatToken(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.MatchToken != matchToken {
		return nil, ErrWrongMatch
	}
	return claims, nil
}
