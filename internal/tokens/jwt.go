// Package tokens issues and verifies the signed access/refresh token pair.
package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("token is invalid or expired")
	ErrWrongType    = errors.New("token has wrong type")
)

// Claims carries the registered claims plus the account fields downstream
// features read without touching the store.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string  `json:"token_type"`
	Email     string  `json:"email,omitempty"`
	Birthdate *string `json:"birthdate"`
}

// AccountID returns the subject as a numeric account id.
func (c *Claims) AccountID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("subject %q: %w", c.Subject, ErrInvalidToken)
	}
	return uint(id), nil
}

// Subject is the account data embedded in issued tokens.
type Subject struct {
	AccountID uint
	Email     string
	Birthdate *time.Time
}

type Pair struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair signs a fresh refresh token and an access token for s.
func (i *Issuer) IssuePair(s Subject) (Pair, error) {
	refresh, err := i.sign(TypeRefresh, i.refreshTTL, s.AccountID, "", nil)
	if err != nil {
		return Pair{}, err
	}
	access, err := i.IssueAccess(s)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Refresh: refresh, Access: access}, nil
}

// IssueAccess signs an access token carrying the email and birthdate claims.
func (i *Issuer) IssueAccess(s Subject) (string, error) {
	var birthdate *string
	if s.Birthdate != nil {
		iso := s.Birthdate.Format(time.DateOnly)
		birthdate = &iso
	}
	return i.sign(TypeAccess, i.accessTTL, s.AccountID, s.Email, birthdate)
}

func (i *Issuer) sign(tokenType string, ttl time.Duration, accountID uint, email string, birthdate *string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(accountID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		TokenType: tokenType,
		Email:     email,
		Birthdate: birthdate,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Parse verifies signature and expiry. It does not check the token type.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAs parses tokenString and requires the given token type.
func (i *Issuer) ParseAs(tokenString, tokenType string) (*Claims, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongType
	}
	return claims, nil
}
