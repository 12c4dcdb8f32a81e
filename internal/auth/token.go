package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultIssuer          = "user-management-api"
	DefaultAudience        = "User Management Portal"
	DefaultTokenExpiration = 432_000_000 * time.Millisecond
	minSecretLength        = 32
)

var signingMethod = jwt.SigningMethodHS512

// AuthorityClaim is the ordered authority list carried in a token. It
// remembers whether the claim was present so a missing claim fails closed.
type AuthorityClaim struct {
	values []string
	set    bool
}

func NewAuthorityClaim(values []string) AuthorityClaim {
	out := make([]string, len(values))
	copy(out, values)
	return AuthorityClaim{values: out, set: true}
}

func (a AuthorityClaim) MarshalJSON() ([]byte, error) {
	if a.values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.values)
}

func (a *AuthorityClaim) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		a.values, a.set = nil, false
		return nil
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("decode %s claim: %w", AuthoritiesClaim, err)
	}
	a.values, a.set = values, true
	return nil
}

type Claims struct {
	Authorities AuthorityClaim `json:"authorities"`
	jwt.RegisteredClaims
}

// VerifiedToken holds claims whose signature and issuer have already been
// checked. It can only be obtained from TokenCodec.Verify.
type VerifiedToken struct {
	claims *Claims
}

func (v *VerifiedToken) Subject() string {
	if v == nil || v.claims == nil {
		return ""
	}
	return v.claims.Subject
}

func (v *VerifiedToken) ExpiresAt() time.Time {
	if v == nil || v.claims == nil || v.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return v.claims.ExpiresAt.Time
}

type TokenCodec struct {
	secret     []byte
	issuer     string
	audience   string
	expiration time.Duration
	parser     *jwt.Parser
	now        func() time.Time
}

type TokenConfig struct {
	Secret     string
	Issuer     string
	Audience   string
	Expiration time.Duration
}

func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}

	codec := &TokenCodec{
		secret:     []byte(secret),
		issuer:     DefaultIssuer,
		audience:   DefaultAudience,
		expiration: DefaultTokenExpiration,
		now:        time.Now,
	}
	if cfg.Issuer != "" {
		codec.issuer = cfg.Issuer
	}
	if cfg.Audience != "" {
		codec.audience = cfg.Audience
	}
	if cfg.Expiration > 0 {
		codec.expiration = cfg.Expiration
	}

	// Time based claims are evaluated by VerifyNotExpired after the
	// signature has been checked.
	codec.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	return codec, nil
}

func (c *TokenCodec) Issue(principal Principal) (string, error) {
	if strings.TrimSpace(principal.Username) == "" {
		return "", errors.New("issue token: username is required")
	}

	now := c.now()
	claims := Claims{
		Authorities: NewAuthorityClaim(principal.Authorities),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			Subject:   principal.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.expiration)),
			ID:        uuid.NewString(),
		},
	}

	encoded, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}

	return encoded, nil
}

// Verify checks the signature, algorithm, structure and issuer of raw.
// Expiry is not evaluated.
func (c *TokenCodec) Verify(raw string) (*VerifiedToken, error) {
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != c.issuer {
		return nil, ErrInvalidToken
	}

	return &VerifiedToken{claims: claims}, nil
}

func (c *TokenCodec) VerifySubject(raw string) (string, error) {
	verified, err := c.Verify(raw)
	if err != nil {
		return "", err
	}
	return verified.Subject(), nil
}

// VerifyNotExpired reports whether a verified token is still inside its
// validity window. A token without an expiry is treated as expired.
func (c *TokenCodec) VerifyNotExpired(verified *VerifiedToken) bool {
	expiresAt := verified.ExpiresAt()
	if expiresAt.IsZero() {
		return false
	}
	return c.now().Before(expiresAt)
}

func (c *TokenCodec) Authorities(verified *VerifiedToken) ([]string, error) {
	if verified == nil || verified.claims == nil || !verified.claims.Authorities.set {
		return nil, ErrInvalidToken
	}

	authorities := make([]string, len(verified.claims.Authorities.values))
	copy(authorities, verified.claims.Authorities.values)
	return authorities, nil
}

// Validate runs the full check the request gate relies on: one signature
// verification, then subject, expiry and authorities.
func (c *TokenCodec) Validate(raw string) (Principal, error) {
	verified, err := c.Verify(raw)
	if err != nil {
		return Principal{}, err
	}

	username := verified.Subject()
	if username == "" {
		return Principal{}, ErrInvalidToken
	}
	if !c.VerifyNotExpired(verified) {
		return Principal{}, ErrTokenExpired
	}

	authorities, err := c.Authorities(verified)
	if err != nil {
		return Principal{}, err
	}

	return Principal{Username: username, Authorities: authorities}, nil
}

var (
	ErrInvalidToken = errors.New("token cannot be verified")
	ErrTokenExpired = errors.New("token has expired")
)
