// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/go-a2a/a2a-engine"
)

// SignatureHeader carries the JWT that authenticates a notification body.
const SignatureHeader = "X-A2A-Notification-Token"

// bodyHashClaim holds the hex SHA-256 of the notification body.
const bodyHashClaim = "request_body_sha256"

// JWTSigner signs notification bodies with an ES256 key whose public half is published
// as a JWK set.
type JWTSigner struct {
	issuer  string
	private jwk.Key
	public  jwk.Key
	ttl     time.Duration
	now     func() time.Time
}

// NewJWTSigner generates a fresh P-256 signing key.
func NewJWTSigner(issuer string) (*JWTSigner, error) {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	private, err := jwk.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}
	kid := a2a.NewID()
	if err := private.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	if err := private.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, err
	}

	public, err := jwk.PublicKeyOf(private)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	if err := public.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	if err := public.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
		return nil, err
	}
	if err := public.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}

	return &JWTSigner{
		issuer:  issuer,
		private: private,
		public:  public,
		ttl:     5 * time.Minute,
		now:     time.Now,
	}, nil
}

// Sign returns a compact JWT binding body to this signer.
func (s *JWTSigner) Sign(body []byte) (string, error) {
	sum := sha256.Sum256(body)
	now := s.now()
	tok, err := jwt.NewBuilder().
		Issuer(s.issuer).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Claim(bodyHashClaim, hex.EncodeToString(sum[:])).
		Build()
	if err != nil {
		return "", fmt.Errorf("build notification token: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), s.private))
	if err != nil {
		return "", fmt.Errorf("sign notification token: %w", err)
	}
	return string(signed), nil
}

// PublicKey returns the verification key.
func (s *JWTSigner) PublicKey() jwk.Key {
	return s.public
}

// JWKS returns the public key as a JWK set.
func (s *JWTSigner) JWKS() (jwk.Set, error) {
	set := jwk.NewSet()
	if err := set.AddKey(s.public); err != nil {
		return nil, err
	}
	return set, nil
}

// VerifyNotification checks that token was issued by the holder of key for body.
func VerifyNotification(token string, body []byte, key jwk.Key) error {
	tok, err := jwt.Parse([]byte(token), jwt.WithKey(jwa.ES256(), key), jwt.WithValidate(true))
	if err != nil {
		return fmt.Errorf("verify notification token: %w", err)
	}
	var got string
	if err := tok.Get(bodyHashClaim, &got); err != nil {
		return fmt.Errorf("notification token lacks %s: %w", bodyHashClaim, err)
	}
	sum := sha256.Sum256(body)
	if got != hex.EncodeToString(sum[:]) {
		return errors.New("notification body does not match its token")
	}
	return nil
}
