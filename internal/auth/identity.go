// Package auth establishes the caller identity the store requires before any
// operation is sent.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const tokenIssuer = "table-status-backend"

var (
	// ErrInvalidToken is returned when a custom token cannot be verified.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrAlreadySignedIn is returned when identity was already established.
	ErrAlreadySignedIn = errors.New("identity already established")
)

// Identity is the established caller.
type Identity struct {
	UID       string
	Anonymous bool
}

// Provider holds the process identity. It is established once.
type Provider struct {
	mu       sync.RWMutex
	identity *Identity
	ready    chan struct{}
}

// NewProvider returns a Provider with no identity yet.
func NewProvider() *Provider {
	return &Provider{ready: make(chan struct{})}
}

// SignIn verifies customToken when one is given, otherwise signs in
// anonymously.
func (p *Provider) SignIn(customToken, secret string) (Identity, error) {
	var (
		id  Identity
		err error
	)
	if customToken != "" {
		id, err = verify(customToken, secret)
		if err != nil {
			return Identity{}, err
		}
	} else {
		id = Identity{UID: "anon-" + uuid.NewString(), Anonymous: true}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.identity != nil {
		return *p.identity, ErrAlreadySignedIn
	}
	p.identity = &id
	close(p.ready)

	log.WithFields(log.Fields{"uid": id.UID, "anonymous": id.Anonymous}).Info("identity established")
	return id, nil
}

// Current returns the identity and whether it has been established.
func (p *Provider) Current() (Identity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.identity == nil {
		return Identity{}, false
	}
	return *p.identity, true
}

// Ready is closed once identity is established.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// IssueToken signs a custom token for uid, valid for ttl.
func IssueToken(uid, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("token secret is empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verify(tokenString, secret string) (Identity, error) {
	if secret == "" {
		return Identity{}, fmt.Errorf("%w: no token secret configured", ErrInvalidToken)
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return Identity{UID: claims.Subject}, nil
}
