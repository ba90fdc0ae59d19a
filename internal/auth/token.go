package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID int64
	Email  string
	Role   string
}

func (i Identity) IsAdmin() bool { return i.Role == constants.RoleAdmin }

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(c context.Context, identity Identity) (string, error) {
	c, span := otel.Tracer.Start(c, "TokenIssuer Issue")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "TokenIssuer Issue").
		Int64(log.KeyUserID, identity.UserID).
		Str(log.KeyProcess, "signing token").
		Logger()

	now := t.now()
	logger.Trace().Msg("signing token")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.AppUserService,
			Subject:   strconv.FormatInt(identity.UserID, 10),
			Audience:  jwt.ClaimStrings{constants.AudienceUser},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		Email: identity.Email,
		Role:  identity.Role,
	}).SignedString(t.secret)
	if err != nil {
		err = fmt.Errorf("failed signing token with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	logger.Trace().Msg("signed token")

	return token, nil
}

func (t *TokenIssuer) Verify(c context.Context, token string) (Identity, error) {
	c, span := otel.Tracer.Start(c, "TokenIssuer Verify")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "TokenIssuer Verify").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "parsing claims").Logger()
	logger.Trace().Msg("parsing claims")
	claims := Claims{}
	jwtToken, err := jwt.ParseWithClaims(token,
		&claims,
		func(*jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithAudience(constants.AudienceUser),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.AppUserService),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		err = inErrors.Wrap(inErrors.KindAuthentication, err, inErrors.ErrTokenInvalid.Message)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Identity{}, err
	}
	if !jwtToken.Valid {
		otel.RecordError(inErrors.ErrTokenInvalid, span)
		logger.Error().Err(inErrors.ErrTokenInvalid).Msg(inErrors.ErrTokenInvalid.Error())
		return Identity{}, inErrors.ErrTokenInvalid
	}
	logger.Trace().Msg("parsed claims")

	logger = logger.With().Str(log.KeyProcess, "parsing subject").Logger()
	logger.Trace().Msg("parsing subject")
	if claims.Subject == "" {
		otel.RecordError(inErrors.ErrEmptySubject, span)
		logger.Error().Err(inErrors.ErrEmptySubject).Msg(inErrors.ErrEmptySubject.Error())
		return Identity{}, inErrors.ErrEmptySubject
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		err = inErrors.Wrap(inErrors.KindAuthentication, err, "invalid subject=%s", claims.Subject)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Identity{}, err
	}
	logger.Trace().Int64(log.KeyUserID, userID).Msg("parsed subject")

	return Identity{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}

type identityKey struct{}

func AttachIdentity(c context.Context, identity Identity) context.Context {
	return context.WithValue(c, identityKey{}, identity)
}

func IdentityFromContext(c context.Context) (Identity, bool) {
	identity, ok := c.Value(identityKey{}).(Identity)
	return identity, ok
}

// MustIdentity is used by handlers mounted behind the auth middleware.
func MustIdentity(c context.Context) (Identity, error) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return Identity{}, inErrors.ErrUnauthenticated
	}
	return identity, nil
}
