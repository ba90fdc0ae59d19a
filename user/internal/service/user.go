package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	inOtel "github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/repository"
	"github.com/Alturino/storefront/user/internal/otel"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

const uniqueViolation = "23505"

type UserService struct {
	queries *repository.Queries
	issuer  *auth.TokenIssuer
}

func NewUserService(queries *repository.Queries, issuer *auth.TokenIssuer) *UserService {
	return &UserService{queries: queries, issuer: issuer}
}

func (s *UserService) Register(c context.Context, param request.Register) (response.User, error) {
	c, span := otel.Tracer.Start(c, "UserService Register")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(param.Email))
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Register").
		Str(log.KeyEmail, email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "hashing password").Logger()
	logger.Trace().Msg("hashing password")
	hashed, err := bcrypt.GenerateFromPassword([]byte(param.Password), bcrypt.DefaultCost)
	if err != nil {
		err = fmt.Errorf("failed hashing password with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Trace().Msg("hashed password")

	logger = logger.With().Str(log.KeyProcess, "inserting user").Logger()
	logger.Info().Msg("inserting user")
	user, err := s.queries.InsertUser(c, repository.InsertUserParams{
		Name:         param.Name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         constants.RoleUser,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = inErrors.Conflict("email=%s is already registered", email)
		} else {
			err = fmt.Errorf("failed inserting user with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Info().Int64(log.KeyUserID, user.ID).Msg("inserted user")

	return response.FromRepository(user), nil
}

func (s *UserService) Login(c context.Context, param request.Login) (response.Login, error) {
	c, span := otel.Tracer.Start(c, "UserService Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(param.Email))
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Login").
		Str(log.KeyEmail, email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding user by email").Logger()
	logger.Info().Msg("finding user by email")
	user, err := s.queries.FindUserByEmail(c, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.ErrInvalidPassword
		} else {
			err = fmt.Errorf("failed finding user by email with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("found user by email")

	logger = logger.With().Str(log.KeyProcess, "verifying password").Logger()
	logger.Trace().Msg("verifying password")
	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(param.Password)); err != nil {
		inOtel.RecordError(inErrors.ErrInvalidPassword, span)
		logger.Error().Err(inErrors.ErrInvalidPassword).Msg(inErrors.ErrInvalidPassword.Error())
		return response.Login{}, inErrors.ErrInvalidPassword
	}
	logger.Trace().Msg("verified password")

	logger = logger.With().Str(log.KeyProcess, "issuing token").Logger()
	token, err := s.issuer.Issue(c, auth.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		err = fmt.Errorf("failed issuing token with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Login{}, err
	}
	logger.Info().Msg("issued token")

	return response.Login{Token: token, User: response.FromRepository(user)}, nil
}

func (s *UserService) FindUserById(c context.Context, id int64) (response.User, error) {
	c, span := otel.Tracer.Start(c, "UserService FindUserById")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService FindUserById").
		Int64(log.KeyUserID, id).
		Str(log.KeyProcess, "finding user by id").
		Logger()

	logger.Info().Msg("finding user by id")
	user, err := s.queries.FindUserById(c, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = inErrors.NotFound("user id=%d not found", id)
		} else {
			err = fmt.Errorf("failed finding user by id with error=%w", err)
		}
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Info().Msg("found user by id")

	return response.FromRepository(user), nil
}
