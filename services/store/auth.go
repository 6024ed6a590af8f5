package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterUserError é retornado quando o cadastro é rejeitado
type RegisterUserError struct {
	Username string
}

func (e *RegisterUserError) Error() string {
	return fmt.Sprintf("username: %s already exists", e.Username)
}

// Is permite a checagem de tipo com errors.Is()
func (e *RegisterUserError) Is(target error) bool {
	_, ok := target.(*RegisterUserError)
	return ok
}

// AccessTokenError é retornado quando as credenciais não conferem.
// A mensagem não revela qual dos dois campos está errado.
type AccessTokenError struct{}

func (e *AccessTokenError) Error() string {
	return "username or password is not correct"
}

// Is permite a checagem de tipo com errors.Is()
func (e *AccessTokenError) Is(target error) bool {
	_, ok := target.(*AccessTokenError)
	return ok
}

// AuthConfig contém a configuração de emissão de tokens de acesso
type AuthConfig struct {
	JWTSecretKey          string
	AccessTokenExpireDays int
}

// AuthConfigFromEnv carrega a configuração do ambiente
func AuthConfigFromEnv() AuthConfig {
	expireDays, err := strconv.Atoi(getEnv("ACCESS_TOKEN_EXPIRE_DAYS", "7"))
	if err != nil {
		expireDays = 7
	}

	return AuthConfig{
		JWTSecretKey:          getEnv("JWT_SECRET_KEY", "700ff87314881a7ea2fa0f7b451280006dbc657ecc2537925dbb947613f5dd22"),
		AccessTokenExpireDays: expireDays,
	}
}

// CreateAccessToken emite um JWT assinado cujo subject é o id do usuário
func (cfg AuthConfig) CreateAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.AccessTokenExpireDays) * 24 * time.Hour)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// DecodeAccessToken valida o token e devolve o id do usuário
func (cfg AuthConfig) DecodeAccessToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecretKey), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to decode access token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", errors.New("access token has no subject")
	}

	return claims.Subject, nil
}

// AuthUseCase contém a lógica de cadastro e autenticação de usuários
type AuthUseCase struct {
	config         AuthConfig
	userRepository UserRepository
	authRepository AuthRecordRepository
	session        RepositorySession
}

// NewAuthUseCase cria uma nova instância de AuthUseCase
func NewAuthUseCase(
	config AuthConfig,
	userRepository UserRepository,
	authRepository AuthRecordRepository,
	session RepositorySession,
) *AuthUseCase {
	return &AuthUseCase{
		config:         config,
		userRepository: userRepository,
		authRepository: authRepository,
		session:        session,
	}
}

// SignUp cadastra um novo usuário com o saldo inicial e devolve seu id
func (uc *AuthUseCase) SignUp(ctx context.Context, username, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	userID := uuid.New().String()
	err = uc.session.Scope(ctx, func(ctx context.Context) error {
		user, err := NewUser(userID, UserInitialBalance)
		if err != nil {
			return err
		}
		if err := uc.userRepository.Save(ctx, user); err != nil {
			return err
		}

		record := AuthRecord{UserID: userID, Username: username, HashedPassword: string(hash)}
		if err := uc.authRepository.Add(ctx, record); err != nil {
			return err
		}

		return uc.session.Commit(ctx)
	})
	if err != nil {
		var exists *EntityAlreadyExistsError
		if errors.As(err, &exists) {
			return "", &RegisterUserError{Username: username}
		}
		return "", err
	}

	log.Printf("✅ User registered: %s", username)
	return userID, nil
}

// IssueToken valida as credenciais e emite um token de acesso
func (uc *AuthUseCase) IssueToken(ctx context.Context, username, password string) (string, error) {
	var record AuthRecord
	err := uc.session.Scope(ctx, func(ctx context.Context) error {
		var err error
		record, err = uc.authRepository.GetByUsername(ctx, username)
		return err
	})
	if err != nil {
		var notFound *EntityNotFoundError
		if errors.As(err, &notFound) {
			return "", &AccessTokenError{}
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(record.HashedPassword), []byte(password)) != nil {
		return "", &AccessTokenError{}
	}

	return uc.config.CreateAccessToken(record.UserID)
}
