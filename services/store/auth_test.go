package main

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeAuthRecordRepository struct {
	store *fakeStore
}

func (r *fakeAuthRecordRepository) Add(ctx context.Context, record AuthRecord) error {
	if _, ok := r.store.authRecords[record.Username]; ok {
		return NewEntityAlreadyExistsError("username", record.Username)
	}
	r.store.authRecords[record.Username] = record
	return nil
}

func (r *fakeAuthRecordRepository) GetByUsername(ctx context.Context, username string) (AuthRecord, error) {
	record, ok := r.store.authRecords[username]
	if !ok {
		return AuthRecord{}, NewEntityNotFoundError("username", username)
	}
	return record, nil
}

type authUseCaseFixture struct {
	store   *fakeStore
	session *fakeSession
	useCase *AuthUseCase
}

func newAuthUseCaseFixture() *authUseCaseFixture {
	store := newFakeStore()
	session := &fakeSession{store: store}
	config := AuthConfig{JWTSecretKey: "test-secret", AccessTokenExpireDays: 1}

	return &authUseCaseFixture{
		store:   store,
		session: session,
		useCase: NewAuthUseCase(
			config,
			&fakeUserRepository{store: store},
			&fakeAuthRecordRepository{store: store},
			session,
		),
	}
}

func TestSignUpCreatesUserWithInitialBalance(t *testing.T) {
	f := newAuthUseCaseFixture()

	userID, err := f.useCase.SignUp(context.Background(), "alice", "super-secret")

	require.NoError(t, err)
	require.NotEmpty(t, userID)

	user, ok := f.store.users[userID]
	require.True(t, ok, "user should be persisted")
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(100)))

	record, ok := f.store.authRecords["alice"]
	require.True(t, ok, "auth record should be persisted")
	assert.Equal(t, userID, record.UserID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(record.HashedPassword), []byte("super-secret")))

	assert.Equal(t, 1, f.session.commits)
}

func TestSignUpFailsWhenUsernameAlreadyExists(t *testing.T) {
	f := newAuthUseCaseFixture()

	_, err := f.useCase.SignUp(context.Background(), "alice", "super-secret")
	require.NoError(t, err)

	_, err = f.useCase.SignUp(context.Background(), "alice", "another-secret")

	var registerErr *RegisterUserError
	require.ErrorAs(t, err, &registerErr)
	assert.Equal(t, "alice", registerErr.Username)

	// Only the first sign up left any trace
	assert.Len(t, f.store.users, 1)
	assert.Len(t, f.store.authRecords, 1)
}

func TestIssueTokenReturnsDecodableToken(t *testing.T) {
	f := newAuthUseCaseFixture()

	userID, err := f.useCase.SignUp(context.Background(), "alice", "super-secret")
	require.NoError(t, err)

	token, err := f.useCase.IssueToken(context.Background(), "alice", "super-secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := f.useCase.config.DecodeAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, decoded)
}

func TestIssueTokenFailsWithWrongPassword(t *testing.T) {
	f := newAuthUseCaseFixture()

	_, err := f.useCase.SignUp(context.Background(), "alice", "super-secret")
	require.NoError(t, err)

	_, err = f.useCase.IssueToken(context.Background(), "alice", "wrong-secret")

	assert.ErrorIs(t, err, &AccessTokenError{})
}

func TestIssueTokenFailsForUnknownUsername(t *testing.T) {
	f := newAuthUseCaseFixture()

	_, err := f.useCase.IssueToken(context.Background(), "ghost", "whatever")

	// Unknown username and wrong password are indistinguishable
	assert.ErrorIs(t, err, &AccessTokenError{})
}

func TestDecodeAccessTokenRejectsForeignSignature(t *testing.T) {
	issuer := AuthConfig{JWTSecretKey: "issuer-secret", AccessTokenExpireDays: 1}
	verifier := AuthConfig{JWTSecretKey: "another-secret", AccessTokenExpireDays: 1}

	token, err := issuer.CreateAccessToken("u1")
	require.NoError(t, err)

	_, err = verifier.DecodeAccessToken(token)

	assert.Error(t, err)
}

func TestDecodeAccessTokenRoundTrip(t *testing.T) {
	config := AuthConfig{JWTSecretKey: "test-secret", AccessTokenExpireDays: 7}

	token, err := config.CreateAccessToken("u1")
	require.NoError(t, err)

	userID, err := config.DecodeAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}
