package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"marketplace/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashToken(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashToken(""))
	assert.Len(t, HashToken(uuid.NewString()), 64)
	assert.NotEqual(t, HashToken("a"), HashToken("b"))
}

func TestRefreshTokenRepository_StoresOnlyTheDigest(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	token := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Token:     "raw-token-value",
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(token.ID, token.UserID, HashToken("raw-token-value"), token.ExpiresAt, token.CreatedAt, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), token))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_FindByToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	id, userID := uuid.New(), uuid.New()
	expires := time.Now().Add(time.Hour)
	columns := []string{"id", "user_id", "expires_at", "created_at", "revoked"}

	mock.ExpectQuery(`SELECT id, user_id, expires_at, created_at, revoked FROM refresh_tokens WHERE token_hash = \$1`).
		WithArgs(HashToken("live")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(id.String(), userID.String(), expires, time.Now(), false))
	mock.ExpectQuery(`FROM refresh_tokens`).
		WithArgs(HashToken("revoked")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(uuid.NewString(), userID.String(), expires, time.Now(), true))
	mock.ExpectQuery(`FROM refresh_tokens`).
		WithArgs(HashToken("missing")).
		WillReturnError(sql.ErrNoRows)

	found, err := repo.FindByToken(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, userID, found.UserID)
	assert.Equal(t, "live", found.Token)

	_, err = repo.FindByToken(context.Background(), "revoked")
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	_, err = repo.FindByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeUnknownToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = \$1`).
		WithArgs(HashToken("gone")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Revoke(context.Background(), "gone"), ErrRefreshTokenNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)
	cutoff := time.Now()

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE expires_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
