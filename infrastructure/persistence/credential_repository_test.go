package persistence

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/utils"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// sealedArg matches a token that was encrypted before reaching the database.
type sealedArg struct{}

func (sealedArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, "enc:v1:")
}

var connectionRowColumns = []string{"id", "user_id", "platform", "status", "instance_url", "last_error", "connected_at", "updated_at",
	"access_token", "refresh_token", "token_type", "scopes", "expires_at", "account_handle", "display_name", "profile_image_url", "platform_account_id", "updated_at"}

func TestCredentialRepository_SaveConnection_ReusesExistingID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cipher, err := utils.NewTokenCipher(testKey)
	require.NoError(t, err)
	repository := NewCredentialRepository(db, cipher)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO oauth_connections`).
		WithArgs(sqlmock.AnyArg(), "user-1", "x", "connected", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("conn-existing"))
	mock.ExpectExec(`INSERT INTO oauth_tokens`).
		WithArgs("conn-existing", sealedArg{}, sealedArg{}, "bearer", "tweet.write", sqlmock.AnyArg(), "alice", nil, nil, "42", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	token := &model.Token{AccessToken: "access-secret", RefreshToken: "refresh-secret", TokenType: "bearer", Scopes: "tweet.write", AccountHandle: "alice", PlatformAccountID: "42"}
	conn, err := repository.SaveConnection(context.Background(), &model.Connection{UserID: "user-1", Platform: model.PlatformX, Status: model.ConnectionConnected}, token)

	require.NoError(t, err)
	require.Equal(t, "conn-existing", conn.ID)
	require.Equal(t, "conn-existing", token.ConnectionID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_SaveConnection_RollsBackOnTokenFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewCredentialRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO oauth_connections`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("conn-1"))
	mock.ExpectExec(`INSERT INTO oauth_tokens`).WillReturnError(driver.ErrBadConn)
	mock.ExpectRollback()

	_, err = repository.SaveConnection(context.Background(), &model.Connection{UserID: "u", Platform: model.PlatformMastodon}, &model.Token{AccessToken: "a"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_GetConnection_DecryptsTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cipher, err := utils.NewTokenCipher(testKey)
	require.NoError(t, err)
	sealed, err := cipher.Encrypt("access-secret")
	require.NoError(t, err)

	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expires := now.Add(time.Hour)
	mock.ExpectQuery(`FROM oauth_connections c JOIN oauth_tokens t`).
		WithArgs("user-1", "mastodon").
		WillReturnRows(sqlmock.NewRows(connectionRowColumns).AddRow(
			"conn-1", "user-1", "mastodon", "connected", "https://mastodon.social", nil, now, now,
			sealed, "legacy-refresh", "Bearer", "read write", expires, "alice", "Alice", nil, "99", now))

	repository := NewCredentialRepository(db, cipher)
	cw, err := repository.GetConnection(context.Background(), "user-1", model.PlatformMastodon)

	require.NoError(t, err)
	require.Equal(t, "access-secret", cw.Token.AccessToken)
	require.Equal(t, "legacy-refresh", cw.Token.RefreshToken)
	require.Equal(t, "https://mastodon.social", cw.Connection.InstanceURL)
	require.Equal(t, expires, *cw.Token.ExpiresAt)
	require.Nil(t, cw.Connection.LastError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_GetConnection_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM oauth_connections`).WillReturnRows(sqlmock.NewRows(connectionRowColumns))

	_, err = NewCredentialRepository(db, nil).GetConnection(context.Background(), "user-1", model.PlatformX)
	require.ErrorIs(t, err, model.ErrConnectionNotFound)
}

func TestCredentialRepository_ReplaceToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE oauth_tokens SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE oauth_connections SET status`).
		WithArgs("conn-1", "connected", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = NewCredentialRepository(db, nil).ReplaceToken(context.Background(), &model.Token{ConnectionID: "conn-1", AccessToken: "new"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository_MarkConnectionError_Missing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE oauth_connections SET status`).
		WithArgs("missing", "error", "refresh failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewCredentialRepository(db, nil).MarkConnectionError(context.Background(), "missing", "refresh failed")
	require.ErrorIs(t, err, model.ErrConnectionNotFound)
}
