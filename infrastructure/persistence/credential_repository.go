package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/utils"

	"github.com/google/uuid"
)

const connectionSelect = `SELECT c.id, c.user_id, c.platform, c.status, c.instance_url, c.last_error, c.connected_at, c.updated_at,
	t.access_token, t.refresh_token, t.token_type, t.scopes, t.expires_at, t.account_handle, t.display_name, t.profile_image_url, t.platform_account_id, t.updated_at
	FROM oauth_connections c JOIN oauth_tokens t ON t.connection_id = c.id`

// CredentialRepository stores connections and their tokens in Postgres.
// Token secrets are sealed by cipher when one is configured.
type CredentialRepository struct {
	db     *sql.DB
	cipher *utils.TokenCipher
}

var _ repository.ICredential = (*CredentialRepository)(nil)

func NewCredentialRepository(db *sql.DB, cipher *utils.TokenCipher) *CredentialRepository {
	return &CredentialRepository{db: db, cipher: cipher}
}

func (r *CredentialRepository) SaveConnection(ctx context.Context, conn *model.Connection, token *model.Token) (out *model.Connection, err error) {
	now := time.Now().UTC()
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = now
	}
	conn.UpdatedAt = now

	access, refresh, err := r.seal(token)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO oauth_connections (id, user_id, platform, status, instance_url, last_error, connected_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NULL,$6,$7)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			status=EXCLUDED.status,
			instance_url=EXCLUDED.instance_url,
			last_error=NULL,
			connected_at=EXCLUDED.connected_at,
			updated_at=EXCLUDED.updated_at
		RETURNING id`
	var id string
	if err = tx.QueryRowContext(ctx, q, conn.ID, conn.UserID, string(conn.Platform), string(conn.Status),
		nullString(conn.InstanceURL), conn.ConnectedAt, conn.UpdatedAt).Scan(&id); err != nil {
		return nil, err
	}
	conn.ID = id
	conn.LastError = nil
	token.ConnectionID = id
	token.UpdatedAt = now

	tq := `INSERT INTO oauth_tokens (connection_id, access_token, refresh_token, token_type, scopes, expires_at, account_handle, display_name, profile_image_url, platform_account_id, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (connection_id) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			token_type=EXCLUDED.token_type,
			scopes=EXCLUDED.scopes,
			expires_at=EXCLUDED.expires_at,
			account_handle=EXCLUDED.account_handle,
			display_name=EXCLUDED.display_name,
			profile_image_url=EXCLUDED.profile_image_url,
			platform_account_id=EXCLUDED.platform_account_id,
			updated_at=EXCLUDED.updated_at`
	if _, err = tx.ExecContext(ctx, tq, id, access, nullString(refresh), nullString(token.TokenType), nullString(token.Scopes),
		nullTimePtr(token.ExpiresAt), token.AccountHandle, nullString(token.DisplayName), nullString(token.ProfileImageURL),
		token.PlatformAccountID, token.UpdatedAt); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *CredentialRepository) GetConnection(ctx context.Context, userID string, platform model.Platform) (*model.ConnectionWithToken, error) {
	row := r.db.QueryRowContext(ctx, connectionSelect+` WHERE c.user_id=$1 AND c.platform=$2`, userID, string(platform))
	return r.scanConnection(row)
}

func (r *CredentialRepository) GetConnectionByID(ctx context.Context, connectionID string) (*model.ConnectionWithToken, error) {
	row := r.db.QueryRowContext(ctx, connectionSelect+` WHERE c.id=$1`, connectionID)
	return r.scanConnection(row)
}

func (r *CredentialRepository) ListConnections(ctx context.Context, userID string) ([]model.ConnectionWithToken, error) {
	rows, err := r.db.QueryContext(ctx, connectionSelect+` WHERE c.user_id=$1 ORDER BY c.platform`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.ConnectionWithToken{}
	for rows.Next() {
		cw, err := r.scanConnection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *cw)
	}
	return list, rows.Err()
}

func (r *CredentialRepository) ReplaceToken(ctx context.Context, token *model.Token) (err error) {
	access, refresh, err := r.seal(token)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	token.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE oauth_tokens SET access_token=$2, refresh_token=$3, token_type=$4, scopes=$5, expires_at=$6, updated_at=$7 WHERE connection_id=$1`,
		token.ConnectionID, access, nullString(refresh), nullString(token.TokenType), nullString(token.Scopes), nullTimePtr(token.ExpiresAt), now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = model.ErrConnectionNotFound
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE oauth_connections SET status=$2, last_error=NULL, updated_at=$3 WHERE id=$1`,
		token.ConnectionID, string(model.ConnectionConnected), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CredentialRepository) MarkConnectionError(ctx context.Context, connectionID string, reason string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE oauth_connections SET status=$2, last_error=$3, updated_at=$4 WHERE id=$1`,
		connectionID, string(model.ConnectionError), reason, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrConnectionNotFound
	}
	return nil
}

func (r *CredentialRepository) seal(token *model.Token) (access, refresh string, err error) {
	if access, err = r.cipher.Encrypt(token.AccessToken); err != nil {
		return "", "", fmt.Errorf("seal access token: %w", err)
	}
	if token.RefreshToken != "" {
		if refresh, err = r.cipher.Encrypt(token.RefreshToken); err != nil {
			return "", "", fmt.Errorf("seal refresh token: %w", err)
		}
	}
	return access, refresh, nil
}

func (r *CredentialRepository) scanConnection(row rowScanner) (*model.ConnectionWithToken, error) {
	var (
		cw                                                  model.ConnectionWithToken
		platform, status                                    string
		instanceURL, lastError                              sql.NullString
		refresh, tokenType, scopes, displayName, profileURL sql.NullString
		expiresAt                                           sql.NullTime
	)
	c := &cw.Connection
	t := &cw.Token
	err := row.Scan(&c.ID, &c.UserID, &platform, &status, &instanceURL, &lastError, &c.ConnectedAt, &c.UpdatedAt,
		&t.AccessToken, &refresh, &tokenType, &scopes, &expiresAt, &t.AccountHandle, &displayName, &profileURL, &t.PlatformAccountID, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrConnectionNotFound
		}
		return nil, err
	}
	c.Platform = model.Platform(platform)
	c.Status = model.ConnectionStatus(status)
	c.InstanceURL = instanceURL.String
	c.LastError = stringPtr(lastError)
	t.ConnectionID = c.ID
	t.TokenType = tokenType.String
	t.Scopes = scopes.String
	t.ExpiresAt = timePtr(expiresAt)
	t.DisplayName = displayName.String
	t.ProfileImageURL = profileURL.String

	if t.AccessToken, err = r.cipher.Decrypt(t.AccessToken); err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	if refresh.Valid {
		if t.RefreshToken, err = r.cipher.Decrypt(refresh.String); err != nil {
			return nil, fmt.Errorf("open refresh token: %w", err)
		}
	}
	return &cw, nil
}
