package repository

import (
	"context"

	"social-publisher/domain/model"
)

// ICredential persists connections and their tokens.
type ICredential interface {
	// SaveConnection upserts the connection by (user, platform) and its token
	// by connection id in one transaction.
	SaveConnection(ctx context.Context, conn *model.Connection, token *model.Token) (*model.Connection, error)
	GetConnection(ctx context.Context, userID string, platform model.Platform) (*model.ConnectionWithToken, error)
	GetConnectionByID(ctx context.Context, connectionID string) (*model.ConnectionWithToken, error)
	ListConnections(ctx context.Context, userID string) ([]model.ConnectionWithToken, error)
	// ReplaceToken overwrites the token and marks the connection connected.
	ReplaceToken(ctx context.Context, token *model.Token) error
	MarkConnectionError(ctx context.Context, connectionID string, reason string) error
}
