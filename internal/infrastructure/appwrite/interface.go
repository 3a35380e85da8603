package appwrite

import (
	"context"
)

// ClientInterface defines the methods required from the identity/document service client
type ClientInterface interface {
	CreateAccount(ctx context.Context, userID, email, password, name string) (*Account, error)
	CreateEmailSession(ctx context.Context, email, password string) (*Session, error)
	GetAccount(ctx context.Context, sessionSecret string) (*Account, error)
	DeleteSession(ctx context.Context, sessionSecret string) error
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*Document, error)
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries []string) (*DocumentList, error)
}
