package driver

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// ConnectFirestore opens a Firestore client. An empty credentialsFile falls back
// to Application Default Credentials.
func ConnectFirestore(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	client, err := firestore.NewClient(ctx, projectID, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client (project=%s): %w", projectID, err)
	}
	return client, nil
}

func clientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}
