package driver

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

// ConnectFirebaseAuth initializes the Firebase Admin app and returns its auth client.
func ConnectFirebaseAuth(ctx context.Context, projectID, credentialsFile string) (*auth.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase app (project=%s): %w", projectID, err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init firebase auth: %w", err)
	}
	return client, nil
}
