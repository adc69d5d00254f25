package identity

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config holds the Firebase project configuration.
type Config struct {
	CredentialsFile string `env:"FIREBASE_CREDENTIALS,required"` // path to the service account JSON
	ProjectID       string `env:"FIREBASE_PROJECT_ID"`
}

// FirebaseVerifier implements Verifier against Firebase Auth.
type FirebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier constructs the Firebase app and auth client eagerly so
// misconfiguration fails at startup rather than on the first request.
func NewFirebaseVerifier(ctx context.Context, cfg Config) (*FirebaseVerifier, error) {
	if cfg.CredentialsFile == "" {
		return nil, errors.New("identity: firebase credentials file is required")
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("identity: firebase init: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: client}, nil
}

// Verify exchanges an ID token for a verified identity.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, ErrMissingToken
	}

	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}

	id := Identity{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		id.Name = name
	}
	if verified, ok := tok.Claims["email_verified"].(bool); ok {
		id.EmailVerified = verified
	}
	id.GoogleLinked = tok.Firebase.SignInProvider == "google.com"

	return id, nil
}
