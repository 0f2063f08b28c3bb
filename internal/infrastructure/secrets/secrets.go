// Package secrets resolves the credential encryption secret, optionally from
// AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// JSONKey is the field read when the stored secret is a JSON object.
const JSONKey = "TELLER_TOKEN_KEY"

var ErrEmptySecret = errors.New("secret value is empty")

// API is the subset of *secretsmanager.Client used here.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource reads one secret from AWS Secrets Manager.
type SecretsManagerSource struct {
	client   API
	secretID string
}

// NewSecretsManagerSource builds a client from the default AWS credential chain.
func NewSecretsManagerSource(ctx context.Context, region, secretID string) (*SecretsManagerSource, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSecretsManagerSourceWithClient(secretsmanager.NewFromConfig(cfg), secretID), nil
}

func NewSecretsManagerSourceWithClient(client API, secretID string) *SecretsManagerSource {
	return &SecretsManagerSource{client: client, secretID: secretID}
}

// Secret returns the secret string. A JSON object value yields its
// TELLER_TOKEN_KEY field; anything else is used verbatim.
func (s *SecretsManagerSource) Secret(ctx context.Context) (string, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", s.secretID, err)
	}

	value := strings.TrimSpace(aws.ToString(out.SecretString))
	if strings.HasPrefix(value, "{") {
		var fields map[string]string
		if err := json.Unmarshal([]byte(value), &fields); err != nil {
			return "", fmt.Errorf("failed to parse secret %s: %w", s.secretID, err)
		}
		value = strings.TrimSpace(fields[JSONKey])
	}

	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptySecret, s.secretID)
	}
	return value, nil
}

// Resolve returns fallback when secretID is empty, otherwise the value stored
// in Secrets Manager under secretID.
func Resolve(ctx context.Context, fallback, secretID, region string) (string, error) {
	if secretID == "" {
		return fallback, nil
	}
	src, err := NewSecretsManagerSource(ctx, region, secretID)
	if err != nil {
		return "", err
	}
	return src.Secret(ctx)
}
