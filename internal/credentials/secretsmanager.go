package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/cruciblehq/shipyard/internal/config"
)

const resourceNotFound = "ResourceNotFoundException"

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Reads the credential from an AWS Secrets Manager secret.
type SecretsManager struct {
	Name   string // Secret id or ARN.
	client secretsAPI
}

// Creates a Secrets Manager source using the default AWS credential chain.
func NewSecretsManager(ctx context.Context, cfg config.CredentialsConfig) (*SecretsManager, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, wrap(ErrUnavailable, err)
	}

	client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &SecretsManager{Name: cfg.Name, client: client}, nil
}

func (s *SecretsManager) Acquire(ctx context.Context) (Credential, error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.Name),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == resourceNotFound {
			return Credential{}, fmt.Errorf("%w: secret %s", ErrNotFound, s.Name)
		}
		return Credential{}, wrap(ErrUnavailable, err)
	}

	switch {
	case aws.ToString(out.SecretString) != "":
		return NewCredential(*out.SecretString), nil
	case len(out.SecretBinary) > 0:
		return NewCredential(string(out.SecretBinary)), nil
	}
	return Credential{}, fmt.Errorf("%w: secret %s has no value", ErrNotFound, s.Name)
}
