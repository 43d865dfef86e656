// Package broker exchanges role identifiers for short-lived delegated
// credentials and builds clients scoped to them.
package broker

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/cloudtally/cloudtally/telemetry"
	"github.com/cloudtally/cloudtally/types"
)

const defaultSessionName = "cloudtally"

// STSClient is the slice of the STS API the broker needs.
type STSClient interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// Broker assumes roles and derives delegated credentials. Credentials are
// never cached; every Assume call performs a fresh exchange.
type Broker struct {
	sts    STSClient
	logger *telemetry.Logger
}

// New creates a broker on top of an ambient AWS config.
func New(cfg aws.Config) *Broker {
	return NewWithClient(sts.NewFromConfig(cfg))
}

// NewWithClient creates a broker with an explicit STS client.
func NewWithClient(client STSClient) *Broker {
	return &Broker{
		sts:    client,
		logger: telemetry.NewLogger("broker"),
	}
}

// Assume exchanges the target's role for a delegated credential. Denied
// delegations return AuthorizationError; every other failure returns
// DelegationError. No retries happen at this layer.
func (b *Broker) Assume(ctx context.Context, target types.AccountTarget) (types.DelegatedCredential, error) {
	sessionName := target.SessionName
	if sessionName == "" {
		sessionName = defaultSessionName
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(target.RoleARN),
		RoleSessionName: aws.String(sessionName),
	}
	if target.ExternalID != "" {
		input.ExternalId = aws.String(target.ExternalID)
	}

	out, err := b.sts.AssumeRole(ctx, input)
	if err != nil {
		if isAccessDenied(err) {
			return types.DelegatedCredential{}, &types.AuthorizationError{RoleARN: target.RoleARN, Err: err}
		}
		return types.DelegatedCredential{}, &types.DelegationError{RoleARN: target.RoleARN, Err: err}
	}

	creds := out.Credentials
	if creds == nil {
		return types.DelegatedCredential{}, &types.DelegationError{
			RoleARN: target.RoleARN,
			Err:     errors.New("assume role response carried no credentials"),
		}
	}

	b.logger.WithContext(ctx).Debug().
		Str("account_id", target.AccountID).
		Str("role_arn", target.RoleARN).
		Bool("cross_account", target.IsCrossAccount()).
		Msg("assumed role")

	return types.DelegatedCredential{
		AccessKeyID:     aws.ToString(creds.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.SecretAccessKey),
		SessionToken:    aws.ToString(creds.SessionToken),
		Expiration:      aws.ToTime(creds.Expiration),
	}, nil
}

// ClientConfig builds an AWS client config bound to a delegated credential.
// Pure construction, no network calls.
func ClientConfig(cred types.DelegatedCredential, region string) aws.Config {
	return aws.Config{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cred.AccessKeyID, cred.SecretAccessKey, cred.SessionToken),
	}
}

func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDenied"
}
