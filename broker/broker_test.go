package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudtally/cloudtally/types"
)

type stubSTS struct {
	lastInput *sts.AssumeRoleInput
	output    *sts.AssumeRoleOutput
	err       error
}

func (s *stubSTS) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	s.lastInput = params
	if s.err != nil {
		return nil, s.err
	}
	return s.output, nil
}

func validOutput(expiry time.Time) *sts.AssumeRoleOutput {
	return &sts.AssumeRoleOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("AKIA_TEST"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("token"),
			Expiration:      aws.Time(expiry),
		},
	}
}

func TestAssume(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC()
	stub := &stubSTS{output: validOutput(expiry)}
	b := NewWithClient(stub)

	cred, err := b.Assume(context.Background(), types.AccountTarget{
		AccountID:   "123456789012",
		RoleARN:     "arn:aws:iam::123456789012:role/Inventory",
		SessionName: "audit",
	})
	require.NoError(t, err)

	assert.Equal(t, "AKIA_TEST", cred.AccessKeyID)
	assert.Equal(t, "secret", cred.SecretAccessKey)
	assert.Equal(t, "token", cred.SessionToken)
	assert.Equal(t, expiry, cred.Expiration)

	require.NotNil(t, stub.lastInput)
	assert.Equal(t, "arn:aws:iam::123456789012:role/Inventory", aws.ToString(stub.lastInput.RoleArn))
	assert.Equal(t, "audit", aws.ToString(stub.lastInput.RoleSessionName))
	assert.Nil(t, stub.lastInput.ExternalId)
}

func TestAssumeCrossAccountPassesExternalID(t *testing.T) {
	stub := &stubSTS{output: validOutput(time.Now())}
	b := NewWithClient(stub)

	_, err := b.Assume(context.Background(), types.AccountTarget{
		AccountID:  "987654321098",
		RoleARN:    "arn:aws:iam::987654321098:role/Inventory",
		ExternalID: "ext-987",
	})
	require.NoError(t, err)

	assert.Equal(t, "ext-987", aws.ToString(stub.lastInput.ExternalId))
	// Session name falls back to the default when the target has none.
	assert.Equal(t, defaultSessionName, aws.ToString(stub.lastInput.RoleSessionName))
}

func TestAssumeAccessDenied(t *testing.T) {
	stub := &stubSTS{err: &smithy.GenericAPIError{Code: "AccessDenied", Message: "not allowed"}}
	b := NewWithClient(stub)

	_, err := b.Assume(context.Background(), types.AccountTarget{
		AccountID: "123456789012",
		RoleARN:   "arn:aws:iam::123456789012:role/Inventory",
	})

	var authErr *types.AuthorizationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "arn:aws:iam::123456789012:role/Inventory", authErr.RoleARN)
}

func TestAssumeMissingCredentials(t *testing.T) {
	stub := &stubSTS{output: &sts.AssumeRoleOutput{}}
	b := NewWithClient(stub)

	_, err := b.Assume(context.Background(), types.AccountTarget{
		AccountID: "123456789012",
		RoleARN:   "arn:aws:iam::123456789012:role/Inventory",
	})

	var delErr *types.DelegationError
	require.ErrorAs(t, err, &delErr)
	assert.Equal(t, "arn:aws:iam::123456789012:role/Inventory", delErr.RoleARN)
}

func TestAssumeOtherFailure(t *testing.T) {
	cause := errors.New("connection reset")
	stub := &stubSTS{err: cause}
	b := NewWithClient(stub)

	_, err := b.Assume(context.Background(), types.AccountTarget{
		AccountID: "123456789012",
		RoleARN:   "arn:aws:iam::123456789012:role/Inventory",
	})

	var delErr *types.DelegationError
	require.ErrorAs(t, err, &delErr)
	require.ErrorIs(t, err, cause)
}

func TestAssumeThrottlingIsNotAuthorization(t *testing.T) {
	stub := &stubSTS{err: &smithy.GenericAPIError{Code: "Throttling", Message: "rate exceeded"}}
	b := NewWithClient(stub)

	_, err := b.Assume(context.Background(), types.AccountTarget{
		AccountID: "123456789012",
		RoleARN:   "arn:aws:iam::123456789012:role/Inventory",
	})

	var authErr *types.AuthorizationError
	assert.False(t, errors.As(err, &authErr))
	var delErr *types.DelegationError
	assert.True(t, errors.As(err, &delErr))
}

func TestClientConfig(t *testing.T) {
	cred := types.DelegatedCredential{
		AccessKeyID:     "AKIA_TEST",
		SecretAccessKey: "secret",
		SessionToken:    "token",
	}

	cfg := ClientConfig(cred, "ap-northeast-2")
	assert.Equal(t, "ap-northeast-2", cfg.Region)

	retrieved, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA_TEST", retrieved.AccessKeyID)
	assert.Equal(t, "token", retrieved.SessionToken)
}
