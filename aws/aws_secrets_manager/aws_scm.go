package aws_secrets_manager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/libopenstorage/lockbox"
	sc "github.com/libopenstorage/lockbox/aws/credentials"
	"github.com/libopenstorage/lockbox/aws/utils"
)

const (
	// Name of the backend
	Name = "aws-secrets-manager"
	// ClientKey passes a ready secretsmanageriface.SecretsManagerAPI.
	ClientKey = "AWS_SECRETS_MANAGER_CLIENT"
	// SecretPrefixKey is prepended to every secret name.
	SecretPrefixKey = "AWS_SECRET_PREFIX"
	// SecretRetentionPeriodInDaysKey keeps deleted secrets recoverable for the
	// given number of days instead of removing them immediately.
	SecretRetentionPeriodInDaysKey = "AWS_SECRET_RETENTION_DAYS"
	DefaultSecretPrefix            = "lockbox/"

	// envelopeVersion prefixes the stored blob; secrets manager rejects an
	// empty SecretBinary.
	envelopeVersion = byte(1)

	tagManagedBy      = "lockbox:managed-by"
	tagAccessibility  = "lockbox:accessibility"
	tagSynchronizable = "lockbox:synchronizable"

	errCodeAccessDenied = "AccessDeniedException"
)

type awsSecretsMgr struct {
	scm             secretsmanageriface.SecretsManagerAPI
	prefix          string
	retentionInDays int64
}

// New returns a Backend storing one secret per item.
func New(
	boxConfig map[string]interface{},
) (lockbox.Backend, error) {
	prefix, err := utils.Param(SecretPrefixKey, boxConfig)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = DefaultSecretPrefix
	}
	retention, err := utils.Param(SecretRetentionPeriodInDaysKey, boxConfig)
	if err != nil {
		return nil, err
	}
	var days int64
	if retention != "" {
		// Secrets manager accepts a recovery window of 7 to 30 days.
		days, err = strconv.ParseInt(retention, 10, 64)
		if err != nil || days < 7 || days > 30 {
			return nil, fmt.Errorf("invalid %s %q: must be between 7 and 30", SecretRetentionPeriodInDaysKey, retention)
		}
	}

	if v, ok := boxConfig[ClientKey]; ok {
		scm, ok := v.(secretsmanageriface.SecretsManagerAPI)
		if !ok {
			return nil, fmt.Errorf("%s is not a SecretsManagerAPI", ClientKey)
		}
		return &awsSecretsMgr{scm: scm, prefix: prefix, retentionInDays: days}, nil
	}

	if boxConfig == nil {
		return nil, utils.ErrAWSCredsNotProvided
	}
	region, err := utils.Region(boxConfig)
	if err != nil {
		return nil, err
	}
	id, secret, token, err := utils.AuthKeys(boxConfig)
	if err != nil {
		return nil, err
	}
	asc, err := sc.NewAWSCredentials(id, secret, token)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws credentials instance: %v", err)
	}
	creds, err := asc.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %v", err)
	}
	config := &aws.Config{
		Credentials: creds,
		Region:      aws.String(region),
	}
	endpoint, err := utils.Param(utils.AwsEndpointKey, boxConfig)
	if err != nil {
		return nil, err
	}
	if endpoint != "" {
		config.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %v", err)
	}

	return &awsSecretsMgr{
		scm:             secretsmanager.New(sess),
		prefix:          prefix,
		retentionInDays: days,
	}, nil
}

func (a *awsSecretsMgr) String() string {
	return Name
}

// secretName hashes the query path; secret names only allow a small
// character set.
func (a *awsSecretsMgr) secretName(q lockbox.Query) string {
	sum := sha256.Sum256([]byte(q.Path()))
	return a.prefix + hex.EncodeToString(sum[:])
}

func (a *awsSecretsMgr) Lookup(ctx context.Context, q lockbox.Query) ([]byte, error) {
	result, err := a.scm.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretName(q)),
	})
	if err != nil {
		return nil, convertAWSErr(err)
	}
	return unwrap(result.SecretBinary)
}

func (a *awsSecretsMgr) Insert(ctx context.Context, q lockbox.Query, data []byte) error {
	name := a.secretName(q)
	_, err := a.scm.CreateSecretWithContext(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		Description:  aws.String(q.Path()),
		SecretBinary: wrap(data),
		Tags:         tags(q),
	})
	if err == nil {
		return nil
	}
	if !scheduledForDeletion(err) {
		return convertAWSErr(err)
	}

	// A secret deleted with a recovery window still owns its name.
	if _, err := a.scm.RestoreSecretWithContext(ctx, &secretsmanager.RestoreSecretInput{
		SecretId: aws.String(name),
	}); err != nil {
		return convertAWSErr(err)
	}
	return a.put(ctx, q, data)
}

func (a *awsSecretsMgr) Update(ctx context.Context, q lockbox.Query, data []byte) error {
	if _, err := a.scm.DescribeSecretWithContext(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(a.secretName(q)),
	}); err != nil {
		return convertAWSErr(err)
	}
	return a.put(ctx, q, data)
}

func (a *awsSecretsMgr) put(ctx context.Context, q lockbox.Query, data []byte) error {
	name := a.secretName(q)
	if _, err := a.scm.PutSecretValueWithContext(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(name),
		SecretBinary: wrap(data),
	}); err != nil {
		return convertAWSErr(err)
	}
	_, err := a.scm.TagResourceWithContext(ctx, &secretsmanager.TagResourceInput{
		SecretId: aws.String(name),
		Tags:     tags(q),
	})
	return convertAWSErr(err)
}

func (a *awsSecretsMgr) Delete(ctx context.Context, q lockbox.Query) error {
	input := &secretsmanager.DeleteSecretInput{
		SecretId: aws.String(a.secretName(q)),
	}
	if a.retentionInDays > 0 {
		input.RecoveryWindowInDays = aws.Int64(a.retentionInDays)
	} else {
		input.ForceDeleteWithoutRecovery = aws.Bool(true)
	}
	_, err := a.scm.DeleteSecretWithContext(ctx, input)
	return convertAWSErr(err)
}

func tags(q lockbox.Query) []*secretsmanager.Tag {
	return []*secretsmanager.Tag{
		{Key: aws.String(tagManagedBy), Value: aws.String("lockbox")},
		{Key: aws.String(tagAccessibility), Value: aws.String(q.Accessibility.String())},
		{Key: aws.String(tagSynchronizable), Value: aws.String(strconv.FormatBool(q.Synchronizable))},
	}
}

func wrap(data []byte) []byte {
	return append([]byte{envelopeVersion}, data...)
}

func unwrap(blob []byte) ([]byte, error) {
	if len(blob) == 0 || blob[0] != envelopeVersion {
		return nil, fmt.Errorf("secret was not written by lockbox")
	}
	return blob[1:], nil
}

// scheduledForDeletion reports whether err is the InvalidRequestException
// returned for a secret inside its recovery window. CreateSecret says
// "scheduled for deletion", the other operations say "marked for deletion".
func scheduledForDeletion(err error) bool {
	awsErr, ok := err.(awserr.Error)
	if !ok || awsErr.Code() != secretsmanager.ErrCodeInvalidRequestException {
		return false
	}
	msg := awsErr.Message()
	return strings.Contains(msg, "scheduled for deletion") || strings.Contains(msg, "marked for deletion")
}

func convertAWSErr(err error) error {
	if err == nil {
		return nil
	}
	if scheduledForDeletion(err) {
		return lockbox.ErrItemNotFound
	}
	if awsErr, ok := err.(awserr.Error); ok {
		switch awsErr.Code() {
		case secretsmanager.ErrCodeResourceNotFoundException:
			return lockbox.ErrItemNotFound
		case secretsmanager.ErrCodeResourceExistsException:
			return lockbox.ErrDuplicateItem
		case errCodeAccessDenied:
			return fmt.Errorf("%w: %s", lockbox.ErrInteractionNotAllowed, awsErr.Message())
		}
		return fmt.Errorf("AWS error: %s - %s", awsErr.Code(), awsErr.Message())
	}
	return err
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
