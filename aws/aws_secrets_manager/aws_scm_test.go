package aws_secrets_manager

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libopenstorage/lockbox"
	"github.com/libopenstorage/lockbox/aws/utils"
	"github.com/libopenstorage/lockbox/test"
)

type fakeSecret struct {
	blob    []byte
	tags    map[string]string
	deleted bool
}

// fakeSecretsManager keeps secrets in memory. Methods the backend does not
// call panic through the embedded nil interface.
type fakeSecretsManager struct {
	secretsmanageriface.SecretsManagerAPI

	mu      sync.Mutex
	secrets map[string]*fakeSecret
	denied  bool
}

func newFake() *fakeSecretsManager {
	return &fakeSecretsManager{secrets: make(map[string]*fakeSecret)}
}

func notFound() error {
	return awserr.New(secretsmanager.ErrCodeResourceNotFoundException, "Secrets Manager can't find the specified secret.", nil)
}

func markedForDeletion() error {
	return awserr.New(secretsmanager.ErrCodeInvalidRequestException,
		"You can't perform this operation on the secret because it was marked for deletion.", nil)
}

func (f *fakeSecretsManager) live(id *string) (*fakeSecret, error) {
	if f.denied {
		return nil, awserr.New(errCodeAccessDenied, "not authorized", nil)
	}
	s, ok := f.secrets[aws.StringValue(id)]
	if !ok {
		return nil, notFound()
	}
	if s.deleted {
		return nil, markedForDeletion()
	}
	return s, nil
}

func applyTags(s *fakeSecret, tags []*secretsmanager.Tag) {
	for _, t := range tags {
		s.tags[aws.StringValue(t.Key)] = aws.StringValue(t.Value)
	}
}

func (f *fakeSecretsManager) GetSecretValueWithContext(_ aws.Context, in *secretsmanager.GetSecretValueInput, _ ...request.Option) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.live(in.SecretId)
	if err != nil {
		return nil, err
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretBinary: append([]byte(nil), s.blob...)}, nil
}

func (f *fakeSecretsManager) DescribeSecretWithContext(_ aws.Context, in *secretsmanager.DescribeSecretInput, _ ...request.Option) (*secretsmanager.DescribeSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.live(in.SecretId); err != nil {
		return nil, err
	}
	return &secretsmanager.DescribeSecretOutput{Name: in.SecretId}, nil
}

func (f *fakeSecretsManager) CreateSecretWithContext(_ aws.Context, in *secretsmanager.CreateSecretInput, _ ...request.Option) (*secretsmanager.CreateSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(in.SecretBinary) == 0 {
		return nil, awserr.New(secretsmanager.ErrCodeInvalidParameterException, "empty SecretBinary", nil)
	}
	if s, ok := f.secrets[aws.StringValue(in.Name)]; ok {
		if s.deleted {
			return nil, awserr.New(secretsmanager.ErrCodeInvalidRequestException,
				"You can't create this secret because a secret with this name is already scheduled for deletion.", nil)
		}
		return nil, awserr.New(secretsmanager.ErrCodeResourceExistsException, "the secret already exists", nil)
	}
	s := &fakeSecret{blob: in.SecretBinary, tags: make(map[string]string)}
	applyTags(s, in.Tags)
	f.secrets[aws.StringValue(in.Name)] = s
	return &secretsmanager.CreateSecretOutput{Name: in.Name}, nil
}

func (f *fakeSecretsManager) PutSecretValueWithContext(_ aws.Context, in *secretsmanager.PutSecretValueInput, _ ...request.Option) (*secretsmanager.PutSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.live(in.SecretId)
	if err != nil {
		return nil, err
	}
	s.blob = in.SecretBinary
	return &secretsmanager.PutSecretValueOutput{Name: in.SecretId}, nil
}

func (f *fakeSecretsManager) TagResourceWithContext(_ aws.Context, in *secretsmanager.TagResourceInput, _ ...request.Option) (*secretsmanager.TagResourceOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.live(in.SecretId)
	if err != nil {
		return nil, err
	}
	applyTags(s, in.Tags)
	return &secretsmanager.TagResourceOutput{}, nil
}

func (f *fakeSecretsManager) RestoreSecretWithContext(_ aws.Context, in *secretsmanager.RestoreSecretInput, _ ...request.Option) (*secretsmanager.RestoreSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.secrets[aws.StringValue(in.SecretId)]
	if !ok {
		return nil, notFound()
	}
	s.deleted = false
	return &secretsmanager.RestoreSecretOutput{Name: in.SecretId}, nil
}

func (f *fakeSecretsManager) DeleteSecretWithContext(_ aws.Context, in *secretsmanager.DeleteSecretInput, _ ...request.Option) (*secretsmanager.DeleteSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.live(in.SecretId); err != nil {
		return nil, err
	}
	if aws.BoolValue(in.ForceDeleteWithoutRecovery) {
		delete(f.secrets, aws.StringValue(in.SecretId))
	} else {
		f.secrets[aws.StringValue(in.SecretId)].deleted = true
	}
	return &secretsmanager.DeleteSecretOutput{Name: in.SecretId}, nil
}

func TestAll(t *testing.T) {
	b, err := New(map[string]interface{}{ClientKey: newFake()})
	require.NoError(t, err)

	test.RunForBackend(b, t)
	test.RunForLockbox(b, t)
}

func TestAllWithRetention(t *testing.T) {
	b, err := New(map[string]interface{}{
		ClientKey:                      newFake(),
		SecretRetentionPeriodInDaysKey: "7",
	})
	require.NoError(t, err)

	test.RunForBackend(b, t)
	test.RunForLockbox(b, t)
}

func TestSetAfterScheduledDelete(t *testing.T) {
	fake := newFake()
	b, err := New(map[string]interface{}{
		ClientKey:                      fake,
		SecretRetentionPeriodInDaysKey: "7",
	})
	require.NoError(t, err)
	ctx := context.Background()
	q := lockbox.Query{Service: "rotating"}

	require.NoError(t, b.Insert(ctx, q, []byte("v1")))
	require.NoError(t, b.Delete(ctx, q))
	require.True(t, fake.secrets[b.(*awsSecretsMgr).secretName(q)].deleted)

	_, err = b.Lookup(ctx, q)
	assert.ErrorIs(t, err, lockbox.ErrItemNotFound)
	assert.ErrorIs(t, b.Update(ctx, q, []byte("v2")), lockbox.ErrItemNotFound)
	assert.ErrorIs(t, b.Delete(ctx, q), lockbox.ErrItemNotFound)

	queue := lockbox.NewQueue()
	defer queue.Close()
	box, err := lockbox.New(b, lockbox.Config{Namespace: "scm", Queue: queue})
	require.NoError(t, err)
	require.NoError(t, box.Set(ctx, "k", []byte("first")))
	require.NoError(t, box.Delete(ctx, "k"))

	other, err := lockbox.New(b, lockbox.Config{Namespace: "scm", Queue: queue})
	require.NoError(t, err)
	data, err := other.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, other.Set(ctx, "k", []byte("second")))
	data, err = b.Lookup(ctx, lockbox.Query{Service: "scm.k"})
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestNew(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         map[string]interface{}
		expectedErr error
	}{
		{
			name:        "config is not provided",
			expectedErr: utils.ErrAWSCredsNotProvided,
		},
		{
			name: "region is not provided",
			cfg: map[string]interface{}{
				utils.AwsAccessKey:       "key1",
				utils.AwsSecretAccessKey: "key2",
			},
			expectedErr: utils.ErrAWSRegionNotProvided,
		},
	}

	t.Setenv(utils.AwsRegionKey, "")
	for _, tc := range testCases {
		_, err := New(tc.cfg)
		require.Equal(t, tc.expectedErr, err, tc.name)
	}

	_, err := New(map[string]interface{}{ClientKey: "not a client"})
	assert.Error(t, err)

	_, err = New(map[string]interface{}{ClientKey: newFake(), SecretRetentionPeriodInDaysKey: "3"})
	assert.Error(t, err)

	b, err := New(map[string]interface{}{
		utils.AwsRegionKey:       "us-east-1",
		utils.AwsAccessKey:       "key1",
		utils.AwsSecretAccessKey: "key2",
	})
	require.NoError(t, err)
	assert.Equal(t, Name, b.String())
}

func TestSecretLayout(t *testing.T) {
	fake := newFake()
	b, err := New(map[string]interface{}{ClientKey: fake, SecretPrefixKey: "apps/"})
	require.NoError(t, err)

	q := lockbox.Query{Service: "app.token", Account: "a%b/c", Accessibility: lockbox.AccessibleAlways}
	require.NoError(t, b.Insert(context.Background(), q, []byte{}))

	name := b.(*awsSecretsMgr).secretName(q)
	assert.Len(t, name, len("apps/")+64)
	s, ok := fake.secrets[name]
	require.True(t, ok)
	assert.Equal(t, []byte{envelopeVersion}, s.blob)
	assert.Equal(t, "always", s.tags[tagAccessibility])
	assert.Equal(t, "false", s.tags[tagSynchronizable])

	data, err := b.Lookup(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStatusMapping(t *testing.T) {
	fake := newFake()
	b, err := New(map[string]interface{}{ClientKey: fake})
	require.NoError(t, err)
	q := lockbox.Query{Service: "status"}

	fake.denied = true
	_, err = b.Lookup(context.Background(), q)
	assert.ErrorIs(t, err, lockbox.ErrInteractionNotAllowed)
	fake.denied = false

	fake.secrets[b.(*awsSecretsMgr).secretName(q)] = &fakeSecret{blob: []byte("foreign"), tags: map[string]string{}}
	_, err = b.Lookup(context.Background(), q)
	require.Error(t, err)
	assert.NotErrorIs(t, err, lockbox.ErrItemNotFound)
}
