package azure

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/services/keyvault/2016-10-01/keyvault"
	"github.com/Azure/go-autorest/autorest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libopenstorage/lockbox"
	"github.com/libopenstorage/lockbox/test"
)

const testVaultURL = "https://lockbox-test.vault.azure.net"

// fakeVault behaves like a key vault with soft delete enabled.
type fakeVault struct {
	mu      sync.Mutex
	secrets map[string]keyvault.SecretBundle
	deleted map[string]bool
	denied  bool
}

func newFakeVault() *fakeVault {
	return &fakeVault{
		secrets: make(map[string]keyvault.SecretBundle),
		deleted: make(map[string]bool),
	}
}

func statusErr(code int) error {
	return autorest.NewErrorWithError(nil, "keyvault.BaseClient", "op", &http.Response{StatusCode: code}, "fake failure")
}

func (f *fakeVault) GetSecret(_ context.Context, vaultBaseURL string, name string, version string) (keyvault.SecretBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denied {
		return keyvault.SecretBundle{}, statusErr(http.StatusForbidden)
	}
	bundle, ok := f.secrets[name]
	if !ok {
		return keyvault.SecretBundle{}, statusErr(http.StatusNotFound)
	}
	return bundle, nil
}

func (f *fakeVault) SetSecret(_ context.Context, vaultBaseURL string, name string, params keyvault.SecretSetParameters) (keyvault.SecretBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleted[name] {
		return keyvault.SecretBundle{}, statusErr(http.StatusConflict)
	}
	bundle := keyvault.SecretBundle{Value: params.Value, ContentType: params.ContentType, Tags: params.Tags}
	f.secrets[name] = bundle
	return bundle, nil
}

func (f *fakeVault) DeleteSecret(_ context.Context, vaultBaseURL string, name string) (keyvault.DeletedSecretBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.secrets[name]; !ok {
		return keyvault.DeletedSecretBundle{}, statusErr(http.StatusNotFound)
	}
	delete(f.secrets, name)
	f.deleted[name] = true
	return keyvault.DeletedSecretBundle{}, nil
}

func (f *fakeVault) PurgeDeletedSecret(_ context.Context, vaultBaseURL string, name string) (autorest.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.deleted[name] {
		return autorest.Response{}, statusErr(http.StatusNotFound)
	}
	delete(f.deleted, name)
	return autorest.Response{Response: &http.Response{StatusCode: http.StatusNoContent}}, nil
}

func TestAll(t *testing.T) {
	b, err := New(map[string]interface{}{
		AzureVaultURLKey: testVaultURL,
		AzureClientKey:   newFakeVault(),
	})
	require.NoError(t, err)

	test.RunForBackend(b, t)
	test.RunForLockbox(b, t)
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Equal(t, ErrAzureConfigMissing, err)

	config := map[string]interface{}{AzureVaultURLKey: ""}
	_, err = New(config)
	assert.Equal(t, ErrAzureVaultURLNotSet, err)

	config = map[string]interface{}{AzureVaultURLKey: testVaultURL, AzureTenantIDKey: ""}
	_, err = New(config)
	assert.Equal(t, ErrAzureTenantIDNotSet, err)

	config[AzureTenantIDKey] = "tenant"
	config[AzureClientIDKey] = ""
	_, err = New(config)
	assert.Equal(t, ErrAzureClientIDNotSet, err)

	config[AzureClientIDKey] = "client"
	config[AzureClientSecretKey] = ""
	config[AzureClientCertPathKey] = ""
	_, err = New(config)
	assert.Equal(t, ErrAzureSecretIDNotSet, err)

	config[AzureClientCertPathKey] = filepath.Join(t.TempDir(), "missing.pfx")
	_, err = New(config)
	assert.ErrorIs(t, err, ErrAzureAuthentication)

	config[AzureClientCertPathKey] = ""
	config[AzureClientSecretKey] = "secret"
	config[AzureEnvironmentKey] = "NoSuchCloud"
	_, err = New(config)
	assert.ErrorIs(t, err, ErrAzureAuthentication)

	config[AzureEnvironmentKey] = ""
	b, err := New(config)
	require.NoError(t, err)
	assert.Equal(t, Name, b.String())
	assert.True(t, b.(*azureBox).purge)

	_, err = New(map[string]interface{}{AzureVaultURLKey: testVaultURL, AzurePurgeDeletedKey: "sometimes"})
	assert.Equal(t, ErrInvalidPurgeDeleted, err)

	_, err = New(map[string]interface{}{AzureVaultURLKey: testVaultURL, AzureClientKey: "client"})
	assert.Equal(t, ErrInvalidAzureClient, err)
}

func TestDecodePkcs12(t *testing.T) {
	certPath := filepath.Join(t.TempDir(), "cert.pfx")
	require.NoError(t, os.WriteFile(certPath, []byte("not a certificate"), 0600))

	_, _, err := decodePkcs12([]byte("not a certificate"), "")
	assert.Error(t, err)

	_, err = getAzureVaultClient("client", "", certPath, "", "tenant", AzureCloud)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode the client certificate")
}

func TestSecretLayout(t *testing.T) {
	fake := newFakeVault()
	b, err := New(map[string]interface{}{AzureVaultURLKey: testVaultURL, AzureClientKey: fake})
	require.NoError(t, err)

	q := lockbox.Query{Service: "app.token", Synchronizable: true}
	require.NoError(t, b.Insert(context.Background(), q, []byte("hunter2")))

	name := secretName(q)
	assert.Regexp(t, "^lb-[0-9a-f]{64}$", name)
	bundle, ok := fake.secrets[name]
	require.True(t, ok)
	assert.Equal(t, "aHVudGVyMg==", *bundle.Value)
	assert.Equal(t, contentType, *bundle.ContentType)
	assert.Equal(t, "after_first_unlock", *bundle.Tags[tagAccessibility])
	assert.Equal(t, "true", *bundle.Tags[tagSynchronizable])
}

func TestSoftDelete(t *testing.T) {
	fake := newFakeVault()
	ctx := context.Background()
	q := lockbox.Query{Service: "soft"}

	keep, err := New(map[string]interface{}{
		AzureVaultURLKey:     testVaultURL,
		AzureClientKey:       fake,
		AzurePurgeDeletedKey: "false",
	})
	require.NoError(t, err)
	require.NoError(t, keep.Insert(ctx, q, []byte("v1")))
	require.NoError(t, keep.Delete(ctx, q))
	assert.True(t, fake.deleted[secretName(q)])

	// The name stays reserved until purged.
	err = keep.Insert(ctx, q, []byte("v2"))
	assert.ErrorIs(t, err, lockbox.ErrDuplicateItem)

	purging, err := New(map[string]interface{}{AzureVaultURLKey: testVaultURL, AzureClientKey: fake})
	require.NoError(t, err)
	require.NoError(t, purging.Insert(ctx, lockbox.Query{Service: "other"}, []byte("x")))
	require.NoError(t, purging.Delete(ctx, lockbox.Query{Service: "other"}))
	assert.False(t, fake.deleted[secretName(lockbox.Query{Service: "other"})])

	fake.denied = true
	_, err = purging.Lookup(ctx, q)
	assert.ErrorIs(t, err, lockbox.ErrInteractionNotAllowed)
}
