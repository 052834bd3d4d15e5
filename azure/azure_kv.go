package azure

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/services/keyvault/2016-10-01/keyvault"
	"github.com/Azure/go-autorest/autorest"
	"github.com/Azure/go-autorest/autorest/to"
	"github.com/libopenstorage/lockbox"
)

const (
	Name       = "azure-kv"
	AzureCloud = "AzurePublicCloud"

	AzureTenantIDKey           = "AZURE_TENANT_ID"
	AzureClientIDKey           = "AZURE_CLIENT_ID"
	AzureClientSecretKey       = "AZURE_CLIENT_SECRET"
	AzureClientCertPathKey     = "AZURE_CLIENT_CERT_PATH"
	AzureClientCertPasswordKey = "AZURE_CLIENT_CERT_PASSWORD"
	AzureEnvironmentKey        = "AZURE_ENVIRONMENT"
	AzureVaultURLKey           = "AZURE_VAULT_URL"
	// AzurePurgeDeletedKey purges deleted secrets so their names can be
	// reused on vaults with soft delete enabled. Defaults to true.
	AzurePurgeDeletedKey = "AZURE_PURGE_DELETED"
	// AzureClientKey passes a ready client instead of authenticating.
	AzureClientKey = "AZURE_KV_CLIENT"

	secretPrefix = "lb-"
	contentType  = "application/octet-stream;base64"

	tagManagedBy      = "managed-by"
	tagAccessibility  = "accessibility"
	tagSynchronizable = "synchronizable"
)

var (
	ErrAzureTenantIDNotSet = errors.New("AZURE_TENANT_ID not set.")
	ErrAzureClientIDNotSet = errors.New("AZURE_CLIENT_ID not set.")
	ErrAzureSecretIDNotSet = errors.New("AZURE_CLIENT_SECRET or AZURE_CLIENT_CERT_PATH not set.")
	ErrAzureVaultURLNotSet = errors.New("AZURE_VAULT_URL not set.")
	ErrAzureConfigMissing  = errors.New("AzureConfig is not provided")
	ErrAzureAuthentication = errors.New("Azure authentication failed")
	ErrInvalidPurgeDeleted = errors.New("AZURE_PURGE_DELETED is invalid")
	ErrInvalidAzureClient  = errors.New("AZURE_KV_CLIENT is not a key vault client")
)

// vaultClient is the part of keyvault.BaseClient used by the backend.
type vaultClient interface {
	GetSecret(ctx context.Context, vaultBaseURL string, secretName string, secretVersion string) (keyvault.SecretBundle, error)
	SetSecret(ctx context.Context, vaultBaseURL string, secretName string, parameters keyvault.SecretSetParameters) (keyvault.SecretBundle, error)
	DeleteSecret(ctx context.Context, vaultBaseURL string, secretName string) (keyvault.DeletedSecretBundle, error)
	PurgeDeletedSecret(ctx context.Context, vaultBaseURL string, secretName string) (autorest.Response, error)
}

type azureBox struct {
	kv      vaultClient
	baseURL string
	purge   bool
}

// New returns a Backend storing one key vault secret per item.
func New(
	boxConfig map[string]interface{},
) (lockbox.Backend, error) {
	if len(boxConfig) == 0 {
		return nil, ErrAzureConfigMissing
	}
	vaultURL := getAzureKVParams(boxConfig, AzureVaultURLKey)
	if vaultURL == "" {
		return nil, ErrAzureVaultURLNotSet
	}
	purge := true
	if v := getAzureKVParams(boxConfig, AzurePurgeDeletedKey); v != "" {
		var err error
		if purge, err = strconv.ParseBool(v); err != nil {
			return nil, ErrInvalidPurgeDeleted
		}
	}

	if v, ok := boxConfig[AzureClientKey]; ok {
		client, ok := v.(vaultClient)
		if !ok {
			return nil, ErrInvalidAzureClient
		}
		return &azureBox{kv: client, baseURL: vaultURL, purge: purge}, nil
	}

	tenantID := getAzureKVParams(boxConfig, AzureTenantIDKey)
	if tenantID == "" {
		return nil, ErrAzureTenantIDNotSet
	}
	clientID := getAzureKVParams(boxConfig, AzureClientIDKey)
	if clientID == "" {
		return nil, ErrAzureClientIDNotSet
	}
	secretID := getAzureKVParams(boxConfig, AzureClientSecretKey)
	certPath := getAzureKVParams(boxConfig, AzureClientCertPathKey)
	if secretID == "" && certPath == "" {
		return nil, ErrAzureSecretIDNotSet
	}
	certPassword := getAzureKVParams(boxConfig, AzureClientCertPasswordKey)
	envName := getAzureKVParams(boxConfig, AzureEnvironmentKey)
	if envName == "" {
		envName = AzureCloud
	}

	client, err := getAzureVaultClient(clientID, secretID, certPath, certPassword, tenantID, envName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAzureAuthentication, err)
	}

	return &azureBox{
		kv:      client,
		baseURL: vaultURL,
		purge:   purge,
	}, nil
}

func (az *azureBox) String() string {
	return Name
}

// secretName hashes the query path. Key vault names only allow
// alphanumerics and dashes.
func secretName(q lockbox.Query) string {
	sum := sha256.Sum256([]byte(q.Path()))
	return secretPrefix + hex.EncodeToString(sum[:])
}

func (az *azureBox) Lookup(ctx context.Context, q lockbox.Query) ([]byte, error) {
	// An empty version reads the current one.
	bundle, err := az.kv.GetSecret(ctx, az.baseURL, secretName(q), "")
	if err != nil {
		return nil, convertErr(err)
	}
	if bundle.Value == nil {
		return []byte{}, nil
	}
	data, err := base64.StdEncoding.DecodeString(*bundle.Value)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", secretName(q), err)
	}
	return data, nil
}

func (az *azureBox) Insert(ctx context.Context, q lockbox.Query, data []byte) error {
	if _, err := az.Lookup(ctx, q); err == nil {
		return lockbox.ErrDuplicateItem
	} else if !errors.Is(err, lockbox.ErrItemNotFound) {
		return err
	}
	return az.set(ctx, q, data)
}

func (az *azureBox) Update(ctx context.Context, q lockbox.Query, data []byte) error {
	if _, err := az.kv.GetSecret(ctx, az.baseURL, secretName(q), ""); err != nil {
		return convertErr(err)
	}
	return az.set(ctx, q, data)
}

func (az *azureBox) Delete(ctx context.Context, q lockbox.Query) error {
	name := secretName(q)
	if _, err := az.kv.DeleteSecret(ctx, az.baseURL, name); err != nil {
		return convertErr(err)
	}
	if !az.purge {
		return nil
	}
	_, err := az.kv.PurgeDeletedSecret(ctx, az.baseURL, name)
	if errors.Is(convertErr(err), lockbox.ErrItemNotFound) {
		// Vaults without soft delete have nothing to purge.
		return nil
	}
	return convertErr(err)
}

func (az *azureBox) set(ctx context.Context, q lockbox.Query, data []byte) error {
	_, err := az.kv.SetSecret(ctx, az.baseURL, secretName(q), keyvault.SecretSetParameters{
		Value:       to.StringPtr(base64.StdEncoding.EncodeToString(data)),
		ContentType: to.StringPtr(contentType),
		Tags: map[string]*string{
			tagManagedBy:      to.StringPtr("lockbox"),
			tagAccessibility:  to.StringPtr(q.Accessibility.String()),
			tagSynchronizable: to.StringPtr(strconv.FormatBool(q.Synchronizable)),
		},
	})
	return convertErr(err)
}

func convertErr(err error) error {
	if err == nil {
		return nil
	}
	var detailed autorest.DetailedError
	if errors.As(err, &detailed) {
		switch detailed.StatusCode {
		case http.StatusNotFound:
			return lockbox.ErrItemNotFound
		case http.StatusConflict:
			return fmt.Errorf("%w: %v", lockbox.ErrDuplicateItem, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, err)
		}
	}
	return err
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
