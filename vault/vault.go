package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/libopenstorage/lockbox"
)

const (
	Name = "vault"
	// VaultBackendPathKey is the mount path of the KV secrets engine.
	VaultBackendPathKey = "VAULT_BACKEND_PATH"
	// VaultBackendKey selects the KV engine version, "v1" or "v2".
	VaultBackendKey    = "VAULT_BACKEND"
	DefaultBackendPath = "secret/"
	kvVersion1         = "v1"
	kvVersion2         = "v2"
	vaultAddressPrefix = "http"

	fieldData           = "data"
	fieldService        = "service"
	fieldAccount        = "account"
	fieldAccessGroup    = "access_group"
	fieldAccessibility  = "accessibility"
	fieldSynchronizable = "synchronizable"
)

var (
	ErrVaultTokenNotSet    = errors.New("VAULT_TOKEN not set.")
	ErrVaultAddressNotSet  = errors.New("VAULT_ADDR not set.")
	ErrInvalidSkipVerify   = errors.New("VAULT_SKIP_VERIFY is invalid")
	ErrInvalidMaxRetries   = errors.New("VAULT_MAX_RETRIES is invalid")
	ErrInvalidKvVersion    = errors.New("VAULT_BACKEND should be v1 or v2")
	ErrInvalidVaultAddress = errors.New("VAULT_ADDRESS is invalid. " +
		"Should be of the form http(s)://<ip>:<port>")
)

type vaultBox struct {
	client    *api.Client
	endpoint  string
	mount     string
	kvVersion string
}

// These variables are helpful in testing to stub method call from packages
var (
	newVaultClient = api.NewClient
)

// New returns a Backend storing one KV secret per item.
func New(
	boxConfig map[string]interface{},
) (lockbox.Backend, error) {
	// DefaultConfig uses the environment variables if present.
	config := api.DefaultConfig()

	if len(boxConfig) == 0 && config.Error != nil {
		return nil, config.Error
	}

	token := getVaultParam(boxConfig, api.EnvVaultToken)
	if token == "" {
		return nil, ErrVaultTokenNotSet
	}

	address := getVaultParam(boxConfig, api.EnvVaultAddress)
	if address == "" {
		return nil, ErrVaultAddressNotSet
	}
	// Vault fails if address is not in correct format
	if !strings.HasPrefix(address, vaultAddressPrefix) {
		return nil, ErrInvalidVaultAddress
	}
	config.Address = address

	if retries := getVaultParam(boxConfig, api.EnvVaultMaxRetries); retries != "" {
		n, err := strconv.Atoi(retries)
		if err != nil || n < 0 {
			return nil, ErrInvalidMaxRetries
		}
		config.MaxRetries = n
	}

	if err := configureTLS(config, boxConfig); err != nil {
		return nil, err
	}

	version := getVaultParam(boxConfig, VaultBackendKey)
	switch version {
	case "":
		version = kvVersion2
	case kvVersion1, kvVersion2:
	default:
		return nil, ErrInvalidKvVersion
	}

	mount := getVaultParam(boxConfig, VaultBackendPathKey)
	if mount == "" {
		mount = DefaultBackendPath
	}
	mount = strings.Trim(mount, "/") + "/"

	client, err := newVaultClient(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	return &vaultBox{
		endpoint:  config.Address,
		client:    client,
		mount:     mount,
		kvVersion: version,
	}, nil
}

func (v *vaultBox) String() string {
	return Name
}

func (v *vaultBox) Lookup(ctx context.Context, q lockbox.Query) ([]byte, error) {
	fields, err := v.read(ctx, q)
	if err != nil {
		return nil, err
	}
	encoded, ok := fields[fieldData].(string)
	if !ok {
		return nil, fmt.Errorf("vault secret %s has no %s field", v.dataPath(q), fieldData)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("vault secret %s: %w", v.dataPath(q), err)
	}
	return data, nil
}

func (v *vaultBox) Insert(ctx context.Context, q lockbox.Query, data []byte) error {
	if _, err := v.read(ctx, q); err == nil {
		return lockbox.ErrDuplicateItem
	} else if !errors.Is(err, lockbox.ErrItemNotFound) {
		return err
	}
	return v.write(ctx, q, data)
}

func (v *vaultBox) Update(ctx context.Context, q lockbox.Query, data []byte) error {
	if _, err := v.read(ctx, q); err != nil {
		return err
	}
	return v.write(ctx, q, data)
}

func (v *vaultBox) Delete(ctx context.Context, q lockbox.Query) error {
	if _, err := v.read(ctx, q); err != nil {
		return err
	}
	path := v.mount + q.Path()
	if v.kvVersion == kvVersion2 {
		// Removing the metadata drops every version of the secret.
		path = v.mount + "metadata/" + q.Path()
	}
	_, err := v.client.Logical().DeleteWithContext(ctx, path)
	return convertErr(err)
}

func (v *vaultBox) dataPath(q lockbox.Query) string {
	if v.kvVersion == kvVersion2 {
		return v.mount + "data/" + q.Path()
	}
	return v.mount + q.Path()
}

func (v *vaultBox) read(ctx context.Context, q lockbox.Query) (map[string]interface{}, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.dataPath(q))
	if err != nil {
		return nil, convertErr(err)
	}
	if secret == nil || secret.Data == nil {
		return nil, lockbox.ErrItemNotFound
	}
	if v.kvVersion == kvVersion1 {
		return secret.Data, nil
	}
	// A deleted v2 version still answers with metadata but no data.
	fields, ok := secret.Data[fieldData].(map[string]interface{})
	if !ok || fields == nil {
		return nil, lockbox.ErrItemNotFound
	}
	return fields, nil
}

func (v *vaultBox) write(ctx context.Context, q lockbox.Query, data []byte) error {
	fields := map[string]interface{}{
		fieldData:           base64.StdEncoding.EncodeToString(data),
		fieldService:        q.Service,
		fieldAccount:        q.Account,
		fieldAccessGroup:    q.AccessGroup,
		fieldAccessibility:  q.Accessibility.String(),
		fieldSynchronizable: strconv.FormatBool(q.Synchronizable),
	}
	if v.kvVersion == kvVersion2 {
		fields = map[string]interface{}{fieldData: fields}
	}
	_, err := v.client.Logical().WriteWithContext(ctx, v.dataPath(q), fields)
	return convertErr(err)
}

// convertErr maps a sealed vault or a denied token to
// lockbox.ErrInteractionNotAllowed.
func convertErr(err error) error {
	if err == nil {
		return nil
	}
	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return lockbox.ErrItemNotFound
		case http.StatusForbidden, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, err)
		}
	}
	return err
}

func getVaultParam(boxConfig map[string]interface{}, name string) string {
	if tokenIntf, exists := boxConfig[name]; exists {
		if s, ok := tokenIntf.(string); ok {
			return s
		}
		return fmt.Sprint(tokenIntf)
	} else {
		return os.Getenv(name)
	}
}

func configureTLS(config *api.Config, boxConfig map[string]interface{}) error {
	tlsConfig := api.TLSConfig{}
	skipVerify := getVaultParam(boxConfig, api.EnvVaultInsecure)
	if skipVerify != "" {
		insecure, err := strconv.ParseBool(skipVerify)
		if err != nil {
			return ErrInvalidSkipVerify
		}
		tlsConfig.Insecure = insecure
	}

	cacert := getVaultParam(boxConfig, api.EnvVaultCACert)
	tlsConfig.CACert = cacert

	capath := getVaultParam(boxConfig, api.EnvVaultCAPath)
	tlsConfig.CAPath = capath

	clientcert := getVaultParam(boxConfig, api.EnvVaultClientCert)
	tlsConfig.ClientCert = clientcert

	clientkey := getVaultParam(boxConfig, api.EnvVaultClientKey)
	tlsConfig.ClientKey = clientkey

	tlsserverName := getVaultParam(boxConfig, api.EnvVaultTLSServerName)
	tlsConfig.TLSServerName = tlsserverName

	return config.ConfigureTLS(&tlsConfig)
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
