package dcos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/libopenstorage/lockbox"
	api "github.com/portworx/dcos-secrets"
)

// Keys for the config to initialize the DC/OS secrets client
const (
	EnvSecretsUsername   = "DCOS_SECRETS_USERNAME"
	EnvSecretsPassword   = "DCOS_SECRETS_PASSWORD"
	EnvSecretsCACertFile = "DCOS_SECRETS_CA_CERT_FILE"
	EnvDCOSClusterURL    = "DCOS_CLUSTER_URL"
	// EnvSecretStore selects the secret store. Empty means the default store.
	EnvSecretStore = "DCOS_SECRET_STORE"
	// EnvBasePath is prepended to every secret path.
	EnvBasePath = "DCOS_SECRETS_BASE_PATH"
)

const (
	// Name name of the backend
	Name = "dcos"
	// DefaultBasePath is used when EnvBasePath is not set
	DefaultBasePath = "lockbox/"
)

var (
	// ErrMissingCredentials returned when either of the creds are missing
	ErrMissingCredentials = errors.New("Username and password are required to authenticate")
)

var (
	// This is used for testing so that in tests we can override the newClient function
	// to have custom behavior.
	newClient = newSecretsClient
)

type dcosBox struct {
	mu       sync.Mutex
	client   api.DCOSSecrets
	config   map[string]interface{}
	store    string
	basePath string
}

// New returns a Backend storing one DC/OS secret per item.
func New(
	boxConfig map[string]interface{},
) (lockbox.Backend, error) {
	client, err := newClient(boxConfig)
	if err != nil {
		return nil, err
	}
	basePath := getConfigParam(boxConfig, EnvBasePath)
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &dcosBox{
		client:   client,
		config:   boxConfig,
		store:    getConfigParam(boxConfig, EnvSecretStore),
		basePath: strings.TrimPrefix(strings.TrimSuffix(basePath, "/")+"/", "/"),
	}, nil
}

func newSecretsClient(
	boxConfig map[string]interface{},
) (api.DCOSSecrets, error) {
	clientConfig := getClientConfig(boxConfig)
	token, err := getAuthToken(clientConfig, boxConfig)
	if err != nil {
		return nil, err
	}
	clientConfig.ACSToken = token
	return api.NewClient(clientConfig)
}

func getClientConfig(boxConfig map[string]interface{}) api.Config {
	config := api.NewDefaultConfig()

	url := getConfigParam(boxConfig, EnvDCOSClusterURL)
	if url != "" {
		config.ClusterURL = url
	}

	caCertFile := getConfigParam(boxConfig, EnvSecretsCACertFile)
	if caCertFile != "" {
		config.CACertFile = caCertFile
	} else {
		config.Insecure = true
	}

	return config
}

func getAuthToken(clientConfig api.Config, boxConfig map[string]interface{}) (string, error) {
	username := getConfigParam(boxConfig, EnvSecretsUsername)
	if username == "" {
		return "", ErrMissingCredentials
	}
	password := getConfigParam(boxConfig, EnvSecretsPassword)
	if password == "" {
		return "", ErrMissingCredentials
	}

	tokenConfig := api.DefaultTokenConfig()
	tokenConfig.Username = username
	tokenConfig.Password = password
	tokenConfig.Config = clientConfig

	token, err := api.GenerateACSToken(tokenConfig)
	if err != nil {
		return "", err
	} else if token == "" {
		return "", fmt.Errorf("Error generating authentication token")
	}
	return token, nil
}

func (d *dcosBox) String() string {
	return Name
}

func (d *dcosBox) secretPath(q lockbox.Query) string {
	return d.basePath + q.Path()
}

func (d *dcosBox) Lookup(ctx context.Context, q lockbox.Query) ([]byte, error) {
	var secret *api.Secret
	err := d.call(func(client api.DCOSSecrets) error {
		var err error
		secret, err = client.GetSecret(d.store, d.secretPath(q))
		return err
	})
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, lockbox.ErrItemNotFound
	}

	record := &lockbox.Record{}
	if err := json.Unmarshal([]byte(secret.Value), record); err != nil {
		return nil, fmt.Errorf("secret %s was not written by lockbox: %v", d.secretPath(q), err)
	}
	if record.Data == nil {
		return []byte{}, nil
	}
	return record.Data, nil
}

func (d *dcosBox) Insert(ctx context.Context, q lockbox.Query, data []byte) error {
	secret, err := newSecret(q, data)
	if err != nil {
		return err
	}
	return d.call(func(client api.DCOSSecrets) error {
		return client.CreateSecret(d.store, d.secretPath(q), secret)
	})
}

func (d *dcosBox) Update(ctx context.Context, q lockbox.Query, data []byte) error {
	secret, err := newSecret(q, data)
	if err != nil {
		return err
	}
	return d.call(func(client api.DCOSSecrets) error {
		return client.UpdateSecret(d.store, d.secretPath(q), secret)
	})
}

func (d *dcosBox) Delete(ctx context.Context, q lockbox.Query) error {
	return d.call(func(client api.DCOSSecrets) error {
		return client.DeleteSecret(d.store, d.secretPath(q))
	})
}

// call runs fn, regenerating the ACS token once if it has expired.
func (d *dcosBox) call(fn func(client api.DCOSSecrets) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := fn(d.client)
	if isTokenExpired(err) {
		client, cErr := newClient(d.config)
		if cErr != nil {
			return fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, cErr)
		}
		d.client = client
		err = fn(d.client)
	}
	return convertErr(err)
}

func newSecret(q lockbox.Query, data []byte) (*api.Secret, error) {
	value, err := json.Marshal(lockbox.NewRecord(q, data))
	if err != nil {
		return nil, err
	}
	return &api.Secret{Value: string(value)}, nil
}

func getConfigParam(boxConfig map[string]interface{}, key string) string {
	if valueInterface, exists := boxConfig[key]; exists {
		if value, ok := valueInterface.(string); ok {
			return value
		}
	}
	return os.Getenv(key)
}

func isTokenExpired(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Unauthorized")
}

// convertErr maps the DC/OS API error messages, which carry no status code.
func convertErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return lockbox.ErrItemNotFound
	case strings.Contains(msg, "already exists"):
		return lockbox.ErrDuplicateItem
	case strings.Contains(msg, "forbidden"), strings.Contains(msg, "unauthorized"):
		return fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, err)
	}
	return err
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
