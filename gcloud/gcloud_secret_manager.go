package gcloud

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/libopenstorage/lockbox"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

const (
	// Name of the backend
	Name = "gcloud-secret-manager"
	// GoogleProjectKey is the project owning the secrets
	GoogleProjectKey = "GOOGLE_PROJECT_ID"
	// GoogleCredentialsJSONKey holds service account credentials. Empty means
	// application default credentials.
	GoogleCredentialsJSONKey = "GOOGLE_CREDENTIALS_JSON"
	// GoogleEndpointKey overrides the API endpoint
	GoogleEndpointKey = "GOOGLE_SECRET_MANAGER_ENDPOINT"

	secretPrefix  = "lockbox-"
	latestVersion = "latest"
	// envelopeVersion prefixes the stored payload so an empty item is
	// never an empty payload.
	envelopeVersion = byte(1)

	labelManagedBy      = "managed-by"
	labelAccessibility  = "accessibility"
	labelSynchronizable = "synchronizable"
)

var (
	// ErrGoogleProjectNotProvided is returned when GOOGLE_PROJECT_ID is not provided
	ErrGoogleProjectNotProvided = errors.New("Google Cloud project ID is not provided")
)

type gcloudSecretManager struct {
	sm      *secretmanager.Service
	project string
}

func New(
	boxConfig map[string]interface{},
) (lockbox.Backend, error) {
	project := getParam(boxConfig, GoogleProjectKey)
	if project == "" {
		return nil, ErrGoogleProjectNotProvided
	}

	ctx := context.Background()
	var opts []option.ClientOption
	if creds := getParam(boxConfig, GoogleCredentialsJSONKey); creds != "" {
		c, err := google.CredentialsFromJSON(ctx, []byte(creds), secretmanager.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to parse google credentials: %v", err)
		}
		opts = append(opts, option.WithCredentials(c))
	} else {
		client, err := google.DefaultClient(ctx, secretmanager.CloudPlatformScope)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithHTTPClient(client))
	}
	if endpoint := getParam(boxConfig, GoogleEndpointKey); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	sm, err := secretmanager.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newSecretManager(sm, project), nil
}

func newSecretManager(sm *secretmanager.Service, project string) *gcloudSecretManager {
	return &gcloudSecretManager{sm: sm, project: project}
}

func (g *gcloudSecretManager) String() string {
	return Name
}

// secretID hashes the query path; secret ids only allow letters, digits,
// dashes and underscores.
func secretID(q lockbox.Query) string {
	sum := sha256.Sum256([]byte(q.Path()))
	return secretPrefix + hex.EncodeToString(sum[:])
}

func (g *gcloudSecretManager) secretName(q lockbox.Query) string {
	return "projects/" + g.project + "/secrets/" + secretID(q)
}

func (g *gcloudSecretManager) Lookup(ctx context.Context, q lockbox.Query) ([]byte, error) {
	resp, err := g.sm.Projects.Secrets.Versions.
		Access(g.secretName(q) + "/versions/" + latestVersion).
		Context(ctx).
		Do()
	if err != nil {
		return nil, convertErr(err)
	}
	if resp.Payload == nil {
		return nil, fmt.Errorf("secret %s has no payload", g.secretName(q))
	}
	blob, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", g.secretName(q), err)
	}
	if len(blob) == 0 || blob[0] != envelopeVersion {
		return nil, fmt.Errorf("secret %s was not written by lockbox", g.secretName(q))
	}
	return blob[1:], nil
}

func (g *gcloudSecretManager) Insert(ctx context.Context, q lockbox.Query, data []byte) error {
	secret := &secretmanager.Secret{
		Labels: labels(q),
		Replication: &secretmanager.Replication{
			Automatic: &secretmanager.Automatic{},
		},
	}
	_, err := g.sm.Projects.Secrets.
		Create("projects/"+g.project, secret).
		SecretId(secretID(q)).
		Context(ctx).
		Do()
	if err != nil {
		return convertErr(err)
	}
	if err := g.addVersion(ctx, q, data); err != nil {
		// A secret without versions would read as missing but block inserts.
		_, _ = g.sm.Projects.Secrets.Delete(g.secretName(q)).Context(ctx).Do()
		return err
	}
	return nil
}

func (g *gcloudSecretManager) Update(ctx context.Context, q lockbox.Query, data []byte) error {
	if err := g.addVersion(ctx, q, data); err != nil {
		return err
	}
	_, err := g.sm.Projects.Secrets.
		Patch(g.secretName(q), &secretmanager.Secret{Labels: labels(q)}).
		UpdateMask("labels").
		Context(ctx).
		Do()
	return convertErr(err)
}

func (g *gcloudSecretManager) Delete(ctx context.Context, q lockbox.Query) error {
	_, err := g.sm.Projects.Secrets.Delete(g.secretName(q)).Context(ctx).Do()
	return convertErr(err)
}

func (g *gcloudSecretManager) addVersion(ctx context.Context, q lockbox.Query, data []byte) error {
	blob := append([]byte{envelopeVersion}, data...)
	req := &secretmanager.AddSecretVersionRequest{
		Payload: &secretmanager.SecretPayload{
			Data: base64.StdEncoding.EncodeToString(blob),
		},
	}
	_, err := g.sm.Projects.Secrets.AddVersion(g.secretName(q), req).Context(ctx).Do()
	return convertErr(err)
}

func labels(q lockbox.Query) map[string]string {
	return map[string]string{
		labelManagedBy:      "lockbox",
		labelAccessibility:  q.Accessibility.String(),
		labelSynchronizable: strconv.FormatBool(q.Synchronizable),
	}
}

func convertErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return lockbox.ErrItemNotFound
		case http.StatusConflict:
			return lockbox.ErrDuplicateItem
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, err)
		}
	}
	return err
}

func getParam(boxConfig map[string]interface{}, name string) string {
	if v, exists := boxConfig[name]; exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return os.Getenv(name)
}

func init() {
	if err := lockbox.Register(Name, New); err != nil {
		panic(err.Error())
	}
}
