package k8s

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/libopenstorage/lockbox"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	Name = "k8s"
	// K8sClientKey passes a ready kubernetes.Interface instead of building one.
	K8sClientKey = "K8S_CLIENT"
	// KubeconfigKey is the kubeconfig file to use. Empty means in-cluster.
	KubeconfigKey = "KUBECONFIG"
	// SecretNamespaceKey is the namespace holding the item secrets.
	SecretNamespaceKey = "K8S_NAMESPACE"
	DefaultNamespace   = "default"

	secretPrefix = "lockbox-"
	dataKey      = "data"

	labelManagedBy = "app.kubernetes.io/managed-by"

	annotationService        = "lockbox.libopenstorage.org/service"
	annotationAccount        = "lockbox.libopenstorage.org/account"
	annotationAccessGroup    = "lockbox.libopenstorage.org/access-group"
	annotationAccessibility  = "lockbox.libopenstorage.org/accessibility"
	annotationSynchronizable = "lockbox.libopenstorage.org/synchronizable"
)

var (
	ErrInvalidClientProvided = errors.New("K8S_CLIENT is not a kubernetes.Interface")
)

type k8sBox struct {
	client    kubernetes.Interface
	namespace string
}

// These variables are helpful in testing to stub method call from packages
var (
	inClusterConfig = rest.InClusterConfig
)

// New returns a Backend storing one Secret per item.
func New(
	boxConfig map[string]interface{},
) (lockbox.Backend, error) {
	namespace := getParam(boxConfig, SecretNamespaceKey)
	if namespace == "" {
		namespace = DefaultNamespace
	}

	if v, ok := boxConfig[K8sClientKey]; ok {
		client, ok := v.(kubernetes.Interface)
		if !ok {
			return nil, ErrInvalidClientProvided
		}
		return &k8sBox{client: client, namespace: namespace}, nil
	}

	var (
		config *rest.Config
		err    error
	)
	if kubeconfig := getParam(boxConfig, KubeconfigKey); kubeconfig != "" {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		config, err = inClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load kubernetes config: %w", err)
	}
	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}
	return &k8sBox{client: client, namespace: namespace}, nil
}

func (k *k8sBox) String() string {
	return Name
}

// SecretName returns the name of the Secret holding the item for q.
func SecretName(q lockbox.Query) string {
	sum := sha256.Sum256([]byte(q.Path()))
	return secretPrefix + hex.EncodeToString(sum[:])
}

func (k *k8sBox) Lookup(ctx context.Context, q lockbox.Query) ([]byte, error) {
	secret, err := k.client.CoreV1().Secrets(k.namespace).Get(ctx, SecretName(q), metav1.GetOptions{})
	if err != nil {
		return nil, convertErr(err)
	}
	data, ok := secret.Data[dataKey]
	if !ok {
		return nil, fmt.Errorf("secret %s/%s has no %s key", k.namespace, secret.Name, dataKey)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (k *k8sBox) Insert(ctx context.Context, q lockbox.Query, data []byte) error {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:        SecretName(q),
			Namespace:   k.namespace,
			Labels:      map[string]string{labelManagedBy: "lockbox"},
			Annotations: annotations(q),
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{dataKey: data},
	}
	_, err := k.client.CoreV1().Secrets(k.namespace).Create(ctx, secret, metav1.CreateOptions{})
	return convertErr(err)
}

func (k *k8sBox) Update(ctx context.Context, q lockbox.Query, data []byte) error {
	secrets := k.client.CoreV1().Secrets(k.namespace)
	secret, err := secrets.Get(ctx, SecretName(q), metav1.GetOptions{})
	if err != nil {
		return convertErr(err)
	}
	secret.Annotations = annotations(q)
	secret.Data = map[string][]byte{dataKey: data}
	_, err = secrets.Update(ctx, secret, metav1.UpdateOptions{})
	return convertErr(err)
}

func (k *k8sBox) Delete(ctx context.Context, q lockbox.Query) error {
	err := k.client.CoreV1().Secrets(k.namespace).Delete(ctx, SecretName(q), metav1.DeleteOptions{})
	return convertErr(err)
}

func annotations(q lockbox.Query) map[string]string {
	return map[string]string{
		annotationService:        q.Service,
		annotationAccount:        q.Account,
		annotationAccessGroup:    q.AccessGroup,
		annotationAccessibility:  q.Accessibility.String(),
		annotationSynchronizable: strconv.FormatBool(q.Synchronizable),
	}
}

func convertErr(err error) error {
	switch {
	case err == nil:
		return nil
	case apierrors.IsNotFound(err):
		return lockbox.ErrItemNotFound
	case apierrors.IsAlreadyExists(err):
		return lockbox.ErrDuplicateItem
	case apierrors.IsForbidden(err), apierrors.IsUnauthorized(err):
		return fmt.Errorf("%w: %v", lockbox.ErrInteractionNotAllowed, err)
	default:
		return err
	}
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
