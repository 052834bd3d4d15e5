package credentials

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/credentials/ec2rolecreds"
)

// AWSCredentials hands out credentials, refreshing them once expired.
type AWSCredentials interface {
	Get() (*credentials.Credentials, error)
}

type awsCred struct {
	creds *credentials.Credentials
}

// These variables are helpful in testing to stub the EC2 probe
var (
	ec2MetadataURL = "http://169.254.169.254/latest/meta-data/"
	probeTimeout   = 10 * time.Second
)

// NewAWSCredentials returns static credentials if id and secret are set.
// Otherwise it chains the environment, the shared credentials file and, when
// running on EC2, the instance role.
func NewAWSCredentials(id, secret, token string) (AWSCredentials, error) {
	var creds *credentials.Credentials
	if id != "" && secret != "" {
		creds = credentials.NewStaticCredentials(id, secret, token)
		if _, err := creds.Get(); err != nil {
			return nil, err
		}
	} else {
		providers := []credentials.Provider{
			&credentials.EnvProvider{},
			&credentials.SharedCredentialsProvider{},
		}
		if onEC2() {
			providers = append(providers, &ec2rolecreds.EC2RoleProvider{})
		}
		creds = credentials.NewChainCredentials(providers)
		if _, err := creds.Get(); err != nil {
			return nil, err
		}
	}
	return &awsCred{creds}, nil
}

func onEC2() bool {
	client := http.Client{Timeout: probeTimeout}
	res, err := client.Get(ec2MetadataURL)
	if err != nil {
		return false
	}
	res.Body.Close()
	return true
}

func (a *awsCred) Get() (*credentials.Credentials, error) {
	if a.creds.IsExpired() {
		// Refresh the credentials
		_, err := a.creds.Get()
		if err != nil {
			return nil, err
		}
	}
	return a.creds, nil
}
