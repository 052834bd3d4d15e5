package utils

import (
	"errors"
	"fmt"
	"os"
)

const (
	// AwsAccessKey corresponds to AWS credential AWS_ACCESS_KEY_ID
	AwsAccessKey = "AWS_ACCESS_KEY_ID"
	// AwsSecretAccessKey corresponds to AWS credential AWS_SECRET_ACCESS_KEY
	AwsSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	// AwsTokenKey corresponds to AWS credential AWS_SECRET_TOKEN_KEY
	AwsTokenKey = "AWS_SECRET_TOKEN_KEY"
	// AwsRegionKey defines the AWS region
	AwsRegionKey = "AWS_REGION"
	// AwsEndpointKey overrides the service endpoint, e.g. for a local emulator
	AwsEndpointKey = "AWS_ENDPOINT"
)

var (
	// ErrAWSRegionNotProvided is returned when region is not provided.
	ErrAWSRegionNotProvided = errors.New("AWS Region not provided. Cannot perform secret operations.")
	// ErrAWSCredsNotProvided is returned when aws credentials are not provided
	ErrAWSCredsNotProvided = errors.New("aws credentials not provided")
)

// AuthKeys returns the static access key, secret key and session token set
// in params. Missing keys are returned empty.
func AuthKeys(params map[string]interface{}) (string, string, string, error) {
	accessKey, err := getAuthKey(AwsAccessKey, params)
	if err != nil {
		return "", "", "", err
	}

	secretKey, err := getAuthKey(AwsSecretAccessKey, params)
	if err != nil {
		return "", "", "", err
	}

	secretToken, err := getAuthKey(AwsTokenKey, params)
	if err != nil {
		return "", "", "", err
	}

	return accessKey, secretKey, secretToken, nil
}

// Region returns the region set in params, falling back to the AWS_REGION
// environment variable.
func Region(params map[string]interface{}) (string, error) {
	region, err := getAuthKey(AwsRegionKey, params)
	if err != nil {
		return "", err
	}
	if region == "" {
		region = os.Getenv(AwsRegionKey)
	}
	if region == "" {
		return "", ErrAWSRegionNotProvided
	}
	return region, nil
}

// Param returns the string value of key in params, or the environment
// variable of the same name.
func Param(key string, params map[string]interface{}) (string, error) {
	value, err := getAuthKey(key, params)
	if err != nil || value != "" {
		return value, err
	}
	return os.Getenv(key), nil
}

func getAuthKey(key string, params map[string]interface{}) (string, error) {
	val, ok := params[key]
	valueStr := ""
	if ok {
		valueStr, ok = val.(string)
		if !ok {
			return "", fmt.Errorf("Authentication error. Invalid value for %v", key)
		}
	}
	return valueStr, nil
}
