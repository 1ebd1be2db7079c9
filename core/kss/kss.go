/*
Package kss stores large files outside of the database, for carlot the listing images.

Clients never upload through the API. They ask for a pre-signed URL and talk to the
storage directly. There are two drivers: a local filesystem, which serves the signed
URLs itself under /kss/filesystem, and AWS S3.
*/
package kss

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/carlot/core/logger"
)

// Method is a HTTP method a URL can be pre-signed for
type Method string

// supported methods
const (
	Get Method = "GET"
	Put Method = "PUT"
)

// Driver defines the interface for the KSS service
type Driver interface {
	GetPreSignedURL(ctx context.Context, method Method, key string, expireIn time.Duration) (URL string, err error)
	Delete(ctx context.Context, key string) error
	DeleteAllWithPrefix(ctx context.Context, prefix string) error
}

// DriverType represents the different type of KSS Drivers
type DriverType string

// DriverTypeLocal is the local filesystem implementation of the KSS service
const DriverTypeLocal DriverType = "local"

// DriverTypeAWSS3 is the AWS S3 implementation of the KSS service
const DriverTypeAWSS3 DriverType = "s3"

// Configuration contains the configuration for the KSS service
type Configuration struct {
	DriverType         DriverType
	LocalConfiguration *LocalConfiguration
	S3Configuration    *S3Configuration
}

// New returns the driver selected by config. The local driver registers its route on router
// and signs URLs for publicURL.
func New(router *mux.Router, config Configuration, publicURL string) (Driver, error) {
	logger.Default().Infoln("kss in use with driver", config.DriverType)
	switch config.DriverType {
	case DriverTypeLocal:
		if config.LocalConfiguration == nil {
			return nil, fmt.Errorf("kss expecting a configuration for local KSS, but got nothing")
		}
		u, err := url.Parse(publicURL)
		if err != nil {
			return nil, fmt.Errorf("cannot parse url %s: %w", publicURL, err)
		}
		return NewLocalFilesystem(router, *config.LocalConfiguration, *u)
	case DriverTypeAWSS3:
		if config.S3Configuration == nil {
			return nil, fmt.Errorf("kss expecting a configuration for S3 KSS, but got nothing")
		}
		return NewS3(context.Background(), *config.S3Configuration)
	}
	return nil, fmt.Errorf("unknown kss driver type '%s'", config.DriverType)
}

// ValidKey returns an error if key cannot be used as storage key
func ValidKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("key must not be empty")
	case strings.Contains(key, ".."):
		return fmt.Errorf("'..' is not allowed in a key")
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("key must not start with '/'")
	}
	return nil
}
