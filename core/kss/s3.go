package kss

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/relabs-tech/carlot/core/logger"
)

// S3Configuration contains the configuration for the AWS S3 KSS service
type S3Configuration struct {
	// AccessID and AccessKey are optional. Without them, the default credential chain is used.
	AccessID      string
	AccessKey     string
	AWSBucketName string
	AWSRegion     string
	// KeyPrefix is prepended to all keys
	KeyPrefix string
	// Endpoint overrides the S3 endpoint, e.g. for minio. Implies path style addressing.
	Endpoint string
}

// S3 is the implementation of the KSSDriver for AWS S3
type S3 struct {
	client      *s3.Client
	presign     *s3.PresignClient
	bucket      string
	baseKeyName string
}

// NewS3 returns a new S3
func NewS3(ctx context.Context, kssConfig S3Configuration) (*S3, error) {
	if kssConfig.AWSBucketName == "" {
		return nil, fmt.Errorf("AWSBucketName must not be empty")
	}

	options := []func(*config.LoadOptions) error{config.WithRegion(kssConfig.AWSRegion)}
	if kssConfig.AccessID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(kssConfig.AccessID, kssConfig.AccessKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if kssConfig.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(kssConfig.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Default().Debugln("KSS S3 enabled")
	return &S3{
		client:      client,
		presign:     s3.NewPresignClient(client),
		bucket:      kssConfig.AWSBucketName,
		baseKeyName: kssConfig.KeyPrefix,
	}, nil
}

// Delete deletes the key file
func (s *S3) Delete(ctx context.Context, key string) error {
	logger.FromContext(ctx).Debugln("deleting", s.baseKeyName+key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.baseKeyName + key),
	})
	if err != nil {
		return fmt.Errorf("cannot delete %s: %w", s.baseKeyName+key, err)
	}
	return nil
}

// DeleteAllWithPrefix deletes all keys starting with prefix
func (s *S3) DeleteAllWithPrefix(ctx context.Context, prefix string) error {
	keys, err := s.ListAllWithPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	// DeleteObjects takes at most 1000 keys
	for start := 0; start < len(keys); start += 1000 {
		end := start + 1000
		if end > len(keys) {
			end = len(keys)
		}
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}
		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: true},
		})
		if err != nil {
			return fmt.Errorf("cannot delete objects with prefix %s: %w", s.baseKeyName+prefix, err)
		}
	}
	logger.FromContext(ctx).Debugf("deleted %d objects with prefix %s", len(keys), s.baseKeyName+prefix)
	return nil
}

// GetPreSignedURL returns a pre-signed URL that can be used with the given method until expiry time is passed
func (s *S3) GetPreSignedURL(ctx context.Context, method Method, key string, expireIn time.Duration) (URL string, err error) {
	if err := ValidKey(key); err != nil {
		return "", err
	}
	var resp *v4.PresignedHTTPRequest
	switch method {
	case Get:
		resp, err = s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.baseKeyName + key),
		}, s3.WithPresignExpires(expireIn))
	case Put:
		resp, err = s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.baseKeyName + key),
		}, s3.WithPresignExpires(expireIn))
	default:
		err = fmt.Errorf("%s unsupported method to presign '%s'", method, s.baseKeyName+key)
	}
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

// ListAllWithPrefix lists all keys with prefix. The returned keys include the key prefix of the driver.
func (s *S3) ListAllWithPrefix(ctx context.Context, prefix string) (keys []string, err error) {
	var continuationToken *string
	for {
		resp, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.baseKeyName + prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("cannot list objects of %s: %w", s.bucket, err)
		}
		for _, item := range resp.Contents {
			keys = append(keys, *item.Key)
		}
		continuationToken = resp.NextContinuationToken
		if resp.NextContinuationToken == nil {
			break
		}
	}
	return keys, nil
}
