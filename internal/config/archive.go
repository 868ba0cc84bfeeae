package config

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var errMissingSecret = errors.New("JWT_SECRET not found in environment, config file or archive bucket")

// jwtSecretKey is where the bucket keeps the recovery copy of the JWT secret.
const jwtSecretKey = "config/jwt_secret.txt"

// NewS3Client builds a client for the archive bucket. Static credentials are
// used when configured, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, a ArchiveConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(a.Region),
	}
	if a.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.AccessKey, a.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if a.Endpoint != "" {
			o.BaseEndpoint = aws.String(a.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// fetchJWTSecret fetches the JWT secret from the archive bucket for disaster recovery
func fetchJWTSecret(a ArchiveConfig) string {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewS3Client(ctx, a)
	if err != nil {
		log.Printf("[Config] Failed to configure archive client: %v", err)
		return ""
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(jwtSecretKey),
	})
	if err != nil {
		log.Printf("[Config] Failed to fetch JWT secret from archive: %v", err)
		return ""
	}
	defer result.Body.Close()

	secret, err := io.ReadAll(result.Body)
	if err != nil {
		log.Printf("[Config] Failed to read JWT secret: %v", err)
		return ""
	}
	return strings.TrimSpace(string(secret))
}
