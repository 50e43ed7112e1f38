package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 archives run bodies as markdown objects.
type S3 struct {
	client s3API
	bucket string
	prefix string
}

// NewS3 creates an S3 archive using the default AWS credential chain.
func NewS3(ctx context.Context, cfg Config) (*S3, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3{client: s3.NewFromConfig(awsCfg), bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Archive uploads body and returns its s3:// location.
func (a *S3) Archive(ctx context.Context, issueID, runID string, body []byte) (string, error) {
	key := Key(a.prefix, issueID, runID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/markdown; charset=utf-8"),
		Metadata: map[string]string{
			"issue-id": issueID,
			"run-id":   runID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return "s3://" + a.bucket + "/" + key, nil
}
