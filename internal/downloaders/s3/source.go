package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rawst/internal/engine"
	"github.com/tanq16/rawst/internal/utils"
)

type objectAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source reads an S3 object by byte range.
type Source struct {
	bucket string
	key    string
	client objectAPI
}

func NewSource(ctx context.Context, link, profile string) (*Source, error) {
	bucket, key, err := ParseS3URL(link)
	if err != nil {
		return nil, err
	}
	opts := []func(*config.LoadOptions) error{config.WithRetryMode("adaptive")}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	log.Debug().Str("op", "s3/source").Msgf("Using s3://%s/%s", bucket, key)
	return newSourceWithClient(bucket, key, s3.NewFromConfig(cfg)), nil
}

func newSourceWithClient(bucket, key string, client objectAPI) *Source {
	return &Source{bucket: bucket, key: key, client: client}
}

func (s *Source) Stat(ctx context.Context) (engine.RemoteInfo, error) {
	headObj, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return engine.RemoteInfo{}, mapError(err)
	}
	size := int64(-1)
	if headObj.ContentLength != nil {
		size = *headObj.ContentLength
	}
	return engine.RemoteInfo{
		Size:          size,
		Filename:      path.Base(s.key),
		AcceptsRanges: true,
	}, nil
}

func (s *Source) OpenRange(ctx context.Context, r engine.ChunkRange) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(r.Header()),
	})
	if err != nil {
		return nil, mapError(err)
	}
	if result.ContentRange == nil {
		result.Body.Close()
		return nil, engine.ErrRangeIgnored
	}
	start, end, _, err := utils.ParseContentRange(*result.ContentRange)
	if err != nil {
		result.Body.Close()
		return nil, err
	}
	if start != r.Start || end != r.End {
		result.Body.Close()
		return nil, fmt.Errorf("%w: asked for %d-%d, got %d-%d", engine.ErrRangeMismatch, r.Start, r.End, start, end)
	}
	return result.Body, nil
}

func ParseS3URL(url string) (string, string, error) {
	url = strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(url, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("%w: missing bucket", utils.ErrInvalidURL)
	}
	if len(parts) < 2 || parts[1] == "" || strings.HasSuffix(parts[1], "/") {
		return "", "", fmt.Errorf("%w: s3 URL must name an object", utils.ErrInvalidURL)
	}
	return parts[0], parts[1], nil
}

func mapError(err error) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %v", engine.ErrNotFound, err)
	}
	return err
}
