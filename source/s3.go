package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
)

// Options configures FromS3. Region defaults to the SDK's own default
// resolution chain when empty.
type Options struct {
	Region string
}

// OptionFunc mutates Options; passed as a variadic functional-option
// argument to FromS3.
type OptionFunc func(*Options)

// WithRegion overrides the region used to resolve the S3 client.
func WithRegion(region string) OptionFunc {
	return func(o *Options) { o.Region = region }
}

// FromS3 streams an S3 object's body, detecting gzip content the same
// way Open does for local files.
func FromS3(ctx context.Context, bucket, key string, optFns ...OptionFunc) (io.ReadCloser, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	var cfgOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("source: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("source: get object s3://%s/%s: %w", bucket, key, err)
	}

	if strings.HasSuffix(strings.ToLower(key), ".gz") {
		return wrapGzipBody(out.Body)
	}
	return detectGzipBody(out.Body)
}

// detectGzipBody peeks at the first two bytes of an S3 object body to
// decide whether it is gzip-compressed.
func detectGzipBody(body io.ReadCloser) (io.ReadCloser, error) {
	peek := make([]byte, 2)
	n, err := io.ReadFull(body, peek)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		body.Close()
		return nil, err
	}
	rest := io.MultiReader(bytes.NewReader(peek[:n]), body)
	if n == 2 && bytes.Equal(peek, gzipMagic) {
		return wrapGzipBody(readCloser{Reader: rest, Closer: body})
	}
	return readCloser{Reader: rest, Closer: body}, nil
}

func wrapGzipBody(body io.ReadCloser) (io.ReadCloser, error) {
	gz, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, err
	}
	return &gzipCloser{gz: gz, under: body}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
