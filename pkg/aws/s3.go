package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImagePresigner issues presigned PUT URLs so clients upload product images directly to S3.
type ImagePresigner struct {
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
}

func NewImagePresigner(cfg sdkaws.Config, bucket string, expiry time.Duration) *ImagePresigner {
	return &ImagePresigner{
		presigner: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket:    bucket,
		expiry:    expiry,
	}
}

// PresignPut returns the URL, the headers the client must send, and the expiry.
func (p *ImagePresigner) PresignPut(ctx context.Context, key, contentType string) (string, map[string]string, time.Duration, error) {
	input := &s3.PutObjectInput{
		Bucket: sdkaws.String(p.bucket),
		Key:    sdkaws.String(key),
	}
	if contentType != "" {
		input.ContentType = sdkaws.String(contentType)
	}

	presigned, err := p.presigner.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = p.expiry
	})
	if err != nil {
		return "", nil, 0, fmt.Errorf("failed to presign put object: %w", err)
	}

	headers := make(map[string]string, len(presigned.SignedHeader))
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return presigned.URL, headers, p.expiry, nil
}
