// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tank

import (
	"context"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"
)

// Archive stores finished tank files off-host.
type Archive interface {
	// Upload stores the file at path under name.
	Upload(ctx context.Context, name, path string) error
}

// S3Client is the subset of the S3 API that S3Archive uses. *s3.Client
// satisfies it.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

var _ S3Client = (*s3.Client)(nil)

// S3Archive uploads tank files to an S3 (or S3-compatible) bucket.
type S3Archive struct {
	Client S3Client
	Bucket string
	// Prefix, if not empty, is prepended to each object key.
	Prefix string
}

var _ Archive = (*S3Archive)(nil)

// Key returns the object key used for name.
func (a *S3Archive) Key(name string) string {
	if a.Prefix == "" {
		return name
	}
	return path.Join(a.Prefix, name)
}

// Upload implements Archive.
//
// If an object of the same size already exists under the key, Upload does
// nothing.
func (a *S3Archive) Upload(ctx context.Context, name, filePath string) error {
	fd, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer func() {
		_ = fd.Close()
	}()

	st, err := fd.Stat()
	if err != nil {
		return err
	}

	key := a.Key(name)
	head, err := a.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.Bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		if aws.ToInt64(head.ContentLength) == st.Size() {
			return nil
		}
	case !isS3NotFound(err):
		return errors.Wrapf(err, "checking s3://%s/%s", a.Bucket, key)
	}

	if _, err := a.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.Bucket),
		Key:           aws.String(key),
		Body:          fd,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String("application/octet-stream"),
	}); err != nil {
		return errors.Wrapf(err, "uploading s3://%s/%s", a.Bucket, key)
	}
	return nil
}

// isS3NotFound returns true if err indicates that an S3 object does not
// exist.
func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
