// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"os"

	"github.com/danjacques/gotracebuf/config"
	"github.com/danjacques/gotracebuf/convert"
	"github.com/danjacques/gotracebuf/ledger"
	"github.com/danjacques/gotracebuf/support/logging"
	"github.com/danjacques/gotracebuf/tank"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

func newConverter(cfg *config.ConvertConfig, logger logging.L) *convert.Converter {
	return &convert.Converter{
		Logger:            logger,
		MaxSamples:        cfg.MaxSamples,
		MinSampleInterval: cfg.MinSampleInterval,
	}
}

// newBatcher builds a Batcher from cfg. The returned function releases its
// resources.
func newBatcher(cfg *config.Config, logger logging.L) (*tank.Batcher, func(), error) {
	b := tank.Batcher{
		Logger:     logger,
		Converter:  newConverter(&cfg.Convert, logger),
		StreamPath: cfg.Tank.Stream,
		TankDir:    cfg.Tank.Dir,
		BatchSize:  cfg.Tank.BatchSize,
	}

	switch cfg.Tank.Remuxer {
	case config.RemuxerArchive:
		b.Remuxer = &tank.ArchiveRemuxer{Compression: cfg.Tank.Compression, Level: -1}
	default:
		b.Remuxer = &tank.CommandRemuxer{Command: cfg.Tank.RemuxCommand}
	}

	if cfg.Tank.S3.Enabled() {
		b.Archive = &tank.S3Archive{
			Client: newS3Client(&cfg.Tank.S3),
			Bucket: cfg.Tank.S3.Bucket,
			Prefix: cfg.Tank.S3.Prefix,
		}
	}

	closer := func() {}
	if cfg.Tank.LedgerDir != "" {
		l, err := ledger.Open(ledger.Options{
			Dir:    cfg.Tank.LedgerDir,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		b.Ledger = l
		closer = func() {
			if err := l.Close(); err != nil {
				logger.Warnf("Could not close ledger: %s", err)
			}
		}
	}
	return &b, closer, nil
}

func newS3Client(cfg *config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  aws.NewCredentialsCache(aws.CredentialsProviderFunc(environmentCredentials)),
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// environmentCredentials reads S3 credentials from the standard AWS
// environment variables.
func environmentCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}
