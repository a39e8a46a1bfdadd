// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package tank

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type fakeS3 struct {
	objects map[string][]byte
	headErr error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := ioutil.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	data, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

var _ = Describe("S3Archive", func() {
	var (
		ctx  context.Context
		tdir string
		path string
		fs3  *fakeS3
		a    *S3Archive
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		tdir, err = ioutil.TempDir("", "tank_archive_test")
		Expect(err).ToNot(HaveOccurred())

		path = filepath.Join(tdir, "0.tnk")
		Expect(ioutil.WriteFile(path, []byte("tank data"), 0644)).To(Succeed())

		fs3 = &fakeS3{objects: make(map[string][]byte)}
		a = &S3Archive{Client: fs3, Bucket: "bucket", Prefix: "station/tanks"}
	})

	AfterEach(func() {
		os.RemoveAll(tdir)
	})

	It("uploads under the prefixed key", func() {
		Expect(a.Upload(ctx, "0.tnk", path)).To(Succeed())
		Expect(fs3.objects).To(HaveKeyWithValue("bucket/station/tanks/0.tnk", []byte("tank data")))
	})

	It("uses the bare name without a prefix", func() {
		a.Prefix = ""
		Expect(a.Key("0.tnk")).To(Equal("0.tnk"))
	})

	It("does not replace an identical object", func() {
		fs3.objects["bucket/station/tanks/0.tnk"] = []byte("same size")
		Expect(a.Upload(ctx, "0.tnk", path)).To(Succeed())
		Expect(fs3.objects["bucket/station/tanks/0.tnk"]).To(Equal([]byte("same size")))
	})

	It("replaces an object of a different size", func() {
		fs3.objects["bucket/station/tanks/0.tnk"] = []byte("old")
		Expect(a.Upload(ctx, "0.tnk", path)).To(Succeed())
		Expect(fs3.objects["bucket/station/tanks/0.tnk"]).To(Equal([]byte("tank data")))
	})

	It("returns lookup errors", func() {
		fs3.headErr = errors.New("access denied")
		Expect(a.Upload(ctx, "0.tnk", path)).To(MatchError(ContainSubstring("access denied")))
	})

	It("returns an error for a missing file", func() {
		Expect(a.Upload(ctx, "1.tnk", filepath.Join(tdir, "1.tnk"))).ToNot(Succeed())
	})
})
