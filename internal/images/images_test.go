package images

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func writeCapture(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("jpeg-bytes"), 0o644))
	return p
}

func TestNewS3Uploader_AppliesConfig(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		assert.NotNil(t, lo.Credentials, "static credentials expected")
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &fakePutter{}
	}

	u, err := NewS3Uploader(context.Background(), S3Config{
		Region:    "eu-central-1",
		Bucket:    "captures",
		Prefix:    "/scans/",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "scans/e-1.jpg", u.Key("e-1", "/tmp/IMG.JPG"))
}

func TestNewS3Uploader_Errors(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), S3Config{})
	assert.Error(t, err)

	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no profile")
	}
	_, err = NewS3Uploader(context.Background(), S3Config{Bucket: "b"})
	assert.ErrorContains(t, err, "load aws config: no profile")
}

func TestS3Uploader_Upload(t *testing.T) {
	fp := &fakePutter{}
	u := &S3Uploader{client: fp, bucket: "captures", prefix: "scans"}

	ref, err := u.Upload(context.Background(), "e-1", writeCapture(t, "can.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "s3://captures/scans/e-1.jpg", ref)
	assert.Equal(t, "captures", fp.bucket)
	assert.Equal(t, "scans/e-1.jpg", fp.key)
	assert.Equal(t, "image/jpeg", fp.contentType)
	assert.Equal(t, []byte("jpeg-bytes"), fp.body)
}

func TestS3Uploader_UploadErrors(t *testing.T) {
	u := &S3Uploader{client: &fakePutter{err: errors.New("throttled")}, bucket: "b"}

	_, err := u.Upload(context.Background(), "e-1", writeCapture(t, "can.png"))
	assert.ErrorContains(t, err, "throttled")

	_, err = u.Upload(context.Background(), "e-1", "/does/not/exist.jpg")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestDirUploader(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	u := NewDirUploader(root)

	ref, err := u.Upload(context.Background(), "e-7", writeCapture(t, "jar.PNG"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "e-7.png"), ref)

	data, err := os.ReadFile(ref)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = u.Upload(context.Background(), "e-8", filepath.Join(root, "missing.jpg"))
	assert.ErrorIs(t, err, ErrNoImage)
}
