package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	input   *s3.GetObjectInput
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.input = in
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		bucket  string
		key     string
		wantErr bool
	}{
		{name: "virtual hosted", url: "https://treko-media.s3.amazonaws.com/headshots/42/a.jpg", bucket: "treko-media", key: "headshots/42/a.jpg"},
		{name: "regional host", url: "https://media.s3.eu-west-1.amazonaws.com/x.png", bucket: "media", key: "x.png"},
		{name: "escaped key", url: "https://media.s3.amazonaws.com/a%20b.png", bucket: "media", key: "a b.png"},
		{name: "no key", url: "https://media.s3.amazonaws.com/", wantErr: true},
		{name: "no host", url: "/only/a/path.png", wantErr: true},
		{name: "garbage", url: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseObjectURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestS3Fetcher_Fetch(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{"media/headshots/1.png": []byte("png-bytes")}}
	f := NewS3FetcherWithClient(client, zaptest.NewLogger(t))

	data, err := f.Fetch(context.Background(), "https://media.s3.amazonaws.com/headshots/1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "media", aws.StringValue(client.input.Bucket))
	assert.Equal(t, "headshots/1.png", aws.StringValue(client.input.Key))

	_, err = f.Fetch(context.Background(), "https://media.s3.amazonaws.com/missing.png")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "https://media.s3.amazonaws.com/")
	assert.Error(t, err)
}

func TestS3Fetcher_RejectsOversizedObject(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{"media/big.png": make([]byte, MaxObjectBytes+1)}}
	f := NewS3FetcherWithClient(client, zaptest.NewLogger(t))

	_, err := f.Fetch(context.Background(), "https://media.s3.amazonaws.com/big.png")
	assert.ErrorContains(t, err, "exceeds")
}

func TestNewS3Fetcher(t *testing.T) {
	f, err := NewS3Fetcher(Config{Region: "us-east-1", AccessKeyID: "id", SecretAccessKey: "secret", Endpoint: "http://localhost:9000"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotNil(t, f.client)
}
