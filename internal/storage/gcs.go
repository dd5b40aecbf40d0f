package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// GCS stores evidence in a Google Cloud Storage bucket. Refs have the form
// gs://<bucket>/<key>.
type GCS struct {
	client     *gcs.Client
	bucket     *gcs.BucketHandle
	bucketName string
}

func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket not set")
	}
	opts := []option.ClientOption{gcs.WithDisabledClientMetrics()}
	if credentialsFile != "" {
		// 服务账号 JSON，只申请读写对象所需的 scope
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("gcs: read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, gcs.ScopeReadWrite)
		if err != nil {
			return nil, fmt.Errorf("gcs: parse credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), bucketName: bucket}, nil
}

func (g *GCS) Put(ctx context.Context, obj Object) (string, error) {
	key := "evidence/" + objectKey(obj.Name)
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = obj.ContentType
	if _, err := w.Write(obj.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize %s: %w", key, err)
	}
	return g.ref(key), nil
}

func (g *GCS) Delete(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, "gs://"+g.bucketName+"/")
	if !ok || key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	err := g.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("gcs: delete %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) ref(key string) string {
	return "gs://" + g.bucketName + "/" + key
}
