package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mager/bandsaw/config"
	"go.uber.org/zap"
)

const presignTTL = 3600 * time.Second

// R2 stores files in a Cloudflare R2 bucket. Audio serving uses presigned
// URLs so browsers fetch directly from the bucket.
type R2 struct {
	cfg          config.Config
	bucket       string
	customDomain string
	client       *s3.Client
	presign      *s3.PresignClient
	log          *zap.SugaredLogger
}

var _ Storage = (*R2)(nil)

func NewR2(cfg config.Config, log *zap.SugaredLogger) (*R2, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &R2{
		cfg:          cfg,
		bucket:       cfg.R2Bucket,
		customDomain: cfg.R2CustomDomain,
		client:       client,
		presign:      s3.NewPresignClient(client),
		log:          log,
	}, nil
}

func (r *R2) IsRemote() bool { return true }

func (r *R2) Put(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	r.log.Infow("Uploaded to R2", "key", key)
	return nil
}

func (r *R2) Get(ctx context.Context, key, localPath string) (string, error) {
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", err
	}

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("download %s: %w", key, err)
	}
	defer out.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, out.Body); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("write %s: %w", localPath, err)
	}
	r.log.Infow("Downloaded from R2", "key", key, "path", localPath)
	return localPath, nil
}

func (r *R2) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		r.log.Warnw("Failed to delete R2 object", "key", key, "error", err)
	}
	// Clean up the local copy too.
	if err := os.Remove(r.cfg.ResolvePath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (r *R2) Rename(ctx context.Context, oldKey, newKey string) error {
	_, err := r.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(r.bucket),
		CopySource: aws.String(url.PathEscape(r.bucket + "/" + oldKey)),
		Key:        aws.String(newKey),
	})
	if err != nil {
		return fmt.Errorf("copy %s to %s: %w", oldKey, newKey, err)
	}
	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(oldKey),
	}); err != nil {
		return fmt.Errorf("delete %s after copy: %w", oldKey, err)
	}

	// Mirror the rename on any local copy.
	oldPath := r.cfg.ResolvePath(oldKey)
	newPath := r.cfg.ResolvePath(newKey)
	if _, err := os.Stat(oldPath); err == nil && oldPath != newPath {
		return os.Rename(oldPath, newPath)
	}
	return nil
}

func (r *R2) Exists(ctx context.Context, key string) bool {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

func (r *R2) URL(ctx context.Context, key string) (string, bool) {
	if r.customDomain != "" {
		return fmt.Sprintf("https://%s/%s", r.customDomain, url.PathEscape(key)), true
	}
	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignTTL))
	if err != nil {
		r.log.Errorw("Failed to presign GET", "key", key, "error", err)
		return "", false
	}
	return req.URL, true
}

func (r *R2) PresignedPutURL(ctx context.Context, key, contentType string, ttlSeconds int64) (string, bool, error) {
	req, err := r.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(time.Duration(ttlSeconds)*time.Second))
	if err != nil {
		return "", false, err
	}
	return req.URL, true, nil
}
