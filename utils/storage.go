package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/fashalt/fashaltbackend/config"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

var ErrStorageDisabled = errors.New("image storage is not configured")

// Bucket stores uploaded images. PublicID of the returned Image is the object name.
type Bucket interface {
	Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (models.Image, error)
	Delete(ctx context.Context, publicIDs []string) error
}

// NewBucket picks the backend named by STORAGE_PROVIDER.
func NewBucket(ctx context.Context, cfg config.StorageConfig) (Bucket, error) {
	switch cfg.Provider {
	case "gcs":
		return NewGCSBucket(ctx, cfg)
	case "r2":
		return NewR2Bucket(ctx, cfg)
	default:
		return DisabledBucket{}, nil
	}
}

// UploadImages uploads every file; on failure the ones already stored are removed.
func UploadImages(ctx context.Context, b Bucket, folder string, files []*multipart.FileHeader) ([]models.Image, error) {
	images := make([]models.Image, 0, len(files))
	for _, fh := range files {
		img, err := b.Upload(ctx, folder, fh)
		if err != nil {
			_ = b.Delete(ctx, PublicIDs(images))
			return nil, fmt.Errorf("upload %s: %w", fh.Filename, err)
		}
		images = append(images, img)
	}
	return images, nil
}

func PublicIDs(images []models.Image) []string {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		if img.PublicID != "" {
			ids = append(ids, img.PublicID)
		}
	}
	return ids
}

func objectName(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("fashAt/%s/%s%s", folder, uuid.NewString(), ext)
}

func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}

type DisabledBucket struct{}

func (DisabledBucket) Upload(context.Context, string, *multipart.FileHeader) (models.Image, error) {
	return models.Image{}, ErrStorageDisabled
}

func (DisabledBucket) Delete(context.Context, []string) error { return nil }

// GCSBucket stores objects in Google Cloud Storage.
type GCSBucket struct {
	client *storage.Client
	bucket string
}

func NewGCSBucket(ctx context.Context, cfg config.StorageConfig) (*GCSBucket, error) {
	if cfg.GCSBucket == "" {
		return nil, fmt.Errorf("missing GCS_BUCKET")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSBucket{client: client, bucket: cfg.GCSBucket}, nil
}

func (g *GCSBucket) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (models.Image, error) {
	name := objectName(folder, fh.Filename)

	f, err := fh.Open()
	if err != nil {
		return models.Image{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType(fh)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return models.Image{}, fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return models.Image{}, fmt.Errorf("upload close: %w", err)
	}

	return models.Image{
		PublicID: name,
		URL:      fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, name),
	}, nil
}

func (g *GCSBucket) Delete(ctx context.Context, publicIDs []string) error {
	var firstErr error
	for _, obj := range publicIDs {
		if obj == "" {
			continue
		}
		err := g.client.Bucket(g.bucket).Object(obj).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", obj, err)
		}
	}
	return firstErr
}

// R2Bucket stores objects in Cloudflare R2 through its S3 API.
type R2Bucket struct {
	s3           *s3.Client
	bucket       string
	publicDomain string
}

func NewR2Bucket(ctx context.Context, cfg config.StorageConfig) (*R2Bucket, error) {
	if cfg.R2Bucket == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2Endpoint == "" {
		return nil, fmt.Errorf("missing R2 env vars (R2_BUCKET, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_ENDPOINT)")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, ""),
		),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		o.UsePathStyle = true // required for R2
	})

	return &R2Bucket{s3: client, bucket: cfg.R2Bucket, publicDomain: cfg.R2PublicDomain}, nil
}

func (r *R2Bucket) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (models.Image, error) {
	name := objectName(folder, fh.Filename)

	f, err := fh.Open()
	if err != nil {
		return models.Image{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	_, err = r.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(name),
		Body:          f,
		ContentLength: aws.Int64(fh.Size),
		ContentType:   aws.String(contentType(fh)),
	})
	if err != nil {
		return models.Image{}, err
	}

	return models.Image{
		PublicID: name,
		URL:      fmt.Sprintf("%s/%s/%s", r.publicDomain, r.bucket, name),
	}, nil
}

func (r *R2Bucket) Delete(ctx context.Context, publicIDs []string) error {
	var firstErr error
	for _, obj := range publicIDs {
		if obj == "" {
			continue
		}
		_, err := r.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(obj),
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", obj, err)
		}
	}
	return firstErr
}

// ImageValidator rejects uploads that are too large or are not images.
type ImageValidator struct {
	allowedExt  map[string]bool
	allowedMime map[string]bool
	maxSize     int64
}

func NewImageValidator(maxSizeMB int) *ImageValidator {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &ImageValidator{
		allowedExt:  map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true},
		allowedMime: map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true},
		maxSize:     int64(maxSizeMB) << 20,
	}
}

func (v *ImageValidator) ValidateFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > v.maxSize {
		return "", fmt.Errorf("file too large (max %d MB)", v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !v.allowedExt[ext] {
		return "", fmt.Errorf("invalid file extension")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file header")
	}

	detectedMime := strings.ToLower(http.DetectContentType(buffer[:n]))
	if !v.allowedMime[detectedMime] {
		return "", fmt.Errorf("invalid file type")
	}

	return detectedMime, nil
}

func (v *ImageValidator) ValidateAll(files []*multipart.FileHeader) error {
	for _, fh := range files {
		if _, err := v.ValidateFile(fh); err != nil {
			return fmt.Errorf("%s: %w", fh.Filename, err)
		}
	}
	return nil
}
