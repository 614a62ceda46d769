package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	cfg "github.com/suryatejavarmaa/DigiMark-sub000/configs"
	"github.com/suryatejavarmaa/DigiMark-sub000/internal/models"
)

const maxMediaBytes = 50 << 20

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpg": {}, "png": {},
}

// ObjectStore is where uploaded media ends up.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type r2Store struct {
	bucket string
	client *s3.Client
}

// NewR2Store builds an S3 client against Cloudflare R2.
func NewR2Store(ctx context.Context, r2 cfg.R2) (ObjectStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	})
	return &r2Store{bucket: r2.BucketName, client: client}, nil
}

func (r *r2Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

type MediaRef struct {
	Key  string             `json:"key"`
	URL  string             `json:"url"`
	MIME string             `json:"mime"`
	Kind models.ContentKind `json:"kind"`
}

type MediaService interface {
	Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*MediaRef, error)
	Store(ctx context.Context, userID int64, data []byte) (*MediaRef, error)
}

type mediaService struct {
	store     ObjectStore
	publicURL string
}

func NewMediaService(store ObjectStore, publicURL string) MediaService {
	return &mediaService{store: store, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*MediaRef, error) {
	if file == nil {
		return nil, models.NewValidationError("file", "is required")
	}
	if file.Size > maxMediaBytes {
		return nil, models.NewValidationError("file", "is too large")
	}
	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}
	return s.Store(ctx, userID, data)
}

// Store sniffs data, rejects anything but images and short videos and uploads it
// under a random key.
func (s *mediaService) Store(ctx context.Context, userID int64, data []byte) (*MediaRef, error) {
	if len(data) > maxMediaBytes {
		return nil, models.NewValidationError("file", "is too large")
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, models.NewValidationError("file", "unsupported file type")
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return nil, models.NewValidationError("file", fmt.Sprintf("file type %s is not allowed", kind.Extension))
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := fmt.Sprintf("%d/%s.%s", userID, id, kind.Extension)
	if err := s.store.Put(ctx, key, data, kind.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	return &MediaRef{
		Key:  key,
		URL:  fmt.Sprintf("%s/%s", s.publicURL, key),
		MIME: kind.MIME.Value,
		Kind: models.ContentImage,
	}, nil
}
