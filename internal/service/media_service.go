package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/pageflowhq/pageflow/configs"
)

const (
	maxImageSize = 10 * 1024 * 1024
	maxVideoSize = 20 * 1024 * 1024
)

var (
	imageExtensions = map[string]bool{"jpg": true, "png": true}
	videoExtensions = map[string]bool{"mp4": true, "avi": true, "mov": true, "wmv": true}

	ErrFileTooLarge    = errors.New("file exceeds the allowed size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// MediaService validates uploads at authoring time and stores them in R2.
// The publish pipeline only ever calls FileURL to resolve a stored key.
type MediaService struct {
	config config.Config
}

func NewMediaService(cfg config.Config) *MediaService {
	return &MediaService{config: cfg}
}

func (m *MediaService) r2Client() *s3.Client {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(m.config.R2.AccessKey, m.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Error(err.Error())
		return nil
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", m.config.R2.AccountID))
	})
}

// UploadImage validates and stores a post image, returning its object key.
func (m *MediaService) UploadImage(ctx context.Context, file *multipart.FileHeader, postID int64) (string, error) {
	data, kind, err := readAndSniff(file, maxImageSize)
	if err != nil {
		return "", err
	}
	if !imageExtensions[kind.Extension] {
		return "", ErrUnsupportedType
	}

	key, err := m.objectKey("post_images", postID, kind.Extension)
	if err != nil {
		return "", err
	}

	if err := m.putObject(ctx, key, data, kind.MIME.Value); err != nil {
		return "", err
	}
	return key, nil
}

// UploadVideo validates and stores a post video, returning its object key.
func (m *MediaService) UploadVideo(ctx context.Context, file *multipart.FileHeader, postID int64) (string, error) {
	data, kind, err := readAndSniff(file, maxVideoSize)
	if err != nil {
		return "", err
	}
	if !videoExtensions[kind.Extension] {
		return "", ErrUnsupportedType
	}

	key, err := m.objectKey("post_videos", postID, kind.Extension)
	if err != nil {
		return "", err
	}

	if err := m.putObject(ctx, key, data, kind.MIME.Value); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MediaService) Delete(ctx context.Context, key string) error {
	client := m.r2Client()
	if client == nil {
		return errors.New("storage client unavailable")
	}

	_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.config.R2.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// FileURL resolves a stored object key to its public URL.
func (m *MediaService) FileURL(key string) string {
	return strings.TrimRight(m.config.R2.PublicURL, "/") + "/" + key
}

func (m *MediaService) objectKey(prefix string, postID int64, ext string) (string, error) {
	name, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return fmt.Sprintf("%s/%d/%s.%s", prefix, postID, name, ext), nil
}

func (m *MediaService) putObject(ctx context.Context, key string, data []byte, contentType string) error {
	client := m.r2Client()
	if client == nil {
		return errors.New("storage client unavailable")
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(m.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func readAndSniff(file *multipart.FileHeader, maxSize int64) ([]byte, types.Type, error) {
	if file.Size > maxSize {
		return nil, types.Unknown, ErrFileTooLarge
	}

	f, err := file.Open()
	if err != nil {
		slog.Info(err.Error())
		return nil, types.Unknown, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Info(err.Error())
		return nil, types.Unknown, err
	}

	kind, err := filetype.Match(data)
	if err != nil {
		slog.Info(err.Error())
		return nil, types.Unknown, err
	}
	if kind == types.Unknown {
		return nil, types.Unknown, ErrUnsupportedType
	}

	return data, kind, nil
}
