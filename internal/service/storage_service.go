package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mysql_practice_backend/internal/config"
	"mysql_practice_backend/internal/util"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, filename string) error
	GetURL(filename string) string
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) path(filename string) (string, error) {
	dst := filepath.Join(p.Root, filepath.FromSlash(filename))
	rel, err := filepath.Rel(p.Root, dst)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", util.Validationf("invalid file name %q", filename)
	}
	return dst, nil
}

func (p *LocalStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	dst, err := p.path(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, filename string) error {
	dst, err := p.path(filename)
	if err != nil {
		return err
	}
	return os.Remove(dst)
}

func (p *LocalStorageProvider) GetURL(filename string) string {
	return "/uploads/" + filename
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

// EnsureBucket 桶不存在时创建
func (p *MinioStorageProvider) EnsureBucket(ctx context.Context) error {
	exists, err := p.Client.BucketExists(ctx, p.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.Client.MakeBucket(ctx, p.Bucket, minio.MakeBucketOptions{})
}

func (p *MinioStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, filename, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, filename string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, filename, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(filename string) string {
	return "/" + p.Bucket + "/" + filename
}

// MemoryStorageProvider 内存存储，用于测试和未配置存储时
type MemoryStorageProvider struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func NewMemoryStorageProvider() *MemoryStorageProvider {
	return &MemoryStorageProvider{Objects: make(map[string][]byte)}
}

func (p *MemoryStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.Objects[filename] = buf.Bytes()
	p.mu.Unlock()
	return p.GetURL(filename), nil
}

func (p *MemoryStorageProvider) Delete(ctx context.Context, filename string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.Objects, filename)
	return nil
}

func (p *MemoryStorageProvider) GetURL(filename string) string {
	return "memory://" + filename
}

func (p *MemoryStorageProvider) Get(filename string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.Objects[filename]
	return data, ok
}

// StorageService 存储服务
type StorageService struct {
	Provider StorageProvider
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init minio storage: %w", err)
		}
		provider = p
	case util.StorageLocal, "":
		provider = &LocalStorageProvider{Root: cfg.Storage.LocalPath}
	case "memory":
		provider = NewMemoryStorageProvider()
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
	return &StorageService{Provider: provider}, nil
}

func (s *StorageService) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	url, err := s.Provider.Upload(ctx, filename, reader, size, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %w", util.ErrStorage, filename, err)
	}
	return url, nil
}

func (s *StorageService) Delete(ctx context.Context, filename string) error {
	return s.Provider.Delete(ctx, filename)
}
