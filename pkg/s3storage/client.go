// Публикация сгенерированных приложений в S3-совместимое хранилище.

package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/appforge/pkg/config"
	"github.com/ilkoid/appforge/pkg/utils"
)

// HTMLContentType - Content-Type опубликованных страниц.
const HTMLContentType = "text/html; charset=utf-8"

// Publisher определяет интерфейс публикации.
// Используется для мокания в тестах и внедрения зависимостей.
type Publisher interface {
	Publish(ctx context.Context, key, html string) (string, error)
	ListPublished(ctx context.Context, prefix string) ([]StoredObject, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

type Client struct {
	api    *minio.Client
	bucket string
	prefix string
}

// Проверка что Client реализует Publisher
var _ Publisher = (*Client)(nil)

// StoredObject - сырой объект из S3
type StoredObject struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// New создает клиент из конфига. Без endpoint/bucket публикация выключена.
func New(cfg config.S3Config) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("s3: endpoint and bucket are required")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		api:    minioClient,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// ObjectKey строит ключ объекта: <prefix>/<name>.html.
// Расширение добавляется если его нет; ведущие слеши убираются.
func ObjectKey(prefix, name string) string {
	name = strings.TrimLeft(name, "/")
	if !strings.HasSuffix(strings.ToLower(name), ".html") {
		name += ".html"
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Publish загружает html под ключом key (с префиксом клиента) и возвращает
// полный ключ объекта.
//
// Rule 11: context.Context propagation for cancellation support.
func (c *Client) Publish(ctx context.Context, key, html string) (string, error) {
	full := ObjectKey(c.prefix, key)
	data := []byte(html)

	_, err := c.api.PutObject(ctx, c.bucket, full, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: HTMLContentType})
	if err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", full, err)
	}

	utils.Info("Published app", "bucket", c.bucket, "key", full, "bytes", len(data))
	return full, nil
}

// ListPublished возвращает объекты по префиксу (относительно префикса клиента).
// Пустой результат - не ошибка.
func (c *Client) ListPublished(ctx context.Context, prefix string) ([]StoredObject, error) {
	full := strings.Trim(path.Join(c.prefix, prefix), "/")
	if full == "." {
		full = ""
	}
	if full != "" {
		full += "/"
	}

	var objects []StoredObject

	opts := minio.ListObjectsOptions{
		Prefix:    full,
		Recursive: true,
	}

	for obj := range c.api.ListObjects(ctx, c.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		// Пропускаем саму "папку"
		if obj.Key == full {
			continue
		}
		objects = append(objects, StoredObject{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	return objects, nil
}

// Download скачивает объект целиком в память
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	return buf.Bytes(), nil
}
