package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"talent-match-go/internal/config"
	"talent-match-go/internal/logger"
)

// MinIO 对象存储适配器，管理原始简历和解析文本两个桶
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
}

// NewMinIO 创建MinIO客户端并确保存储桶就绪
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, bucket := range []string{cfg.ResumesBucket, cfg.ParsedBucket} {
		if err := m.ensureBucketExists(ctx, bucket); err != nil {
			return nil, err
		}
	}

	if cfg.FileExpireDays > 0 {
		if err := m.setupLifecycleRules(ctx); err != nil {
			// 生命周期设置失败不阻断启动
			logger.Warn().Err(err).Msg("设置存储桶生命周期失败")
		}
	}

	logger.Info().Str("endpoint", cfg.Endpoint).Msg("成功连接到MinIO")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName string) error {
	if bucketName == "" {
		return fmt.Errorf("存储桶名称不能为空")
	}

	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 失败: %w", bucketName, err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: m.cfg.Location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	return nil
}

func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	lc := lifecycle.NewConfiguration()
	lc.Rules = []lifecycle.Rule{
		{
			ID:     "expire-old-objects",
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(m.cfg.FileExpireDays),
			},
		},
	}

	for _, bucket := range []string{m.cfg.ResumesBucket, m.cfg.ParsedBucket} {
		if err := m.client.SetBucketLifecycle(ctx, bucket, lc); err != nil {
			return fmt.Errorf("设置存储桶 %s 生命周期失败: %w", bucket, err)
		}
	}
	return nil
}

// UploadResumeFile 上传原始简历文件，返回对象路径
func (m *MinIO) UploadResumeFile(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	if submissionUUID == "" {
		return "", fmt.Errorf("submissionUUID不能为空")
	}

	ext := strings.TrimPrefix(fileExt, ".")
	objectName := fmt.Sprintf("resumes/%s.%s", submissionUUID, ext)

	_, err := m.client.PutObject(ctx, m.cfg.ResumesBucket, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentTypeForExt(ext),
	})
	if err != nil {
		return "", fmt.Errorf("上传简历文件失败: %w", err)
	}
	return objectName, nil
}

// UploadParsedText 上传解析后的简历文本，返回对象路径
func (m *MinIO) UploadParsedText(ctx context.Context, submissionUUID, text string) (string, error) {
	if submissionUUID == "" {
		return "", fmt.Errorf("submissionUUID不能为空")
	}

	objectName := fmt.Sprintf("parsed/%s.txt", submissionUUID)
	data := []byte(text)

	_, err := m.client.PutObject(ctx, m.cfg.ParsedBucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	})
	if err != nil {
		return "", fmt.Errorf("上传解析文本失败: %w", err)
	}
	return objectName, nil
}

// GetResumeFile 下载原始简历文件
func (m *MinIO) GetResumeFile(ctx context.Context, objectKey string) ([]byte, error) {
	return m.downloadObject(ctx, m.cfg.ResumesBucket, objectKey)
}

// GetParsedText 下载解析文本
func (m *MinIO) GetParsedText(ctx context.Context, objectKey string) (string, error) {
	data, err := m.downloadObject(ctx, m.cfg.ParsedBucket, objectKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (m *MinIO) downloadObject(ctx context.Context, bucket, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucket, objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 失败: %w", bucket, objectKey, err)
	}
	return data, nil
}

// GetPresignedResumeURL 生成原始简历的预签名下载链接
func (m *MinIO) GetPresignedResumeURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.cfg.ResumesBucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成预签名URL失败: %w", err)
	}
	return u.String(), nil
}

// DeleteResumeFile 删除原始简历文件
func (m *MinIO) DeleteResumeFile(ctx context.Context, objectKey string) error {
	return m.client.RemoveObject(ctx, m.cfg.ResumesBucket, objectKey, minio.RemoveObjectOptions{})
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
