// Package storage 提供了与对象存储服务（如 MinIO / S3）交互的功能。
package storage

import (
	"context"
	"fmt"
	"io"

	"lexsmart-go/internal/config"
	"lexsmart-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.StorageConfig) {
	var err error

	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}

	log.Info("MinIO 客户端初始化成功")

	// 检查存储桶 (Bucket) 是否存在，如果不存在则创建
	ctx := context.Background()
	bucketName := cfg.BucketName
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}

	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		err = MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{})
		if err != nil {
			log.Fatal("创建 MinIO 存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	} else {
		log.Infof("存储桶 '%s' 已存在", bucketName)
	}
}

// Upload 将一个流上传到指定存储桶。上传内存流时必须显式给出对象名，
// 无法从本地路径推断。失败时返回 false 并记录日志，由调用方检查返回值。
func Upload(ctx context.Context, reader io.Reader, size int64, bucketName, objectName string) bool {
	if objectName == "" {
		log.Errorf("上传对象失败: 未提供对象名, bucket: %s", bucketName)
		return false
	}
	_, err := MinioClient.PutObject(ctx, bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		log.Errorf("上传对象到存储桶 '%s' 失败, object: %s, error: %v", bucketName, objectName, err)
		return false
	}
	log.Infof("对象上传成功, bucket: %s, object: %s, size: %d", bucketName, objectName, size)
	return true
}

// Download 从存储桶读取一个对象。
func Download(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	object, err := MinioClient.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("从存储桶下载对象失败: %w", err)
	}
	return object, nil
}

// ObjectURL 派生对象的公开访问地址。
// 格式固定为 https://{bucket}.s3.{region}.amazonaws.com/{fileName}，作为元数据入库。
func ObjectURL(bucket, region, fileName string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, fileName)
}
