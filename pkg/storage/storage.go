package storage

import (
	"context"
	"io"
)

// FileStorage 文件存储接口，生成的文章以 markdown 形式归档
// 通过实现此接口，可以切换不同的存储服务（本地存储、OSS、S3等）
type FileStorage interface {
	// Save 写入 folder/filename，已存在时覆盖，返回访问URL
	Save(ctx context.Context, folder, filename string, r io.Reader) (string, error)

	// Delete 删除 folder/filename，文件不存在不算错误
	Delete(ctx context.Context, folder, filename string) error

	// URL 获取文件的访问URL
	URL(path string) string
}
