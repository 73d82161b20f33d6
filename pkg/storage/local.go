package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PNikhileswar/neurapress/pkg/logger"

	"go.uber.org/zap"
)

// LocalStorage 本地文件存储实现
type LocalStorage struct {
	basePath string // 基础存储路径，如 ./data/archive
	baseURL  string // 基础访问URL，如 http://localhost:8080/archive
}

// NewLocalStorage 创建本地文件存储实例
func NewLocalStorage(basePath, baseURL string) *LocalStorage {
	// 确保基础目录存在
	if err := os.MkdirAll(basePath, 0755); err != nil {
		logger.Error("创建存储目录失败", zap.String("path", basePath), zap.Error(err))
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  baseURL,
	}
}

// Save 先写临时文件再 rename，读者不会看到写了一半的文件
func (s *LocalStorage) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	rel, err := cleanRel(folder, filename)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.basePath, rel)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("rename file: %w", err)
	}

	return s.URL(rel), nil
}

// Delete 删除文件
func (s *LocalStorage) Delete(ctx context.Context, folder, filename string) error {
	rel, err := cleanRel(folder, filename)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.basePath, rel))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// URL 获取文件的访问URL
func (s *LocalStorage) URL(path string) string {
	// 确保路径使用正斜杠（URL格式）
	urlPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
	if s.baseURL == "" {
		return "/" + urlPath
	}
	return strings.TrimSuffix(s.baseURL, "/") + "/" + urlPath
}

// cleanRel 拒绝跳出 basePath 的路径
func cleanRel(folder, filename string) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	rel := filepath.Clean(filepath.Join(folder, name))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid folder %q", folder)
	}
	return rel, nil
}
