package util

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "video/", "application/pdf"
// 返回的 reader 包含已读取的头部，可继续用于上传
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, io.Reader, error) {
	buffer := make([]byte, 512)
	n, err := io.ReadFull(reader, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	rest := io.MultiReader(bytes.NewReader(buffer[:n]), reader)

	// 检测 MIME 类型
	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, rest, nil
		}
	}

	return mimeType, nil, fmt.Errorf("%w: %s", ErrInvalidFileType, mimeType)
}

// IsImage 检测是否为图片
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeImage)
}

// IsVideo 检测是否为视频
func IsVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeVideo) || mimeType == "application/x-mpegURL"
}

// SafeExt 仅保留小写扩展名
func SafeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		return ""
	}
	return ext
}
