package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ErrObjectTooLarge 表示对象超过调用方允许读取的大小。
var ErrObjectTooLarge = errors.New("object too large")

// IsNoSuchKey 判断错误是否表示对象不存在。
func IsNoSuchKey(err error) bool {
	return hasCode(err, "nosuchkey", "notfound") ||
		containsAny(err, "nosuchkey", "specified key does not exist", "not found")
}

// IsNoSuchBucket 判断错误是否表示 Bucket 不存在。
func IsNoSuchBucket(err error) bool {
	return hasCode(err, "nosuchbucket") ||
		containsAny(err, "nosuchbucket", "specified bucket does not exist")
}

func hasCode(err error, codes ...string) bool {
	var minioErr minio.ErrorResponse
	if !errors.As(err, &minioErr) {
		return false
	}
	code := strings.ToLower(strings.TrimSpace(minioErr.Code))
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// 不同网关/代理可能把错误包装成字符串。
func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
