package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-match-go/internal/storage"
)

func TestRequireStorageComponents(t *testing.T) {
	// 部分初始化的存储不允许启动HTTP服务，必须在进程启动时报错而不是每个请求panic
	err := requireStorageComponents(&storage.Storage{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MySQL")

	err = requireStorageComponents(&storage.Storage{MySQL: &storage.MySQL{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MinIO")

	err = requireStorageComponents(&storage.Storage{
		MySQL: &storage.MySQL{},
		MinIO: &storage.MinIO{},
	})
	require.NoError(t, err)
}
