package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestApplicationSchemaCarriesEvaluationFields(t *testing.T) {
	s, err := schema.Parse(&Application{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	for _, column := range []string{"evaluation_status", "evaluation_error", "llm_match_score", "evaluated_at"} {
		field, ok := s.FieldsByDBName[column]
		require.True(t, ok, "缺少列 %s", column)
		assert.NotNil(t, field)
	}

	// 失败详情落在申请记录上，与 ResumeSubmission.ErrorMessage 对齐
	errField := s.FieldsByDBName["evaluation_error"]
	assert.Equal(t, "text", string(errField.DataType))
}
