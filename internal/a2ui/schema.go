package a2ui

import (
	"sync"

	"a2ui-backend/internal/model"
	"a2ui-backend/pkg/logger"

	"github.com/xeipuuv/gojsonschema"
)

const envelopeSchema = `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string"},
    "a2ui": {
      "type": "object",
      "required": ["version", "components"],
      "properties": {
        "version": {"type": "string"},
        "components": {"type": "array", "items": {"$ref": "#/definitions/component"}}
      }
    },
    "suggestions": {"type": "array", "items": {"type": "string"}}
  },
  "definitions": {
    "component": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {
          "type": "string",
          "enum": ["text", "chip", "link", "image", "progress", "stat", "list", "data-table",
                   "chart", "accordion", "tabs", "alert", "card", "container", "grid"]
        },
        "props": {"type": "object"},
        "children": {"type": "array", "items": {"$ref": "#/definitions/component"}}
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchema))
	})
	return schema, schemaErr
}

// Validate 按 A2UI 信封 schema 校验响应，返回违规描述；只用于诊断，不拒绝响应
func Validate(resp *model.UIResponse) []string {
	s, err := compiledSchema()
	if err != nil {
		logger.Errorf("A2UI schema 编译失败: %v", err)
		return nil
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(resp))
	if err != nil {
		logger.Warnf("A2UI schema 校验出错: %v", err)
		return nil
	}
	if result.Valid() {
		return nil
	}

	warnings := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		warnings = append(warnings, e.String())
	}
	return warnings
}
