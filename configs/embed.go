// Package configs 嵌入各环境的默认配置文件
package configs

import _ "embed"

//go:embed development/config.json
var developmentConfig []byte

//go:embed testing/config.json
var testingConfig []byte

//go:embed production/config.json
var productionConfig []byte

// GetDevelopmentConfig 获取开发环境配置
func GetDevelopmentConfig() []byte {
	return developmentConfig
}

// GetTestingConfig 获取测试环境配置
func GetTestingConfig() []byte {
	return testingConfig
}

// GetProductionConfig 获取生产环境配置
func GetProductionConfig() []byte {
	return productionConfig
}

// ForEnvironment 按环境名返回嵌入配置：dev | test | prod
func ForEnvironment(env string) ([]byte, bool) {
	switch env {
	case "dev", "development":
		return developmentConfig, true
	case "test", "testing":
		return testingConfig, true
	case "prod", "production":
		return productionConfig, true
	default:
		return nil, false
	}
}
