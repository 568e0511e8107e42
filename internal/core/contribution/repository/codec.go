// Package repository 提供学生记录的持久化实现（BadgerDB 与 Redis）
package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weisyn/contribsync/pkg/types"
)

const studentKeyPrefix = "student:"

func studentKey(id string) string { return studentKeyPrefix + id }

func encodeStudent(s types.Student) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("序列化学生记录失败: %w", err)
	}
	return data, nil
}

func decodeStudent(data []byte) (types.Student, error) {
	var s types.Student
	if err := json.Unmarshal(data, &s); err != nil {
		return types.Student{}, fmt.Errorf("反序列化学生记录失败: %w", err)
	}
	return s, nil
}

// applyUpdate 覆盖贡献数与同步时间
func applyUpdate(data []byte, update types.ContributionUpdate) ([]byte, error) {
	s, err := decodeStudent(data)
	if err != nil {
		return nil, err
	}
	s.ContributionCount = update.ContributionCount
	ts := update.LastSyncTime.UTC()
	s.LastSyncTime = &ts
	return encodeStudent(s)
}

func validateStudent(s types.Student) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("学生ID不能为空")
	}
	return nil
}
