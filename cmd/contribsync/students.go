package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/weisyn/contribsync/internal/app"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/types"
)

// studentsCmd 学生名单管理
var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "管理学生名单",
}

// studentsImportCmd 从JSON文件导入学生
var studentsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "导入学生名单",
	Long: `从JSON数组导入学生，格式:
  [{"id": "s1", "name": "Alice", "githubHandle": "alice"}]

已存在的学生保留原有的贡献数与同步时间`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		students, err := readStudents(args[0])
		if err != nil {
			return err
		}

		return withRepository(func(ctx context.Context, repo contribution.StudentRepository) error {
			created, updated, err := importStudents(ctx, repo, students)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "导入完成: 新增 %d, 更新 %d\n", created, updated)
			return nil
		})
	},
}

// studentsListCmd 列出学生
var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出学生及贡献数",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(func(ctx context.Context, repo contribution.StudentRepository) error {
			students, err := repo.ListStudents(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tHANDLE\tCONTRIBUTIONS\tLAST SYNC")
			for _, s := range students {
				lastSync := "-"
				if s.Synced() {
					lastSync = s.LastSyncTime.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Name, s.GitHubHandle, s.ContributionCount, lastSync)
			}
			return w.Flush()
		})
	},
}

func init() {
	studentsCmd.AddCommand(studentsImportCmd)
	studentsCmd.AddCommand(studentsListCmd)
}

// readStudents 读取并校验学生文件
func readStudents(path string) ([]types.Student, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}

	var students []types.Student
	if err := json.Unmarshal(data, &students); err != nil {
		return nil, fmt.Errorf("解析学生文件失败: %w", err)
	}

	seen := make(map[string]struct{}, len(students))
	for i := range students {
		s := &students[i]
		s.ID = strings.TrimSpace(s.ID)
		s.GitHubHandle = strings.TrimSpace(s.GitHubHandle)
		if s.ID == "" {
			return nil, fmt.Errorf("第 %d 条记录缺少 id", i+1)
		}
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("学生 id 重复: %s", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return students, nil
}

// importStudents 写入学生，已有记录保留同步数据
func importStudents(ctx context.Context, repo contribution.StudentRepository, students []types.Student) (created, updated int, err error) {
	for _, s := range students {
		existing, getErr := repo.GetStudent(ctx, s.ID)
		switch {
		case getErr == nil:
			if s.LastSyncTime == nil {
				s.ContributionCount = existing.ContributionCount
				s.LastSyncTime = existing.LastSyncTime
			}
			updated++
		case errors.Is(getErr, contribution.ErrStudentNotFound):
			created++
		default:
			return created, updated, getErr
		}

		if err := repo.SaveStudent(ctx, s); err != nil {
			return created, updated, fmt.Errorf("保存学生 %s 失败: %w", s.ID, err)
		}
	}
	return created, updated, nil
}

// withRepository 启动只含存储的应用并执行fn
func withRepository(fn func(ctx context.Context, repo contribution.StudentRepository) error) error {
	opts, err := appOptions()
	if err != nil {
		return err
	}

	var repo contribution.StudentRepository
	application, err := app.Start(append(opts,
		app.WithoutAPI(),
		app.WithFxOptions(fx.Populate(&repo)),
	)...)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "停止应用时出错: %v\n", err)
		}
	}()

	return fn(context.Background(), repo)
}
