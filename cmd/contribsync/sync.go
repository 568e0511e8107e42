package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/weisyn/contribsync/internal/app"
	syncconfig "github.com/weisyn/contribsync/internal/config/sync"
	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/types"
)

var syncFlags struct {
	BatchSize int
}

// syncCmd 一次性同步命令
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "在本进程内执行同步任务",
}

// syncRunCmd 同步全部学生
var syncRunCmd = &cobra.Command{
	Use:   "run",
	Short: "同步全部学生",
	Long:  "同步全部学生后输出任务结果；Ctrl+C 请求取消，当前批次结束后停止",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncJob(cmd, func(manager contribution.JobManager, repo contribution.StudentRepository) (string, error) {
			students, err := repo.ListStudents(cmd.Context())
			if err != nil {
				return "", fmt.Errorf("读取学生列表失败: %w", err)
			}
			ids := make([]string, 0, len(students))
			for _, s := range students {
				ids = append(ids, s.ID)
			}
			return manager.StartBatchSync(ids, syncFlags.BatchSize)
		})
	},
}

// syncStudentCmd 同步单个学生
var syncStudentCmd = &cobra.Command{
	Use:   "student <id>",
	Short: "同步单个学生",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncJob(cmd, func(manager contribution.JobManager, repo contribution.StudentRepository) (string, error) {
			if _, err := repo.GetStudent(cmd.Context(), args[0]); err != nil {
				return "", err
			}
			return manager.StartIndividualSync(args[0])
		})
	},
}

func init() {
	syncRunCmd.Flags().IntVar(&syncFlags.BatchSize, "batch-size", 0, "每批学生数 1-50（默认取配置）")

	syncCmd.AddCommand(syncRunCmd)
	syncCmd.AddCommand(syncStudentCmd)
}

// runSyncJob 启动不含API的应用，提交任务并等待结束
func runSyncJob(cmd *cobra.Command, submit func(contribution.JobManager, contribution.StudentRepository) (string, error)) error {
	if syncFlags.BatchSize < 0 || syncFlags.BatchSize > syncconfig.MaxBatchSize {
		return fmt.Errorf("batch-size 必须在 1-%d 之间", syncconfig.MaxBatchSize)
	}

	opts, err := appOptions()
	if err != nil {
		return err
	}

	var (
		manager contribution.JobManager
		repo    contribution.StudentRepository
	)
	application, err := app.Start(append(opts,
		app.WithoutAPI(),
		app.WithFxOptions(fx.Populate(&manager, &repo)),
	)...)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "停止应用时出错: %v\n", err)
		}
	}()

	jobID, err := submit(manager, repo)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "任务已提交: %s\n", jobID)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		if _, ok := <-signals; ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "收到中断，当前批次结束后停止")
			manager.CancelJob(jobID)
		}
	}()

	started := time.Now()
	job, err := manager.WaitJob(context.Background(), jobID)
	if err != nil {
		return err
	}

	if err := printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"jobId":      job.ID,
		"status":     job.Status,
		"syncTimeMs": time.Since(started).Milliseconds(),
		"progress":   job.Progress,
		"errors":     job.Errors,
	}); err != nil {
		return err
	}

	if job.Status != types.JobStatusCompleted {
		return fmt.Errorf("任务结束状态: %s", job.Status)
	}
	return nil
}
