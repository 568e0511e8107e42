// Package report 汇总学生同步状况
package report

import (
	"math"
	"sort"
	"time"

	"github.com/weisyn/contribsync/pkg/types"
)

// RecentLimit 最近同步列表的长度
const RecentLimit = 5

// Summarize 计算同步覆盖率、最早与最近同步时间，以及最近同步的学生
func Summarize(students []types.Student) types.SyncHealth {
	h := types.SyncHealth{
		TotalStudents:  len(students),
		RecentlySynced: []types.SyncedRecord{},
	}

	var synced []types.Student
	for _, s := range students {
		if !s.Synced() {
			continue
		}
		synced = append(synced, s)
		ts := *s.LastSyncTime
		if h.LastSyncTime == nil || ts.After(*h.LastSyncTime) {
			h.LastSyncTime = timePtr(ts)
		}
		if h.OldestSyncTime == nil || ts.Before(*h.OldestSyncTime) {
			h.OldestSyncTime = timePtr(ts)
		}
	}
	h.SyncedStudents = len(synced)
	h.UnsyncedStudents = h.TotalStudents - h.SyncedStudents
	if h.TotalStudents > 0 {
		rate := float64(h.SyncedStudents) / float64(h.TotalStudents) * 100
		h.SyncRate = math.Round(rate*100) / 100
	}

	sort.SliceStable(synced, func(i, j int) bool {
		return synced[i].LastSyncTime.After(*synced[j].LastSyncTime)
	})
	for i := 0; i < len(synced) && i < RecentLimit; i++ {
		s := synced[i]
		h.RecentlySynced = append(h.RecentlySynced, types.SyncedRecord{
			ID:                s.ID,
			Name:              s.Name,
			GitHubHandle:      s.GitHubHandle,
			ContributionCount: s.ContributionCount,
			LastSyncTime:      *s.LastSyncTime,
		})
	}
	return h
}

func timePtr(t time.Time) *time.Time { return &t }
