package report

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/contribsync/pkg/types"
)

func TestSummarize(t *testing.T) {
	t.Run("空列表", func(t *testing.T) {
		h := Summarize(nil)
		assert.Equal(t, 0, h.TotalStudents)
		assert.Equal(t, 0.0, h.SyncRate)
		assert.Nil(t, h.LastSyncTime)
		assert.NotNil(t, h.RecentlySynced)
	})

	t.Run("统计与排序", func(t *testing.T) {
		base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		var list []types.Student
		for i := 0; i < 7; i++ {
			ts := base.Add(time.Duration(i) * time.Hour)
			list = append(list, types.Student{
				ID:                fmt.Sprintf("s%d", i),
				GitHubHandle:      fmt.Sprintf("u%d", i),
				ContributionCount: i,
				LastSyncTime:      &ts,
			})
		}
		list = append(list, types.Student{ID: "never-1"}, types.Student{ID: "never-2"})

		h := Summarize(list)
		assert.Equal(t, 9, h.TotalStudents)
		assert.Equal(t, 7, h.SyncedStudents)
		assert.Equal(t, 2, h.UnsyncedStudents)
		assert.Equal(t, 77.78, h.SyncRate)
		require.NotNil(t, h.LastSyncTime)
		assert.Equal(t, base.Add(6*time.Hour), *h.LastSyncTime)
		assert.Equal(t, base, *h.OldestSyncTime)

		require.Len(t, h.RecentlySynced, RecentLimit)
		assert.Equal(t, "s6", h.RecentlySynced[0].ID)
		assert.Equal(t, "s2", h.RecentlySynced[4].ID)
	})
}
