package contribution

import "github.com/weisyn/contribsync/pkg/interfaces/infrastructure/event"

// 进度事件名称
//
// 负载：
//   - job 系列事件：types.Job 快照
//   - EventStudentUpdated：(entityID string, status types.EntityStatus)
//   - EventProgressUpdate：types.ProgressUpdate
const (
	EventJobCreated     event.EventType = "jobCreated"
	EventJobUpdated     event.EventType = "jobUpdated"
	EventJobCompleted   event.EventType = "jobCompleted"
	EventJobCancelled   event.EventType = "jobCancelled"
	EventJobFailed      event.EventType = "jobFailed"
	EventStudentUpdated event.EventType = "studentUpdated"
	EventProgressUpdate event.EventType = "progressUpdate"
)

// AllEvents 全部进度事件
var AllEvents = []event.EventType{
	EventJobCreated,
	EventJobUpdated,
	EventJobCompleted,
	EventJobCancelled,
	EventJobFailed,
	EventStudentUpdated,
	EventProgressUpdate,
}
