// Package testutil 提供贡献同步测试用的内存替身
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/weisyn/contribsync/pkg/interfaces/contribution"
	"github.com/weisyn/contribsync/pkg/types"
)

// ErrInjected 测试注入的失败
var ErrInjected = errors.New("injected failure")

// ============================================================================
//                              外部API替身
// ============================================================================

// FakeClient 按账号预设返回值的外部客户端
type FakeClient struct {
	mu sync.Mutex

	// Exists 账号 -> 是否存在，未配置的账号视为存在
	Exists map[string]bool
	// Totals 账号 -> 贡献总数，未配置时返回 nil
	Totals map[string]int
	// HandleErr / TotalErr 账号 -> 错误
	HandleErr map[string]error
	TotalErr  map[string]error
	// Hook 每次调用前执行，可用于阻塞或观察并发
	Hook func(ctx context.Context, op, handle string)

	Calls map[string]int
}

var _ contribution.ExternalClient = (*FakeClient)(nil)

// NewFakeClient 创建空替身
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Exists:    map[string]bool{},
		Totals:    map[string]int{},
		HandleErr: map[string]error{},
		TotalErr:  map[string]error{},
		Calls:     map[string]int{},
	}
}

// SetTotal 配置账号的贡献总数
func (f *FakeClient) SetTotal(handle string, total int) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Totals[handle] = total
	return f
}

func (f *FakeClient) HandleExists(ctx context.Context, handle string) (bool, error) {
	f.before(ctx, "handle_exists", handle)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.HandleErr[handle]; ok {
		return false, err
	}
	if exists, ok := f.Exists[handle]; ok {
		return exists, nil
	}
	return true, nil
}

func (f *FakeClient) TotalContributions(ctx context.Context, handle string, windowDays int) (*int, error) {
	f.before(ctx, "total_contributions", handle)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.TotalErr[handle]; ok {
		return nil, err
	}
	total, ok := f.Totals[handle]
	if !ok {
		return nil, nil
	}
	return &total, nil
}

// CallCount 某操作对某账号的调用次数
func (f *FakeClient) CallCount(op, handle string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[op+":"+handle]
}

func (f *FakeClient) before(ctx context.Context, op, handle string) {
	f.mu.Lock()
	f.Calls[op+":"+handle]++
	hook := f.Hook
	f.mu.Unlock()
	if hook != nil {
		hook(ctx, op, handle)
	}
}

// ============================================================================
//                              存储替身
// ============================================================================

// MemoryRepository 内存版学生存储
type MemoryRepository struct {
	mu       sync.Mutex
	students map[string]types.Student

	// UpdateErr 非空时 UpdateEntity 返回该错误
	UpdateErr error
	// ListErr 非空时读取接口返回该错误
	ListErr error
	// Updates 成功写入的次数
	Updates int
}

var _ contribution.StudentRepository = (*MemoryRepository)(nil)

// NewMemoryRepository 用给定学生初始化
func NewMemoryRepository(students ...types.Student) *MemoryRepository {
	r := &MemoryRepository{students: map[string]types.Student{}}
	for _, s := range students {
		r.students[s.ID] = s
	}
	return r
}

func (r *MemoryRepository) UpdateEntity(ctx context.Context, id string, update types.ContributionUpdate) (types.UpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return types.UpdateResult{}, r.UpdateErr
	}
	s, ok := r.students[id]
	if !ok {
		return types.UpdateResult{Matched: false}, nil
	}
	s.ContributionCount = update.ContributionCount
	ts := update.LastSyncTime
	s.LastSyncTime = &ts
	r.students[id] = s
	r.Updates++
	return types.UpdateResult{Matched: true}, nil
}

func (r *MemoryRepository) ListStudents(ctx context.Context) ([]types.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]types.Student, 0, len(r.students))
	for _, s := range r.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetStudent(ctx context.Context, id string) (*types.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	s, ok := r.students[id]
	if !ok {
		return nil, contribution.ErrStudentNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) GetStudents(ctx context.Context, ids []string) (map[string]types.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make(map[string]types.Student, len(ids))
	for _, id := range ids {
		if s, ok := r.students[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (r *MemoryRepository) SaveStudent(ctx context.Context, student types.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[student.ID] = student
	return nil
}

func (r *MemoryRepository) DeleteStudent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.students, id)
	return nil
}

// Count 读取学生当前贡献数
func (r *MemoryRepository) Count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.students[id].ContributionCount
}

// ============================================================================
//                              同步器替身
// ============================================================================

// SyncerFunc 函数形式的 EntitySyncer
type SyncerFunc func(ctx context.Context, student types.Student) types.SyncResult

func (f SyncerFunc) Sync(ctx context.Context, student types.Student) types.SyncResult {
	return f(ctx, student)
}

// Student 构造测试学生
func Student(id, handle string, count int) types.Student {
	return types.Student{ID: id, Name: "student " + id, GitHubHandle: handle, ContributionCount: count}
}
