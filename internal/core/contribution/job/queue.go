package job

// jobQueue 有界FIFO，只存任务ID
type jobQueue struct {
	items []string
	limit int
}

func newJobQueue(limit int) *jobQueue {
	if limit < 0 {
		limit = 0
	}
	return &jobQueue{limit: limit}
}

func (q *jobQueue) Len() int { return len(q.items) }

func (q *jobQueue) Full() bool { return len(q.items) >= q.limit }

// Push 队列满时返回 false
func (q *jobQueue) Push(id string) bool {
	if q.Full() {
		return false
	}
	q.items = append(q.items, id)
	return true
}

// Pop 取出队首，空队列返回 false
func (q *jobQueue) Pop() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	id := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return id, true
}

// Remove 移除指定ID，保持其余顺序
func (q *jobQueue) Remove(id string) bool {
	for i, v := range q.items {
		if v == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Drain 清空并返回全部ID
func (q *jobQueue) Drain() []string {
	out := q.items
	q.items = nil
	return out
}
