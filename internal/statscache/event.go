package statscache

import (
	"fmt"
	"time"
)

// EventType 内容变更类型
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event 文章写路径发出的失效通知
type Event struct {
	Type      EventType `json:"type"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e Event) Validate() error {
	switch e.Type {
	case EventCreated, EventUpdated, EventDeleted:
		return nil
	default:
		return fmt.Errorf("statscache: unknown event type %q", e.Type)
	}
}

// HandleEvent 把变更事件转换为失效操作：有分类时失效该分类及聚合键，否则全部清空
func (c *Cache) HandleEvent(e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Category == "" {
		c.Invalidate(KeyAll)
		return nil
	}
	c.Invalidate(e.Category)
	return nil
}
