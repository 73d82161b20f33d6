package objects

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobLogCollection 任务运行日志集合名
const JobLogCollection = "job_logs"

// Job 运行状态
const (
	JobStatusRunning = 0
	JobStatusSuccess = 1
	JobStatusFailed  = 2
)

// JobLog 对应 job_logs 集合，每次调度执行一条
type JobLog struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	JobName    string             `bson:"jobName" json:"jobName"`
	Source     string             `bson:"source" json:"source"`
	Status     int                `bson:"status" json:"status"`
	ErrorMsg   string             `bson:"errorMsg,omitempty" json:"errorMsg,omitempty"`
	DurationMs int64              `bson:"durationMs" json:"durationMs"`
	StartTime  time.Time          `bson:"startTime" json:"startTime"`
	EndTime    *time.Time         `bson:"endTime,omitempty" json:"endTime,omitempty"`
}
