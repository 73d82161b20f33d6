package constants

// TaskType 任务来源
type TaskType string

const (
	TaskTypeSYSTEM TaskType = "SYSTEM" // 代码中 RegisterAuto 自动注册
	TaskTypeYAML   TaskType = "YAML"   // 配置文件 jobs 段
	TaskTypeAPI    TaskType = "API"    // 管理接口手动添加
)

// 任务运行状态
const (
	JobStatusIdle    = "Idle"
	JobStatusRunning = "Running"
	JobStatusError   = "Error"
)
