package runner

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Task represents a job that can be scheduled
type Task interface {
	// Name returns the unique name of the task
	Name() string

	// Schedule returns the cron schedule expression for this task
	Schedule() string

	// Run executes the task
	Run(ctx context.Context) error

	// Timeout returns the maximum time this task should run
	Timeout() time.Duration
}

// TaskRegistry holds all registered tasks
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewTaskRegistry creates a new task registry
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]Task),
	}
}

// Register adds a task to the registry, replacing one with the same name
func (r *TaskRegistry) Register(task Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.Name()] = task
}

// Get returns a task by name
func (r *TaskRegistry) Get(name string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, exists := r.tasks[name]
	return task, exists
}

// All returns all registered tasks
func (r *TaskRegistry) All() map[string]Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Task, len(r.tasks))
	for k, v := range r.tasks {
		out[k] = v
	}
	return out
}

// Names returns the registered task names in sorted order
func (r *TaskRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
