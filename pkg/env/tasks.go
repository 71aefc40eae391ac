package env

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	Names  = []string{"retail", "airline"}
	Splits = []string{"train", "test", "dev"}
)

type Task struct {
	ID          string         `yaml:"id" json:"id"`
	UserID      string         `yaml:"user_id" json:"user_id"`
	Instruction string         `yaml:"instruction" json:"instruction"`
	Annotations map[string]any `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

type TaskSet struct {
	Env   string
	Split string
	Tasks []Task
}

func (ts *TaskSet) Len() int {
	return len(ts.Tasks)
}

func (ts *TaskSet) Get(index int) (Task, error) {
	if index < 0 || index >= len(ts.Tasks) {
		return Task{}, errors.Errorf("task index %d out of range [0, %d)", index, len(ts.Tasks))
	}
	return ts.Tasks[index], nil
}

// ValidateName checks that env and split are known values.
func ValidateName(env, split string) error {
	if !contains(Names, env) {
		return errors.Errorf("unknown env %q, expected one of %v", env, Names)
	}
	if !contains(Splits, split) {
		return errors.Errorf("unknown task split %q, expected one of %v", split, Splits)
	}
	return nil
}

// TaskFile is the path of the task set for env and split inside dir.
func TaskFile(dir, env, split string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.yaml", env, split))
}

// LoadTaskSet reads <dir>/<env>_<split>.yaml.
func LoadTaskSet(dir, env, split string) (*TaskSet, error) {
	if err := ValidateName(env, split); err != nil {
		return nil, err
	}
	path := TaskFile(dir, env, split)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read task file %s", path)
	}
	var tasks []Task
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		return nil, errors.Wrapf(err, "could not parse task file %s", path)
	}
	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = fmt.Sprintf("%s-%s-%d", env, split, i)
		}
	}
	return &TaskSet{Env: env, Split: split, Tasks: tasks}, nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
