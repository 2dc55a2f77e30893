package state

import (
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/bruin-data/medallion/pkg/path"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var version = "dev"

const latestFile = "latest.json"

type State struct {
	sync.RWMutex `json:"-"`
	Parameters   map[string]string `json:"parameters"`
	Metadata     Metadata          `json:"metadata"`
	Pipeline     string            `json:"pipeline" validate:"required"`
	State        []*AssetInstance  `json:"state" validate:"dive"`
	Version      string            `json:"version"`
	TimeStamp    time.Time         `json:"timestamp"`
	RunID        string            `json:"run_id" validate:"required"`
}

// AssetInstance is the outcome of one task instance of a run.
type AssetInstance struct {
	ID       string   `json:"id"`
	HumanID  string   `json:"human_id" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Type     string   `json:"type"`
	Status   string   `json:"status" validate:"required"`
	Error    string   `json:"error,omitempty"`
	Upstream []string `json:"upstream"`
}

type Metadata struct {
	Version string `json:"version"`
	OS      string `json:"os"`
}

func NewState(runID, pipelineName string, parameters map[string]string) *State {
	return &State{
		Parameters: parameters,
		Metadata: Metadata{
			Version: version,
			OS:      runtime.GOOS,
		},
		Pipeline:  pipelineName,
		State:     []*AssetInstance{},
		Version:   "1.0.0",
		TimeStamp: time.Time{},
		RunID:     runID,
	}
}

func (s *State) SetState(states []*AssetInstance) {
	s.Lock()
	defer s.Unlock()

	s.State = states
	s.TimeStamp = time.Now().UTC()
}

func (s *State) Failed() []*AssetInstance {
	s.RLock()
	defer s.RUnlock()

	failed := make([]*AssetInstance, 0)
	for _, a := range s.State {
		if a.Status == "failed" {
			failed = append(failed, a)
		}
	}
	return failed
}

// Save writes the state to <dir>/<run-id>.json and refreshes <dir>/latest.json.
func (s *State) Save(fs afero.Fs, dir string) error {
	s.RLock()
	defer s.RUnlock()

	if err := path.WriteJSON(fs, filepath.Join(dir, s.RunID+".json"), s); err != nil {
		return errors.Wrap(err, "failed to save the run state")
	}

	return path.WriteJSON(fs, filepath.Join(dir, latestFile), s)
}

// LoadLatest reads the state of the last run saved in dir.
func LoadLatest(fs afero.Fs, dir string) (*State, error) {
	s := &State{}
	if err := path.ReadJSON(fs, filepath.Join(dir, latestFile), s); err != nil {
		return nil, err
	}

	return s, nil
}
