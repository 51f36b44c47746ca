package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scanledger/internal/history"
)

// DefaultNow is the engine clock start when a scenario sets none.
const DefaultNow = "2025-03-14T12:00:00Z"

// Scenario is one scripted run.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Timezone buckets scans into days. Empty means UTC.
	Timezone string `yaml:"timezone,omitempty"`

	// Now is the RFC 3339 start of the engine clock.
	Now string `yaml:"now,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is exactly one engine command plus an optional expectation.
type Step struct {
	Ingest           *IngestStep            `yaml:"ingest,omitempty"`
	Reconcile        []history.RemoteRecord `yaml:"reconcile,omitempty"`
	MarkRecycled     string                 `yaml:"mark_recycled,omitempty"`
	PatchRemoteImage *PatchStep             `yaml:"patch_remote_image,omitempty"`
	Expect           *Expect                `yaml:"expect,omitempty"`
}

// IngestStep describes the scan handed to the engine.
type IngestStep struct {
	At             string  `yaml:"at,omitempty"`
	Item           string  `yaml:"item"`
	Material       string  `yaml:"material"`
	Bin            string  `yaml:"bin"`
	Notes          string  `yaml:"notes,omitempty"`
	Recyclable     bool    `yaml:"recyclable"`
	CarbonSavedKg  float64 `yaml:"carbon_saved_kg,omitempty"`
	Source         string  `yaml:"source,omitempty"`
	LocalImagePath string  `yaml:"local_image_path,omitempty"`

	// Status is the requested status name, e.g. "recycled".
	Status string `yaml:"status,omitempty"`
}

// PatchStep attaches a remote image reference to an Entry.
type PatchStep struct {
	ID   string `yaml:"id"`
	Path string `yaml:"path"`
}

// Expect checks a step's outcome. Unset fields are not checked.
type Expect struct {
	Outcome     string `yaml:"outcome,omitempty"`
	Merged      *int   `yaml:"merged,omitempty"`
	Synthesized *int   `yaml:"synthesized,omitempty"`
	Changed     *bool  `yaml:"changed,omitempty"`
}

// Op returns the command the step issues.
func (s Step) Op() string {
	switch {
	case s.Ingest != nil:
		return OpIngest
	case s.Reconcile != nil:
		return OpReconcile
	case s.MarkRecycled != "":
		return OpMarkRecycled
	case s.PatchRemoteImage != nil:
		return OpPatchRemoteImage
	default:
		return ""
	}
}

// Step operations.
const (
	OpIngest           = "ingest"
	OpReconcile        = "reconcile"
	OpMarkRecycled     = "mark_recycled"
	OpPatchRemoteImage = "patch_remote_image"
)

// LoadScenario reads and validates a scenario file. Unknown keys are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if _, err := s.location(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if _, err := s.start(); err != nil {
		return fmt.Errorf("now: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	set := 0
	if step.Ingest != nil {
		set++
	}
	if step.Reconcile != nil {
		set++
	}
	if step.MarkRecycled != "" {
		set++
	}
	if step.PatchRemoteImage != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of ingest, reconcile, mark_recycled, patch_remote_image is required", i)
	}

	if in := step.Ingest; in != nil {
		if in.Item == "" {
			return fmt.Errorf("steps[%d].ingest: item is required", i)
		}
		if in.At != "" {
			if _, err := time.Parse(time.RFC3339, in.At); err != nil {
				return fmt.Errorf("steps[%d].ingest.at: %w", i, err)
			}
		}
		if in.Status != "" {
			var st history.Status
			if err := st.UnmarshalText([]byte(in.Status)); err != nil {
				return fmt.Errorf("steps[%d].ingest.status: %w", i, err)
			}
		}
	}
	if p := step.PatchRemoteImage; p != nil && (p.ID == "" || p.Path == "") {
		return fmt.Errorf("steps[%d].patch_remote_image: id and path are required", i)
	}
	return nil
}

func (s *Scenario) location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

func (s *Scenario) start() (time.Time, error) {
	now := s.Now
	if now == "" {
		now = DefaultNow
	}
	return time.Parse(time.RFC3339, now)
}
