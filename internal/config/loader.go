package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// ConfigDirName is the per-project directory holding config and state.
const ConfigDirName = ".taskorchestrator"

// ConfigFileName is the workflow configuration file inside ConfigDirName.
const ConfigFileName = "config.yaml"

// fileConfig mirrors the on-disk YAML document. All fields are optional;
// absent fields keep their defaults. Decoded with yaml.v3 rather than viper
// so flow names, tags, and status labels keep their exact spelling.
type fileConfig struct {
	StatusProgression struct {
		Tasks    *fileProgression `yaml:"tasks"`
		Features *fileProgression `yaml:"features"`
		Projects *fileProgression `yaml:"projects"`
	} `yaml:"status_progression"`
	StatusValidation *struct {
		EnforceSequential     *bool `yaml:"enforce_sequential"`
		AllowBackward         *bool `yaml:"allow_backward"`
		AllowEmergency        *bool `yaml:"allow_emergency"`
		ValidatePrerequisites *bool `yaml:"validate_prerequisites"`
	} `yaml:"status_validation"`
	CompletionCleanup *struct {
		Enabled    *bool    `yaml:"enabled"`
		RetainTags []string `yaml:"retain_tags"`
	} `yaml:"completion_cleanup"`
	AutoCascade *struct {
		Enabled  *bool `yaml:"enabled"`
		MaxDepth *int  `yaml:"max_depth"`
	} `yaml:"auto_cascade"`
}

type fileProgression struct {
	AllowedStatuses      []string            `yaml:"allowed_statuses"`
	DefaultFlow          []string            `yaml:"default_flow"`
	TerminalStatuses     []string            `yaml:"terminal_statuses"`
	EmergencyTransitions []string            `yaml:"emergency_transitions"`
	Flows                map[string][]string `yaml:"flows"`
	TagFlowMapping       map[string]string   `yaml:"tag_flow_mapping"`
	StatusRoles          map[string]string   `yaml:"status_roles"`
}

// Discover walks up from startDir looking for .taskorchestrator/config.yaml.
// Returns the config file path, or "" if no config exists anywhere up the
// tree. A TASKORC_DIR override is applied by the caller before Discover.
func Discover(startDir string) string {
	dir := startDir
	for {
		path := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads the workflow config at path and merges it over the defaults.
// An empty path yields the default configuration. The result is validated
// before being returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if err := merge(cfg, &fc); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir discovers and loads config starting at dir; missing config
// yields defaults.
func LoadFromDir(dir string) (*Config, error) {
	return Load(Discover(dir))
}

func merge(cfg *Config, fc *fileConfig) error {
	kinds := []struct {
		kind types.EntityKind
		fp   *fileProgression
	}{
		{types.KindTask, fc.StatusProgression.Tasks},
		{types.KindFeature, fc.StatusProgression.Features},
		{types.KindProject, fc.StatusProgression.Projects},
	}
	for _, k := range kinds {
		if k.fp == nil {
			continue
		}
		if err := mergeProgression(cfg.Progression[k.kind], k.fp); err != nil {
			return err
		}
	}
	if sv := fc.StatusValidation; sv != nil {
		if sv.EnforceSequential != nil {
			cfg.Validation.EnforceSequential = *sv.EnforceSequential
		}
		if sv.AllowBackward != nil {
			cfg.Validation.AllowBackward = *sv.AllowBackward
		}
		if sv.AllowEmergency != nil {
			cfg.Validation.AllowEmergency = *sv.AllowEmergency
		}
		if sv.ValidatePrerequisites != nil {
			cfg.Validation.ValidatePrerequisites = *sv.ValidatePrerequisites
		}
	}
	if cc := fc.CompletionCleanup; cc != nil {
		if cc.Enabled != nil {
			cfg.Cleanup.Enabled = *cc.Enabled
		}
		if cc.RetainTags != nil {
			cfg.Cleanup.RetainTags = cc.RetainTags
		}
	}
	if ac := fc.AutoCascade; ac != nil {
		if ac.Enabled != nil {
			cfg.Cascade.Enabled = *ac.Enabled
		}
		if ac.MaxDepth != nil {
			cfg.Cascade.MaxDepth = *ac.MaxDepth
		}
	}
	return nil
}

func mergeProgression(p *KindProgression, fp *fileProgression) error {
	if fp.AllowedStatuses != nil {
		p.AllowedStatuses = normalizeAll(fp.AllowedStatuses)
	}
	if fp.DefaultFlow != nil {
		p.DefaultFlow = normalizeAll(fp.DefaultFlow)
	}
	if fp.TerminalStatuses != nil {
		p.TerminalStatuses = normalizeAll(fp.TerminalStatuses)
	}
	if fp.EmergencyTransitions != nil {
		p.EmergencyTransitions = normalizeAll(fp.EmergencyTransitions)
	}
	if fp.Flows != nil {
		p.Flows = make(map[string][]string, len(fp.Flows))
		for name, seq := range fp.Flows {
			p.Flows[name] = normalizeAll(seq)
		}
	}
	if fp.TagFlowMapping != nil {
		p.TagFlowMapping = fp.TagFlowMapping
	}
	if fp.StatusRoles != nil {
		roles := make(map[string]types.Role, len(fp.StatusRoles))
		for status, role := range fp.StatusRoles {
			roles[types.NormalizeStatus(status)] = types.Role(types.EnumName(role))
		}
		p.StatusRoles = roles
	}
	return nil
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = types.NormalizeStatus(s)
	}
	return out
}
