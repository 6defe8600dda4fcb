package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"sprintboard/internal/jira"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Settings is the board-specific part of the configuration, kept in a YAML file.
type Settings struct {
	Project          string        `yaml:"project"`
	IssueTypes       []string      `yaml:"issueTypes"`
	ExcludedStatuses []string      `yaml:"excludedStatuses"`
	SquadField       string        `yaml:"squadField"`
	Squads           []string      `yaml:"squads"`
	Roster           []string      `yaml:"roster"`
	Fields           jira.FieldMap `yaml:"fields"`
}

// DefaultSettings matches the LPS board query. The roster is always supplied by the file.
func DefaultSettings() Settings {
	return Settings{
		Project:          "LPS",
		IssueTypes:       []string{"Technical Story", "Task", "Design", "IA"},
		ExcludedStatuses: []string{"Cancelled"},
		SquadField:       "Squad[Dropdown]",
		Squads:           []string{"DBM SQ1", "RTL SQ1", "RTL SQ2", "MGL SQ1", "CPL SQ1", "CPL SQ2"},
		Fields:           jira.DefaultFieldMap(),
	}
}

// Filter returns the JQL selection shared by every page request.
func (s Settings) Filter() jira.Filter {
	return jira.Filter{
		Project:          s.Project,
		IssueTypes:       slices.Clone(s.IssueTypes),
		ExcludedStatuses: slices.Clone(s.ExcludedStatuses),
		SquadField:       s.SquadField,
		Squads:           slices.Clone(s.Squads),
	}
}

// LoadSettings reads path over the defaults. A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("path", path).Msg("No settings file, using defaults")
			return DefaultSettings(), nil
		}
		return DefaultSettings(), fmt.Errorf("failed to read settings: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes YAML over the defaults. Keys not present keep their default value;
// unknown keys are rejected.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		cerr := &ConfigurationError{}
		cerr.invalid("SETTINGS_FILE", err.Error())
		return DefaultSettings(), cerr
	}
	s.Fields = s.Fields.WithDefaults()
	return s, nil
}

// Write saves settings as YAML.
func (s Settings) Write(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
