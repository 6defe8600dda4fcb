package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"sprintboard/internal/jira"
	"sprintboard/internal/stats"
)

// ErrInvalidArgument marks a query rejected before any ingestion.
var ErrInvalidArgument = errors.New("invalid argument")

// Response is the envelope of every dashboard query.
type Response[T any] struct {
	Data T `json:"data"`
}

// Loader returns the unified issue set. The result is shared and must not be mutated.
type Loader interface {
	Load(ctx context.Context) ([]jira.Issue, error)
}

// Service answers dashboard queries. Every query runs an ingestion pass first, so cache
// freshness is decided per call.
type Service struct {
	loader Loader
	roster stats.Roster
}

func NewService(loader Loader, roster stats.Roster) *Service {
	return &Service{loader: loader, roster: roster}
}

func (s *Service) ByDeveloper(ctx context.Context) (Response[[]stats.DeveloperMetrics], error) {
	issues, err := s.loader.Load(ctx)
	if err != nil {
		return Response[[]stats.DeveloperMetrics]{}, err
	}
	return Response[[]stats.DeveloperMetrics]{Data: stats.GroupByDeveloper(issues, s.roster)}, nil
}

// BySprint groups by squad and sprint. An empty sprint returns every sprint.
func (s *Service) BySprint(ctx context.Context, sprint string) (Response[[]stats.SquadSprintMetrics], error) {
	filter, err := ParseSprint(sprint, false)
	if err != nil {
		return Response[[]stats.SquadSprintMetrics]{}, err
	}
	issues, err := s.loader.Load(ctx)
	if err != nil {
		return Response[[]stats.SquadSprintMetrics]{}, err
	}
	return Response[[]stats.SquadSprintMetrics]{Data: stats.GroupBySprint(issues, s.roster, filter)}, nil
}

func (s *Service) ShouldInvestigate(ctx context.Context) (Response[[]jira.Issue], error) {
	issues, err := s.loader.Load(ctx)
	if err != nil {
		return Response[[]jira.Issue]{}, err
	}
	return Response[[]jira.Issue]{Data: stats.ShouldInvestigate(issues, s.roster)}, nil
}

func (s *Service) DeveloperIssues(ctx context.Context, sprint, name string) (Response[[]jira.Issue], error) {
	filter, err := ParseSprint(sprint, true)
	if err != nil {
		return Response[[]jira.Issue]{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Response[[]jira.Issue]{}, fmt.Errorf("%w: developer name is required", ErrInvalidArgument)
	}
	issues, err := s.loader.Load(ctx)
	if err != nil {
		return Response[[]jira.Issue]{}, err
	}
	return Response[[]jira.Issue]{Data: stats.DeveloperIssues(issues, filter, name)}, nil
}

func (s *Service) DesignByDeveloper(ctx context.Context) (Response[[]stats.DeveloperDesign], error) {
	issues, err := s.loader.Load(ctx)
	if err != nil {
		return Response[[]stats.DeveloperDesign]{}, err
	}
	return Response[[]stats.DeveloperDesign]{Data: stats.GroupDesignByDeveloper(issues, s.roster)}, nil
}

// Issues returns a copy of the unified issue set, unfiltered.
func (s *Service) Issues(ctx context.Context) (Response[[]jira.Issue], error) {
	issues, err := s.loader.Load(ctx)
	if err != nil {
		return Response[[]jira.Issue]{}, err
	}
	out := slices.Clone(issues)
	if out == nil {
		out = []jira.Issue{}
	}
	return Response[[]jira.Issue]{Data: out}, nil
}

// ParseSprint validates a sprint number filter. Sprints are matched as substrings of the
// sprint label, so only digits are accepted.
func ParseSprint(raw string, required bool) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		if required {
			return "", fmt.Errorf("%w: sprint number is required", ErrInvalidArgument)
		}
		return "", nil
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return "", fmt.Errorf("%w: sprint %q is not a number", ErrInvalidArgument, raw)
		}
	}
	return s, nil
}
