package config

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/danielolaszy/triage/internal/logging"
)

// QualityRules holds the configurable thresholds for the rule evaluator
// and the quality scorer.
type QualityRules struct {
	SummaryMinLength     int `mapstructure:"summary_min_length" yaml:"summary_min_length"`
	SummaryMaxLength     int `mapstructure:"summary_max_length" yaml:"summary_max_length"`
	DescriptionMinLength int `mapstructure:"description_min_length" yaml:"description_min_length"`

	// Issue types for which the named rule applies.
	StepsRequiredFor       []string `mapstructure:"steps_required_for" yaml:"steps_required_for"`
	VersionRequiredFor     []string `mapstructure:"version_required_for" yaml:"version_required_for"`
	AttachmentsRecommended []string `mapstructure:"attachments_recommended_for" yaml:"attachments_recommended_for"`
	LoginRequiredFor       []string `mapstructure:"login_required_for" yaml:"login_required_for"`

	// HighPriorityLevels is the priority-severity set held to the stricter bar.
	HighPriorityLevels []string `mapstructure:"high_priority_levels" yaml:"high_priority_levels"`

	// Tier thresholds on the issues-found count.
	HighQualityMaxIssues   int `mapstructure:"high_quality_max_issues" yaml:"high_quality_max_issues"`
	MediumQualityMaxIssues int `mapstructure:"medium_quality_max_issues" yaml:"medium_quality_max_issues"`
}

// FieldMappings maps logical field names to tracker field IDs
// (e.g. "steps_to_reproduce" -> "customfield_10668").
type FieldMappings map[string]string

// TransitionRule is one entry in the ordered transition table.
// Empty Tiers or IssueTypes match anything; Conditions must all hold.
type TransitionRule struct {
	Name         string   `mapstructure:"name" yaml:"name"`
	Tiers        []string `mapstructure:"quality" yaml:"quality"`
	IssueTypes   []string `mapstructure:"issue_types" yaml:"issue_types"`
	Conditions   []string `mapstructure:"conditions" yaml:"conditions"`
	TargetStatus string   `mapstructure:"target_status" yaml:"target_status"`
}

// TransitionTable configures the transition selector. The special issue
// type bypasses the generic rules and is decided only on the presence of a
// description and customer login details.
type TransitionTable struct {
	SpecialIssueType  string           `mapstructure:"special_issue_type" yaml:"special_issue_type"`
	SpecialComplete   string           `mapstructure:"special_complete_status" yaml:"special_complete_status"`
	SpecialIncomplete string           `mapstructure:"special_incomplete_status" yaml:"special_incomplete_status"`
	Rules             []TransitionRule `mapstructure:"rules" yaml:"rules"`
}

// CommentTemplate is one deterministic fallback template.
type CommentTemplate struct {
	Greeting string `mapstructure:"greeting" yaml:"greeting"`
	Body     string `mapstructure:"body" yaml:"body"`
	Closing  string `mapstructure:"closing" yaml:"closing"`
}

// CommentConfig configures the comment composer.
type CommentConfig struct {
	MaxLength int                        `mapstructure:"max_length" yaml:"max_length"`
	Templates map[string]CommentTemplate `mapstructure:"templates" yaml:"templates"`
}

// SearchProfile is one scheduled JQL search that feeds the worker queue.
type SearchProfile struct {
	Name      string        `mapstructure:"name" yaml:"name"`
	JQL       string        `mapstructure:"jql" yaml:"jql"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size"`
}

// ProcessingConfig holds orchestration-level settings.
type ProcessingConfig struct {
	// ExcludedIssueTypes never enter the rule evaluator.
	ExcludedIssueTypes []string `mapstructure:"excluded_issue_types" yaml:"excluded_issue_types"`

	// ExclusionWindow skips tickets the bot commented on recently.
	ExclusionWindow time.Duration `mapstructure:"exclusion_window" yaml:"exclusion_window"`

	// WorkerConcurrency bounds simultaneously processing tickets.
	WorkerConcurrency int `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`

	// BotUsername identifies the bot's own comments for idempotency checks.
	BotUsername string `mapstructure:"bot_username" yaml:"bot_username"`

	// MaxDuplicates caps the duplicate search result list.
	MaxDuplicates int `mapstructure:"max_duplicates" yaml:"max_duplicates"`
}

// Snapshot is one immutable, versioned view of the rules configuration.
// Core components receive a snapshot per processing run and never read
// configuration files themselves.
type Snapshot struct {
	Version     int64            `mapstructure:"-" yaml:"version"`
	Rules       QualityRules     `mapstructure:"quality_rules" yaml:"quality_rules"`
	Fields      FieldMappings    `mapstructure:"field_mappings" yaml:"field_mappings"`
	Transitions TransitionTable  `mapstructure:"transitions" yaml:"transitions"`
	Comments    CommentConfig    `mapstructure:"comments" yaml:"comments"`
	Profiles    []SearchProfile  `mapstructure:"search_profiles" yaml:"search_profiles"`
	Processing  ProcessingConfig `mapstructure:"processing" yaml:"processing"`
}

// Store loads the rules file and serves the current snapshot. Reloads swap
// the snapshot pointer atomically; readers keep whatever snapshot they
// already hold.
type Store struct {
	v       *viper.Viper
	current atomic.Pointer[Snapshot]
	version atomic.Int64
}

// Load reads the rules configuration file and returns a store serving it.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setSnapshotDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	s := &Store{v: v}
	snap, err := s.decode()
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return s, nil
}

// Snapshot returns the current configuration snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Watch re-reads the configuration whenever the file changes on disk.
// A snapshot that fails validation is discarded and the previous one stays
// in effect.
func (s *Store) Watch() {
	s.v.OnConfigChange(func(e fsnotify.Event) {
		snap, err := s.decode()
		if err != nil {
			logging.Error("ignoring invalid configuration reload",
				"file", e.Name,
				"error", err)
			return
		}
		s.current.Store(snap)
		logging.Info("configuration reloaded",
			"file", e.Name,
			"version", snap.Version)
	})
	s.v.WatchConfig()
}

func (s *Store) decode() (*Snapshot, error) {
	var snap Snapshot
	if err := s.v.Unmarshal(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	snap.Version = s.version.Add(1)
	if err := Validate(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func setSnapshotDefaults(v *viper.Viper) {
	v.SetDefault("quality_rules.summary_min_length", 10)
	v.SetDefault("quality_rules.summary_max_length", 255)
	v.SetDefault("quality_rules.description_min_length", 50)
	v.SetDefault("quality_rules.steps_required_for", []string{"Bug", "Problem"})
	v.SetDefault("quality_rules.version_required_for", []string{"Bug", "Support Request"})
	v.SetDefault("quality_rules.attachments_recommended_for", []string{"Bug"})
	v.SetDefault("quality_rules.login_required_for", []string{"Support Request", "Problem", "Bug"})
	v.SetDefault("quality_rules.high_priority_levels", []string{"Blocker", "Highest", "High"})
	v.SetDefault("quality_rules.high_quality_max_issues", 1)
	v.SetDefault("quality_rules.medium_quality_max_issues", 3)

	v.SetDefault("transitions.special_issue_type", "Unreproducible Bug")

	v.SetDefault("comments.max_length", 2000)

	v.SetDefault("processing.excluded_issue_types", []string{"Epic", "Sub-task"})
	v.SetDefault("processing.exclusion_window", 24*time.Hour)
	v.SetDefault("processing.worker_concurrency", 4)
	v.SetDefault("processing.bot_username", "triage-bot")
	v.SetDefault("processing.max_duplicates", 5)
}

// knownConditions are the field-condition predicates the transition
// selector understands.
var knownConditions = map[string]bool{
	"description_present":   true,
	"login_details_present": true,
	"steps_present":         true,
	"attachments_present":   true,
}

// Validate checks a snapshot for internally inconsistent settings.
func Validate(snap *Snapshot) error {
	r := snap.Rules
	if r.SummaryMinLength < 1 {
		return fmt.Errorf("quality_rules.summary_min_length must be positive, got %d", r.SummaryMinLength)
	}
	if r.SummaryMaxLength > 0 && r.SummaryMaxLength < r.SummaryMinLength {
		return fmt.Errorf("quality_rules.summary_max_length %d is below summary_min_length %d",
			r.SummaryMaxLength, r.SummaryMinLength)
	}
	if r.HighQualityMaxIssues >= r.MediumQualityMaxIssues {
		return fmt.Errorf("quality_rules.high_quality_max_issues %d must be below medium_quality_max_issues %d",
			r.HighQualityMaxIssues, r.MediumQualityMaxIssues)
	}

	for i, rule := range snap.Transitions.Rules {
		if rule.TargetStatus == "" {
			return fmt.Errorf("transitions.rules[%d] (%q) has no target_status", i, rule.Name)
		}
		for _, cond := range rule.Conditions {
			if !knownConditions[cond] {
				return fmt.Errorf("transitions.rules[%d] (%q) references unknown condition %q", i, rule.Name, cond)
			}
		}
	}

	if snap.Processing.WorkerConcurrency < 1 {
		return fmt.Errorf("processing.worker_concurrency must be at least 1, got %d", snap.Processing.WorkerConcurrency)
	}

	for i, p := range snap.Profiles {
		if p.JQL == "" {
			return fmt.Errorf("search_profiles[%d] (%q) has no jql", i, p.Name)
		}
		if p.Interval <= 0 {
			return fmt.Errorf("search_profiles[%d] (%q) has no positive interval", i, p.Name)
		}
	}

	return nil
}
