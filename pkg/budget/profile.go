package budget

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scope is the dimension a bucket is keyed on.
type Scope string

const (
	// ScopeExecution keys the bucket to a single execution.
	ScopeExecution Scope = "execution"

	// ScopeGroup keys the bucket to a group or team.
	ScopeGroup Scope = "group"

	// ScopeGlobal keys the bucket to one shared global counter.
	ScopeGlobal Scope = "global"

	// ScopeCustom keys the bucket to an arbitrary template over
	// context fields.
	ScopeCustom Scope = "custom"
)

// defaultTemplates supplies the key template implied by each scope when
// the profile leaves it empty. Custom-scope buckets must declare one.
var defaultTemplates = map[Scope]string{
	ScopeExecution: "{execution_id}",
	ScopeGroup:     "{group_id}",
	ScopeGlobal:    "global",
}

// Bucket is a named, scoped counter declaration. Buckets are created at
// profile load time and immutable afterward.
type Bucket struct {
	// Name identifies the bucket within its profile.
	Name string `yaml:"name"`

	// Scope is one of execution, group, global, custom.
	Scope Scope `yaml:"scope"`

	// KeyTemplate contains {field} placeholders resolved against the
	// budget context. Defaults by scope when empty.
	KeyTemplate string `yaml:"key_template"`

	// Limit is the initial budget in cycles for each resolved key.
	Limit float64 `yaml:"limit"`

	// Thresholds are the zone boundaries as spent fractions.
	Thresholds Thresholds `yaml:"thresholds"`
}

// Throttle configures the minimum delay before a decision is returned.
type Throttle struct {
	// MinDelayMS is the wait in milliseconds. Zero means no throttle.
	MinDelayMS int64 `yaml:"min_delay_ms"`
}

// MinDelay returns the throttle delay as a duration.
func (t Throttle) MinDelay() time.Duration {
	return time.Duration(t.MinDelayMS) * time.Millisecond
}

// Retries caps caller-level retries of the guarded action.
type Retries struct {
	Max int `yaml:"max"`
}

// Fallback hints at a cheaper strategy for the caller (e.g. summarize_only).
type Fallback struct {
	Strategy string `yaml:"strategy"`
}

// Policy is the per-zone behavior bundle. Pure configuration: consulted,
// never mutated, by the engine.
type Policy struct {
	// AllowedActions, when non-empty, is a whitelist: any other action
	// class is blocked in this zone.
	AllowedActions []string `yaml:"allowed_actions"`

	// BlockedActions lists action classes rejected in this zone.
	BlockedActions []string `yaml:"blocked_actions"`

	// Degrade carries caller-defined degradation knobs
	// (model_tier, context_window, ...).
	Degrade map[string]string `yaml:"degrade"`

	// Throttle is the minimum delay applied before returning a decision.
	Throttle Throttle `yaml:"throttle"`

	// Retries caps caller-level retries of the guarded action.
	Retries Retries `yaml:"retries"`

	// OnExhaust selects halt or report_only accounting for burns made
	// while this zone is current.
	OnExhaust ExhaustMode `yaml:"on_exhaust"`

	// Fallback is the strategy hint carried on red report-only decisions.
	Fallback Fallback `yaml:"fallback"`
}

// allows reports whether the policy permits the given action class.
// An empty action is always permitted.
func (p *Policy) allows(action string) bool {
	if action == "" {
		return true
	}
	for _, blocked := range p.BlockedActions {
		if blocked == action {
			return false
		}
	}
	if len(p.AllowedActions) > 0 {
		for _, allowed := range p.AllowedActions {
			if allowed == action {
				return true
			}
		}
		return false
	}
	return true
}

// Profile is a named bundle of buckets plus the zone policy map.
// Profiles are loaded once and read-only for the engine's lifetime.
type Profile struct {
	// Name identifies the profile.
	Name string `yaml:"name"`

	// Buckets are the counters every evaluation burns against.
	Buckets []Bucket `yaml:"buckets"`

	// Policies maps zone name (green, yellow, orange, red) to policy.
	// All four zones must be present.
	Policies map[string]Policy `yaml:"policies"`
}

// Policy returns the policy for zone. Profiles are validated at load
// time, so a missing entry here is a programming error, not a runtime
// condition, and yields the zero policy.
func (p *Profile) Policy(zone Zone) Policy {
	return p.Policies[zone.String()]
}

// ApplyDefaults fills in scope-implied key templates.
func (p *Profile) ApplyDefaults() {
	for i := range p.Buckets {
		b := &p.Buckets[i]
		if b.KeyTemplate == "" {
			b.KeyTemplate = defaultTemplates[b.Scope]
		}
	}
	for zone, pol := range p.Policies {
		if pol.OnExhaust == "" {
			pol.OnExhaust = ExhaustHalt
			p.Policies[zone] = pol
		}
	}
}

// Validate checks the profile invariants: non-empty name, at least one
// bucket, positive limits, monotonic thresholds, resolvable templates,
// a policy for every zone, and valid exhaust modes. All errors are
// collected and returned together as a ConfigError.
func (p *Profile) Validate() error {
	var errs []FieldError

	if p.Name == "" {
		errs = append(errs, FieldError{"profile.name", "name cannot be empty"})
	}
	if len(p.Buckets) == 0 {
		errs = append(errs, FieldError{fmt.Sprintf("profiles.%s.buckets", p.Name), "at least one bucket is required"})
	}

	seen := make(map[string]bool)
	for _, b := range p.Buckets {
		field := fmt.Sprintf("profiles.%s.buckets.%s", p.Name, b.Name)
		if b.Name == "" {
			errs = append(errs, FieldError{field, "bucket name cannot be empty"})
		}
		if seen[b.Name] {
			errs = append(errs, FieldError{field, "duplicate bucket name"})
		}
		seen[b.Name] = true

		switch b.Scope {
		case ScopeExecution, ScopeGroup, ScopeGlobal, ScopeCustom:
		default:
			errs = append(errs, FieldError{field + ".scope", fmt.Sprintf("unknown scope %q", b.Scope)})
		}
		if b.Scope == ScopeCustom && b.KeyTemplate == "" {
			errs = append(errs, FieldError{field + ".key_template", "custom scope requires a key template"})
		}
		if b.Limit <= 0 {
			errs = append(errs, FieldError{field + ".limit", "limit must be positive"})
		}
		errs = append(errs, b.Thresholds.validate(field+".thresholds")...)
	}

	for _, zone := range Zones() {
		pol, ok := p.Policies[zone.String()]
		if !ok {
			errs = append(errs, FieldError{
				fmt.Sprintf("profiles.%s.policies.%s", p.Name, zone),
				"missing zone policy",
			})
			continue
		}
		field := fmt.Sprintf("profiles.%s.policies.%s", p.Name, zone)
		switch pol.OnExhaust {
		case ExhaustHalt, ExhaustReportOnly:
		default:
			errs = append(errs, FieldError{field + ".on_exhaust", fmt.Sprintf("unknown exhaust mode %q", pol.OnExhaust)})
		}
		if pol.Throttle.MinDelayMS < 0 {
			errs = append(errs, FieldError{field + ".throttle.min_delay_ms", "delay cannot be negative"})
		}
		if pol.Retries.Max < 0 {
			errs = append(errs, FieldError{field + ".retries.max", "retry ceiling cannot be negative"})
		}
	}
	for zone := range p.Policies {
		if _, err := ParseZone(zone); err != nil {
			errs = append(errs, FieldError{fmt.Sprintf("profiles.%s.policies.%s", p.Name, zone), "unknown zone"})
		}
	}

	if len(errs) > 0 {
		return ConfigError{Errors: errs}
	}
	return nil
}

// profileFile is the YAML document shape for profile files.
type profileFile struct {
	Profiles []*Profile `yaml:"profiles"`
}

// ParseProfiles parses a YAML document containing one or more profiles,
// applies defaults, and validates each. Validation fails fast: an invalid
// profile file never produces a usable engine.
func ParseProfiles(data []byte) ([]*Profile, error) {
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if len(file.Profiles) == 0 {
		return nil, configErrorf("profiles", "no profiles defined")
	}

	var errs []FieldError
	names := make(map[string]bool)
	for _, p := range file.Profiles {
		p.ApplyDefaults()
		if names[p.Name] {
			errs = append(errs, FieldError{fmt.Sprintf("profiles.%s", p.Name), "duplicate profile name"})
		}
		names[p.Name] = true
		if err := p.Validate(); err != nil {
			var ce ConfigError
			if asConfigError(err, &ce) {
				errs = append(errs, ce.Errors...)
			} else {
				errs = append(errs, FieldError{fmt.Sprintf("profiles.%s", p.Name), err.Error()})
			}
		}
	}
	if len(errs) > 0 {
		return nil, ConfigError{Errors: errs}
	}
	return file.Profiles, nil
}

// LoadProfiles reads and parses a profile file from path.
func LoadProfiles(path string) ([]*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %q: %w", path, err)
	}
	profiles, err := ParseProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("profile file %q: %w", path, err)
	}
	return profiles, nil
}

func asConfigError(err error, target *ConfigError) bool {
	ce, ok := err.(ConfigError)
	if ok {
		*target = ce
	}
	return ok
}
