package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultProfileName is used when no profile has been configured yet.
	DefaultProfileName = "local"

	// DefaultBaseURL points at the development server's default listen address.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultUploadCategory is the folder_type sent with avatar uploads.
	DefaultUploadCategory = "user"
)

// Registry represents the entire user configuration file.
// It stores named backend profiles and application preferences.
type Registry struct {
	Version        int                 `yaml:"version"`
	CurrentProfile string              `yaml:"current_profile,omitempty"`
	Profiles       map[string]*Profile `yaml:"profiles,omitempty"` // Keyed by profile name
	Preferences    *Preferences        `yaml:"preferences,omitempty"`
}

// Profile describes one backend the console can talk to.
// Tokens are never stored here; they come from --token or USERADMIN_TOKEN.
type Profile struct {
	BaseURL        string    `yaml:"base_url"`
	UploadCategory string    `yaml:"upload_category,omitempty"` // folder_type for avatar uploads
	TimeoutSeconds int       `yaml:"timeout_seconds,omitempty"`
	PageSize       int       `yaml:"page_size,omitempty"` // Rows per page in the user table
	LastUsed       time.Time `yaml:"last_used,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	AutoDiscover     bool `yaml:"auto_discover"`      // Browse mDNS for development servers on startup
	DiscoverTimeout  int  `yaml:"discover_timeout"`   // mDNS discovery timeout in seconds
	SearchDebounceMs int  `yaml:"search_debounce_ms"` // Delay before a dropdown search hits the backend
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:        1,
		CurrentProfile: DefaultProfileName,
		Profiles: map[string]*Profile{
			DefaultProfileName: NewProfile(DefaultBaseURL),
		},
		Preferences: defaultPreferences(),
	}
}

// NewProfile returns a profile for baseURL with default settings.
func NewProfile(baseURL string) *Profile {
	return &Profile{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		UploadCategory: DefaultUploadCategory,
		TimeoutSeconds: 10,
		PageSize:       10,
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		AutoDiscover:     false,
		DiscoverTimeout:  5,
		SearchDebounceMs: 800,
	}
}

// Timeout returns the request timeout for the profile.
func (p *Profile) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Category returns the upload category, falling back to DefaultUploadCategory.
func (p *Profile) Category() string {
	if p.UploadCategory == "" {
		return DefaultUploadCategory
	}
	return p.UploadCategory
}

// SearchDebounce returns the dropdown search delay.
func (p *Preferences) SearchDebounce() time.Duration {
	if p == nil || p.SearchDebounceMs <= 0 {
		return 800 * time.Millisecond
	}
	return time.Duration(p.SearchDebounceMs) * time.Millisecond
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	return nil
}

// GetProfile retrieves a profile by name.
// Returns nil if the profile doesn't exist in the registry.
func (r *Registry) GetProfile(name string) *Profile {
	return r.Profiles[name]
}

// Current returns the active profile, creating the default one if needed.
func (r *Registry) Current() (string, *Profile) {
	name := r.CurrentProfile
	if name == "" {
		name = DefaultProfileName
	}
	return name, r.EnsureProfile(name)
}

// EnsureProfile ensures a profile entry exists in the registry.
// Returns the profile entry (existing or newly created).
func (r *Registry) EnsureProfile(name string) *Profile {
	if r.Profiles == nil {
		r.Profiles = make(map[string]*Profile)
	}

	if p, exists := r.Profiles[name]; exists {
		return p
	}

	p := NewProfile(DefaultBaseURL)
	r.Profiles[name] = p
	return p
}

// SetProfile creates or replaces the base URL of a named profile.
func (r *Registry) SetProfile(name, baseURL string) error {
	if name == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if err := ValidateBaseURL(baseURL); err != nil {
		return err
	}
	p := r.EnsureProfile(name)
	p.BaseURL = strings.TrimRight(baseURL, "/")
	return nil
}

// UseProfile makes name the current profile.
func (r *Registry) UseProfile(name string) error {
	if _, ok := r.Profiles[name]; !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	r.CurrentProfile = name
	return nil
}

// TouchProfile records that a profile was just used.
func (r *Registry) TouchProfile(name string) {
	r.EnsureProfile(name).LastUsed = time.Now()
}

// ProfileNames returns profile names in sorted order.
func (r *Registry) ProfileNames() []string {
	names := make([]string, 0, len(r.Profiles))
	for name := range r.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
