package routing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/upb/campusiq-portal/models"
	"gopkg.in/yaml.v3"
)

//go:embed routes.yaml
var defaultTable []byte

var validate = validator.New()

// RouteRule gates one page path. An empty AllowedRoles means any
// authenticated principal may open it.
type RouteRule struct {
	Path         string
	AllowedRoles []models.Role
}

// Restricted returns true if the rule names specific roles
func (r RouteRule) Restricted() bool {
	return len(r.AllowedRoles) > 0
}

// Allows returns true if role may open the route
func (r RouteRule) Allows(role models.Role) bool {
	if !r.Restricted() {
		return true
	}
	for _, allowed := range r.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// matches compares a concrete path against the rule's pattern.
// Segments written as {name} match any single non-empty segment.
func (r RouteRule) matches(path string) bool {
	pattern := splitPath(r.Path)
	actual := splitPath(path)
	if len(pattern) != len(actual) {
		return false
	}
	for i, seg := range pattern {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if actual[i] == "" {
				return false
			}
			continue
		}
		if seg != actual[i] {
			return false
		}
	}
	return true
}

// RoleHomeMap maps each role to its landing path
type RoleHomeMap map[models.Role]string

// Home returns the landing path for role
func (m RoleHomeMap) Home(role models.Role) (string, bool) {
	path, ok := m[role]
	return path, ok && path != ""
}

// Validate checks that every role has a home
func (m RoleHomeMap) Validate() error {
	for _, role := range models.AllRoles() {
		if _, ok := m.Home(role); !ok {
			return &RouteConfigurationError{Role: role, Reason: "no home path configured"}
		}
	}
	return nil
}

// Table is the portal's static page configuration
type Table struct {
	LoginPath string
	RootPath  string
	Rules     []RouteRule
	Homes     RoleHomeMap
}

// Lookup returns the first rule matching path
func (t *Table) Lookup(path string) (RouteRule, bool) {
	for _, rule := range t.Rules {
		if rule.matches(path) {
			return rule, true
		}
	}
	return RouteRule{}, false
}

// Validate checks the table for defects that would otherwise surface as
// silent fallbacks or redirect loops at navigation time
func (t *Table) Validate() error {
	if !strings.HasPrefix(t.LoginPath, "/") {
		return &RouteConfigurationError{Path: t.LoginPath, Reason: "login path must be absolute"}
	}
	if !strings.HasPrefix(t.RootPath, "/") {
		return &RouteConfigurationError{Path: t.RootPath, Reason: "root path must be absolute"}
	}

	seen := make(map[string]bool, len(t.Rules))
	for _, rule := range t.Rules {
		if !strings.HasPrefix(rule.Path, "/") {
			return &RouteConfigurationError{Path: rule.Path, Reason: "route path must be absolute"}
		}
		if seen[rule.Path] {
			return &RouteConfigurationError{Path: rule.Path, Reason: "duplicate route"}
		}
		if rule.Path == t.RootPath || rule.Path == t.LoginPath {
			return &RouteConfigurationError{Path: rule.Path, Reason: "root and login paths cannot be guarded routes"}
		}
		seen[rule.Path] = true
	}

	if err := t.Homes.Validate(); err != nil {
		return err
	}

	for _, role := range models.AllRoles() {
		home, _ := t.Homes.Home(role)
		if home == t.RootPath || home == t.LoginPath {
			return &RouteConfigurationError{Role: role, Path: home, Reason: "home path would redirect to itself"}
		}
		rule, ok := t.Lookup(home)
		if !ok {
			return &RouteConfigurationError{Role: role, Path: home, Reason: "home path is not a configured route"}
		}
		if !rule.Allows(role) {
			return &RouteConfigurationError{Role: role, Path: home, Reason: "home path does not admit its own role"}
		}
	}

	return nil
}

// tableFile is the YAML shape of a route table
type tableFile struct {
	Login  string `yaml:"login" validate:"omitempty,startswith=/"`
	Root   string `yaml:"root" validate:"omitempty,startswith=/"`
	Routes []struct {
		Path  string   `yaml:"path" validate:"required,startswith=/"`
		Roles []string `yaml:"roles" validate:"dive,required"`
	} `yaml:"routes" validate:"dive"`
	Homes map[string]string `yaml:"homes" validate:"dive,keys,required,endkeys,required,startswith=/"`
}

// check runs the field rules of the YAML shape
func (f *tableFile) check() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &RouteConfigurationError{
			Path:   fmt.Sprint(fe.Value()),
			Reason: fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()),
		}
	}
	return fmt.Errorf("failed to validate route table: %w", err)
}

// Parse builds and validates a table from YAML
func Parse(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}
	if err := file.check(); err != nil {
		return nil, err
	}

	table := &Table{
		LoginPath: file.Login,
		RootPath:  file.Root,
		Rules:     make([]RouteRule, 0, len(file.Routes)),
		Homes:     make(RoleHomeMap, len(file.Homes)),
	}
	if table.LoginPath == "" {
		table.LoginPath = "/login"
	}
	if table.RootPath == "" {
		table.RootPath = "/"
	}

	for _, r := range file.Routes {
		rule := RouteRule{Path: r.Path}
		for _, raw := range r.Roles {
			role, err := models.ParseRole(raw)
			if err != nil {
				return nil, &RouteConfigurationError{Path: r.Path, Reason: err.Error()}
			}
			rule.AllowedRoles = append(rule.AllowedRoles, role)
		}
		table.Rules = append(table.Rules, rule)
	}

	for raw, path := range file.Homes {
		role, err := models.ParseRole(raw)
		if err != nil {
			return nil, &RouteConfigurationError{Path: path, Reason: err.Error()}
		}
		table.Homes[role] = path
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Load reads a table from path, or the built-in table when path is empty
func Load(path string) (*Table, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in table
func Default() (*Table, error) {
	return Parse(defaultTable)
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
