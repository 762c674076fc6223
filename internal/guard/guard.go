package guard

import (
	"github.com/upb/campusiq-portal/internal/observability"
	"github.com/upb/campusiq-portal/internal/routing"
	"github.com/upb/campusiq-portal/models"
	"go.uber.org/zap"
)

// Outcome is the result class of a guard decision
type Outcome int

const (
	// OutcomeLoading means the session is still resolving; nothing is decided
	OutcomeLoading Outcome = iota
	// OutcomeUnauthenticated redirects to the login path
	OutcomeUnauthenticated
	// OutcomeAuthorized renders the requested page
	OutcomeAuthorized
	// OutcomeForbidden redirects to the principal's home
	OutcomeForbidden
	// OutcomeHome redirects from the root path to the principal's home
	OutcomeHome
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeAuthorized:
		return "authorized"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeHome:
		return "home"
	default:
		return "unknown"
	}
}

// Decision is the guard's verdict for one navigation
type Decision struct {
	Outcome    Outcome
	RedirectTo string

	// ConfigErr is set when the principal's role has no home and the
	// decision fell back to the login path
	ConfigErr *routing.RouteConfigurationError
}

// Redirects returns true if the navigation must move elsewhere
func (d Decision) Redirects() bool {
	return d.RedirectTo != ""
}

// Decide evaluates rule against state. Role membership is only consulted
// once the state has settled.
func Decide(table *routing.Table, state models.AuthState, rule routing.RouteRule) Decision {
	if state.Resolving {
		return Decision{Outcome: OutcomeLoading}
	}
	if state.Principal == nil {
		return Decision{Outcome: OutcomeUnauthenticated, RedirectTo: table.LoginPath}
	}
	if rule.Allows(state.Principal.Role) {
		return Decision{Outcome: OutcomeAuthorized}
	}

	decision := Decision{Outcome: OutcomeForbidden}
	decision.RedirectTo, decision.ConfigErr = home(table, state.Principal.Role)
	return decision
}

// DecideHome evaluates a navigation to the root path. A principal whose
// home is currentPath renders in place instead of redirecting to itself.
func DecideHome(table *routing.Table, state models.AuthState, currentPath string) Decision {
	if state.Resolving {
		return Decision{Outcome: OutcomeLoading}
	}
	if state.Principal == nil {
		return Decision{Outcome: OutcomeUnauthenticated, RedirectTo: table.LoginPath}
	}

	target, configErr := home(table, state.Principal.Role)
	if configErr == nil && target == currentPath {
		return Decision{Outcome: OutcomeAuthorized}
	}
	return Decision{Outcome: OutcomeHome, RedirectTo: target, ConfigErr: configErr}
}

func home(table *routing.Table, role models.Role) (string, *routing.RouteConfigurationError) {
	if path, ok := table.Homes.Home(role); ok {
		return path, nil
	}
	return table.LoginPath, &routing.RouteConfigurationError{Role: role, Reason: "no home path configured"}
}

// Guard applies decisions against a route table, logging configuration
// fallbacks and counting outcomes
type Guard struct {
	table   *routing.Table
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New creates a new Guard
func New(table *routing.Table, metrics *observability.Metrics, logger *zap.Logger) *Guard {
	return &Guard{
		table:   table,
		metrics: metrics,
		logger:  logger,
	}
}

// Table returns the route table the guard enforces
func (g *Guard) Table() *routing.Table {
	return g.table
}

// Check decides a navigation to a configured route
func (g *Guard) Check(state models.AuthState, rule routing.RouteRule) Decision {
	return g.record(rule.Path, Decide(g.table, state, rule))
}

// CheckHome decides a navigation to the root path
func (g *Guard) CheckHome(state models.AuthState, currentPath string) Decision {
	return g.record(g.table.RootPath, DecideHome(g.table, state, currentPath))
}

func (g *Guard) record(route string, d Decision) Decision {
	g.metrics.RecordGuardDecision(route, d.Outcome.String())
	if d.ConfigErr != nil {
		g.logger.Error("route configuration error, falling back to login",
			zap.String("route", route),
			zap.Error(d.ConfigErr))
	}
	return d
}
