package registry

import (
	"database/sql"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/sparkjar/crew-orchestrator/internal/config"
	"github.com/sparkjar/crew-orchestrator/pkg/events"
	"github.com/sparkjar/crew-orchestrator/pkg/policy"
	"github.com/sparkjar/crew-orchestrator/pkg/rules"
	"github.com/sparkjar/crew-orchestrator/pkg/workflow"
)

// Dependencies contains the shared dependencies for all modules
type Dependencies struct {
	DB                  *sql.DB
	DBX                 *sqlx.DB
	Config              *config.Config
	EventBus            *events.Bus
	RuleEngine          *rules.RuleEngine
	PolicyEngine        *policy.Engine
	StateMachineFactory *workflow.StateMachineFactory
	Logger              *slog.Logger
}
