package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/ganot/timekeep/internal/domain/activity"
	"github.com/ganot/timekeep/internal/domain/profile"
	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/ganot/timekeep/internal/domain/session"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Timer is the per-user session controller surface the tools drive.
type Timer interface {
	Load(ctx context.Context) (session.TimerState, error)
	State() session.TimerState
	Now() time.Time
	Start(ctx context.Context, req session.StartRequest) (session.TimerState, error)
	Pause(ctx context.Context) (session.TimerState, error)
	Resume(ctx context.Context) (session.TimerState, error)
	Stop(ctx context.Context) (*session.Summary, error)
	Reset(ctx context.Context) error
	TakeOver(ctx context.Context) (session.TimerState, error)
	Abandon(ctx context.Context) error
	SetNotes(ctx context.Context, notes string) (session.TimerState, error)
	FlushNotes(ctx context.Context) error
	SetProject(ctx context.Context, projectID, projectName string) (session.TimerState, error)
	SetBillable(ctx context.Context, billable bool) (session.TimerState, error)
}

// TimerProvider hands out the device's controller for a user.
type TimerProvider interface {
	Timer(ctx context.Context, userID string) (Timer, error)
}

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Create(ctx context.Context, userID string, req project.CreateRequest) (*project.Project, error)
	List(ctx context.Context, userID string) ([]project.Project, error)
	Get(ctx context.Context, userID, id string) (*project.Project, error)
}

// ProfileService defines profile operations needed by MCP.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*profile.Profile, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, userID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Timers   TimerProvider
	Projects ProjectService
	Profiles ProfileService
	Activity ActivityService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      UserResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	// DefaultUser is the user for stdio mode and for HTTP without auth.
	DefaultUser string
	Logger      *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "timekeep",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	// Middleware added later wraps earlier middleware, so auth runs before
	// traffic logging sees the request.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(cfg.DefaultUser))
	}

	registerTools(server, NewHandler(cfg.Services, logger))
	return server
}
