// cmd/tools/portal-admin/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"creative-funding/internal/common/config"
	"creative-funding/internal/common/database"
	"creative-funding/internal/common/logger"
	"creative-funding/internal/models"
	"creative-funding/internal/repository"
	"creative-funding/internal/roles"
	"creative-funding/pkg/registry"

	aar "creative-funding/internal/workers/application/assess-application-risk"
	sdn "creative-funding/internal/workers/application/send-decision-notification"
	vas "creative-funding/internal/workers/application/validate-application-submission"
)

// implemented are the task types this build has handlers for.
var implemented = map[string]bool{
	vas.TaskType: true,
	aar.TaskType: true,
	sdn.TaskType: true,
}

func main() {
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	grantCmd := flag.NewFlagSet("grant-role", flag.ExitOnError)
	showCmd := flag.NewFlagSet("show-role", flag.ExitOnError)
	workersCmd := flag.NewFlagSet("workers", flag.ExitOnError)

	// Migrate command flags
	steps := migrateCmd.Int("steps", 1, "Number of migrations to revert with down")

	// Grant command flags
	grantUser := grantCmd.String("user-id", "", "Identity provider user id")
	grantEmail := grantCmd.String("email", "", "Email stored when the profile does not exist yet")
	grantRole := grantCmd.String("role", "", "Role to grant (user, reviewer, admin)")
	grantActor := grantCmd.String("actor", "", "Operator recorded in the audit log")

	// Show command flags
	showUser := showCmd.String("user-id", "", "Identity provider user id")

	// Workers command flags
	registryPath := workersCmd.String("path", "configs/activity-registry.json", "Path to activity registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		direction := migrateCmd.Arg(0)
		if direction != "up" && direction != "down" && direction != "version" {
			fmt.Println("Error: migrate needs one of up, down or version.")
			migrateCmd.Usage()
			os.Exit(1)
		}
		if err := runMigrate(ctx, direction, *steps); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}

	case "grant-role":
		grantCmd.Parse(os.Args[2:])
		if *grantUser == "" || *grantRole == "" || *grantActor == "" {
			fmt.Println("Error: user-id, role and actor are required for grant-role.")
			grantCmd.Usage()
			os.Exit(1)
		}
		previous, err := grant(ctx, *grantUser, *grantEmail, models.Role(strings.ToLower(*grantRole)), *grantActor)
		if err != nil {
			fmt.Printf("Error granting role: %v\n", err)
			os.Exit(1)
		}
		if previous == "" {
			previous = "none"
		}
		fmt.Printf("Granted %s to %s (previous role: %s)\n", *grantRole, *grantUser, previous)

	case "show-role":
		showCmd.Parse(os.Args[2:])
		if *showUser == "" {
			fmt.Println("Error: user-id is required for show-role.")
			showCmd.Usage()
			os.Exit(1)
		}
		if err := show(ctx, *showUser); err != nil {
			fmt.Printf("Error reading profile: %v\n", err)
			os.Exit(1)
		}

	case "workers":
		workersCmd.Parse(os.Args[2:])
		if err := listWorkers(*registryPath); err != nil {
			fmt.Printf("Registry check failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func connect(ctx context.Context) (*config.Config, *database.PostgresClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("postgres unreachable: %w", err)
	}
	return cfg, pg, nil
}

func runMigrate(ctx context.Context, direction string, steps int) error {
	_, pg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pg.Close()

	migrator, err := database.NewMigrator(pg.DB)
	if err != nil {
		return err
	}

	switch direction {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down(steps)
	}
	if err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	fmt.Printf("Schema at version %d (dirty: %t)\n", version, dirty)
	return nil
}

// grant stores the role and drops the cached role so the change applies on the next request.
func grant(ctx context.Context, userID, email string, role models.Role, actorID string) (models.Role, error) {
	cfg, pg, err := connect(ctx)
	if err != nil {
		return "", err
	}
	defer pg.Close()

	profiles := repository.NewProfiles(pg.DB)
	previous, err := profiles.GrantRole(ctx, userID, email, role, actorID, time.Now().UTC())
	if err != nil {
		return "", err
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return previous, err
	}
	defer rdb.Close()

	resolver := roles.NewResolver(profiles, rdb.Client, cfg.Auth, repository.NewAuditLog(pg.DB), logger.NewNoOpLogger())
	if err := resolver.Invalidate(ctx, userID); err != nil {
		fmt.Printf("Warning: cached role not cleared, change applies after %s: %v\n",
			config.GetDuration(cfg.Auth.RoleCacheTTL), err)
	}
	return previous, nil
}

func show(ctx context.Context, userID string) error {
	cfg, pg, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pg.Close()

	profile, err := repository.NewProfiles(pg.DB).Get(ctx, userID)
	if err != nil {
		return err
	}

	fmt.Printf("User:   %s\n", profile.ID)
	fmt.Printf("Email:  %s\n", profile.Email)
	fmt.Printf("Role:   %s\n", profile.Role)
	if cfg.Auth.IsBootstrapAdmin(profile.Email) {
		fmt.Println("Note:   email is a bootstrap admin; access resolves as admin regardless of role")
	}
	return nil
}

// listWorkers checks the registry against the configured and implemented workers.
func listWorkers(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	missing := 0
	for _, a := range reg.ServiceTasks() {
		wcfg := config.GetWorkerConfig(cfg, a.TaskType)
		state := "ok"
		if !implemented[a.TaskType] {
			state = "NO HANDLER"
			missing++
		}
		fmt.Printf("%-36s enabled=%-5t maxJobs=%-3d timeout=%-6s %s\n",
			a.TaskType, wcfg.Enabled, wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), state)
	}
	for taskType := range cfg.Workers {
		if _, ok := reg.Find(taskType); !ok {
			fmt.Printf("%-36s configured but not in registry\n", taskType)
		}
	}

	if missing > 0 {
		return fmt.Errorf("%d registered task types have no handler", missing)
	}
	return nil
}

func help() {
	fmt.Println("Usage: portal-admin <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  migrate up|down|version   Apply or revert schema migrations")
	fmt.Println("  grant-role                Grant a role to a user (audited)")
	fmt.Println("  show-role                 Show the stored role of a user")
	fmt.Println("  workers                   Check the activity registry against configured workers")
	fmt.Println("  help                      Show this help message")
	fmt.Println("\nUse 'portal-admin <command> -h' for more information about a command.")
}
