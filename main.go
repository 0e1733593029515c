package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lernio/lernio/internal/app"
	"github.com/lernio/lernio/internal/config"
	"github.com/lernio/lernio/internal/database"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func init() {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

var configFlag = &cli.StringFlag{
	Name:    "config",
	Value:   "./config/application.yaml",
	Usage:   "path to the YAML configuration file",
	EnvVars: []string{"LERNIO_CONFIG"},
}

func main() {
	cliApp := &cli.App{
		Name:   "lernio",
		Usage:  "LMS calendar with Google Calendar synchronization",
		Flags:  []cli.Flag{configFlag},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the scheduled calendar sync",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "Apply database migrations and exit",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String(configFlag.Name))
					if err != nil {
						return err
					}
					if err := database.Migrate(cfg.Database); err != nil {
						return err
					}
					log.Info("Database migrated")
					return nil
				},
			},
			{
				Name:  "sync-user",
				Usage: "Mirror all events visible to a user into their Google Calendar",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "user-id", Usage: "internal id of the user", Required: true},
				},
				Action: syncUser,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(ctx, c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	return application.Run(ctx)
}

func syncUser(c *cli.Context) error {
	ctx := context.WithoutCancel(c.Context)
	application, err := app.NewApplication(ctx, c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	result, err := application.SyncUser(ctx, c.Int("user-id"))
	if err != nil {
		return err
	}
	fmt.Println(result.Summary())
	for _, itemErr := range result.Errors {
		fmt.Printf("  event %d: %s\n", itemErr.EventId, itemErr.Message)
	}
	return nil
}
