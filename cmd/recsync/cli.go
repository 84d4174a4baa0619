package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	records "github.com/goliatone/go-records"
	"github.com/goliatone/go-records/internal/config"
	"github.com/goliatone/go-records/pkg/activity"
	"github.com/goliatone/go-records/pkg/memory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// CLI wires configuration, the model registry and the cobra commands.
type CLI struct {
	v        *viper.Viper
	root     *cobra.Command
	logger   *slog.Logger
	file     *config.File
	registry *records.Registry
	backend  *memory.Backend
}

// NewCLI builds the command tree.
func NewCLI() *CLI {
	cli := &CLI{v: viper.New()}
	cli.setupViper()
	cli.createRootCommand()
	cli.addCommands()
	return cli
}

// Execute runs the root command.
func (c *CLI) Execute() error {
	return c.root.Execute()
}

// setupViper reads RECSYNC_* variables and an optional recsync.yaml.
func (c *CLI) setupViper() {
	if path := os.Getenv("RECSYNC_CONFIG"); path != "" {
		c.v.SetConfigFile(path)
	} else {
		c.v.SetConfigName("recsync")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME/.recsync")
	}
	c.v.SetEnvPrefix("RECSYNC")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.ReadInConfig()
}

func (c *CLI) createRootCommand() {
	c.root = &cobra.Command{
		Use:   "recsync",
		Short: "Load, edit and sync remote records",
		Long: `recsync maps model definitions onto a REST endpoint and runs
record and store operations against it.

Configuration sources, strongest first:
  1. command line flags
  2. environment variables (RECSYNC_*)
  3. recsync.yaml (RECSYNC_CONFIG, ./, ~/.recsync/)

Examples:
  recsync --memory load users --filter 'role == "admin"' --sort name
  recsync --models models.yaml --base-url https://api.example.com get user 7`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			c.logger = newLogger(cmd.ErrOrStderr(), c.v.GetString("log-level"), c.v.GetString("log-format"))
			return c.bootstrap()
		},
	}

	flags := c.root.PersistentFlags()
	flags.String("models", "", "YAML model definitions")
	flags.String("base-url", "", "base url for relative operation urls")
	flags.StringArray("header", nil, "extra request header, key:value")
	flags.Bool("memory", false, "run against a seeded in-memory backend")
	flags.String("seed", "", "YAML seed data for --memory, collection: [rows]")
	flags.Duration("timeout", 30*time.Second, "timeout for each remote operation")
	flags.StringP("format", "f", "json", "output format (json|yaml)")
	flags.String("log-level", "warn", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (text|json)")
	flags.Bool("activity", false, "log record and store activity events")
	flags.String("actor", "", "actor id attached to activity events")
}

// bootstrap loads the model definitions and defines them on a fresh registry.
func (c *CLI) bootstrap() error {
	file, err := c.loadModels()
	if err != nil {
		return err
	}
	c.file = file

	shared := []records.ModelOption{
		records.WithRequestLogger(records.SlogRequestLogger(c.logger)),
		records.WithEvaluatorLogger(records.SlogEvaluatorLogger(c.logger)),
		records.WithFunctionRegistry(records.BuiltinFunctions()),
		records.WithProgramCache(records.NewMemoryProgramCache()),
	}
	if c.v.GetBool("activity") {
		shared = append(shared, records.WithActivityHooks(activity.Hooks{c.activityHook()}, activity.Config{}))
	}
	c.registry = records.NewRegistry(records.WithModelDefaults(shared...))

	if !c.v.GetBool("memory") {
		transport := records.NewHTTPTransport(c.baseURL(), c.headerOptions()...)
		_, err := file.Apply(c.registry, records.WithTransport(transport))
		return err
	}

	c.backend = memory.New()
	if err := c.seedBackend(); err != nil {
		return err
	}
	for _, name := range file.Names() {
		opts, err := file.Options(name)
		if err != nil {
			return err
		}
		c.registry.Define(name, append(opts, memory.ModelOptions(c.backend, name)...)...)
	}
	return nil
}

func (c *CLI) loadModels() (*config.File, error) {
	if path := c.v.GetString("models"); path != "" {
		return config.Load(path)
	}
	if c.v.GetBool("memory") {
		return config.Parse([]byte(demoModels))
	}
	return nil, fmt.Errorf("no model definitions: pass --models or --memory")
}

func (c *CLI) baseURL() string {
	if url := c.v.GetString("base-url"); url != "" {
		return url
	}
	return c.file.BaseURL
}

func (c *CLI) headerOptions() []records.HTTPOption {
	var opts []records.HTTPOption
	for _, header := range c.v.GetStringSlice("header") {
		key, value, ok := strings.Cut(header, ":")
		if !ok {
			c.logger.Warn("ignoring malformed header", "header", header)
			continue
		}
		opts = append(opts, records.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
	}
	return opts
}

func (c *CLI) seedBackend() error {
	raw := []byte(demoSeed)
	if path := c.v.GetString("seed"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed %s: %w", path, err)
		}
		raw = data
	} else if c.v.GetString("models") != "" {
		return nil
	}
	var seed map[string][]map[string]any
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for collection, rows := range seed {
		c.backend.Seed(collection, rows...)
	}
	return nil
}

func (c *CLI) activityHook() activity.ActivityHook {
	return activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		c.logger.Info("activity",
			"verb", event.Verb,
			"object_type", event.ObjectType,
			"object_id", event.ObjectID,
			"actor_id", event.ActorID,
			"channel", event.Channel,
			"metadata", event.Metadata,
		)
		return nil
	})
}

// operationContext bounds one remote call and carries the actor.
func (c *CLI) operationContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if actor := c.v.GetString("actor"); actor != "" {
		ctx = activity.WithActor(ctx, activity.Actor{ActorID: actor})
	}
	return context.WithTimeout(ctx, c.v.GetDuration("timeout"))
}

func (c *CLI) model(name string) (*records.Model, error) {
	model, ok := c.registry.Model(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q (known: %s)", name, strings.Join(c.registry.Names(), ", "))
	}
	return model, nil
}
