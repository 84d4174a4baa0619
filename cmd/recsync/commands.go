package main

import (
	"fmt"
	"strings"

	records "github.com/goliatone/go-records"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *CLI) addCommands() {
	c.root.AddCommand(
		c.modelsCommand(),
		c.loadCommand(),
		c.getCommand(),
		c.saveCommand(),
		c.deleteCommand(),
		c.callCommand(),
	)
}

func (c *CLI) modelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the defined models and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type modelInfo struct {
				Name   string                    `json:"name" yaml:"name"`
				IDProp string                    `json:"id_prop" yaml:"id_prop"`
				Fields []records.FieldDescriptor `json:"fields" yaml:"fields"`
			}
			out := []modelInfo{}
			for _, name := range c.registry.Names() {
				model := c.registry.MustModel(name)
				out = append(out, modelInfo{Name: name, IDProp: model.IDProp(), Fields: model.Describe()})
			}
			return c.print(cmd, out)
		},
	}
}

func (c *CLI) loadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <model>",
		Short: "Load a page of records and print the filtered, sorted view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := c.model(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			pageSize, _ := flags.GetInt("page-size")
			page, _ := flags.GetInt("page")
			rawParams, _ := flags.GetStringArray("param")
			params, err := parseAssignments(rawParams)
			if err != nil {
				return err
			}

			store := records.NewStore(model,
				records.WithPageSize(pageSize),
				records.WithExtraParams(params),
			)
			defer store.Destroy()

			ctx, cancel := c.operationContext(cmd)
			defer cancel()
			if page > 0 {
				err = store.LoadPage(ctx, page)
			} else {
				err = store.Load(ctx, nil, records.LoadOptions{})
			}
			if err != nil {
				return err
			}

			if err := c.applyView(cmd, store); err != nil {
				return err
			}
			items := make([]map[string]any, 0, store.CurrentLen())
			store.Each(func(_ int, item records.Item) bool {
				items = append(items, records.RecordData(item))
				return true
			})
			return c.print(cmd, map[string]any{
				"total": store.TotalLen(),
				"count": len(items),
				"items": items,
			})
		},
	}
	flags := cmd.Flags()
	flags.StringArray("param", nil, "load parameter, key=value")
	flags.Int("page-size", 0, "items per page; enables start/limit paging")
	flags.Int("page", 0, "1-based page to load, requires --page-size")
	flags.String("filter", "", "filter expression evaluated against each item")
	flags.String("filter-engine", "expr", "filter expression engine (expr|cel|js)")
	flags.String("search", "", "case-insensitive substring match on any field")
	flags.String("sort", "", "field to sort the view by")
	flags.Bool("desc", false, "sort descending")
	return cmd
}

// applyView installs the filter and sort flags on store.
func (c *CLI) applyView(cmd *cobra.Command, store *records.Store) error {
	flags := cmd.Flags()
	if search, _ := flags.GetString("search"); search != "" {
		store.Filter(search, records.MatchContains)
	}
	if expression, _ := flags.GetString("filter"); expression != "" {
		engine, _ := flags.GetString("filter-engine")
		if err := c.useEngine(store.Model(), engine); err != nil {
			return err
		}
		if err := store.FilterExpr(expression); err != nil {
			return fmt.Errorf("filter: %w", err)
		}
	}
	if field, _ := flags.GetString("sort"); field != "" {
		dir := records.Asc
		if desc, _ := flags.GetBool("desc"); desc {
			dir = records.Desc
		}
		store.Sort(field, dir)
	}
	return nil
}

func (c *CLI) useEngine(model *records.Model, engine string) error {
	functions := records.BuiltinFunctions()
	var evaluator records.Evaluator
	switch strings.ToLower(engine) {
	case "", "expr":
		return nil
	case "cel":
		evaluator = records.NewCELEvaluator(records.CELWithFunctionRegistry(functions))
	case "js":
		if !records.JSAvailable() {
			return fmt.Errorf("filter engine js requires a build with -tags js_eval")
		}
		evaluator = records.NewJSEvaluator(records.JSWithFunctionRegistry(functions))
	default:
		return fmt.Errorf("unknown filter engine %q", engine)
	}
	records.WithEvaluator(evaluator)(model)
	return nil
}

func (c *CLI) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Load one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := c.model(args[0])
			if err != nil {
				return err
			}
			rec := records.NewRecord(model, records.WithID(args[1]))
			defer rec.Destroy()
			ctx, cancel := c.operationContext(cmd)
			defer cancel()
			if err := rec.Load(ctx); err != nil {
				return err
			}
			return c.print(cmd, rec.GetData())
		},
	}
}

func (c *CLI) saveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save <model> [id]",
		Short: "Create a record, or update it when an id is given",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := c.model(args[0])
			if err != nil {
				return err
			}
			rawValues, _ := cmd.Flags().GetStringArray("set")
			values, err := parseAssignments(rawValues)
			if err != nil {
				return err
			}
			if len(values) == 0 {
				return fmt.Errorf("nothing to save: pass at least one --set key=value")
			}

			var opts []records.RecordOption
			if len(args) == 2 {
				opts = append(opts, records.WithID(args[1]))
			}
			rec := records.NewRecord(model, opts...)
			defer rec.Destroy()
			rec.SetData(values)

			ctx, cancel := c.operationContext(cmd)
			defer cancel()
			if err := rec.Save(ctx, rec.Modified(), nil); err != nil {
				return err
			}
			return c.print(cmd, rec.GetData())
		},
	}
	cmd.Flags().StringArray("set", nil, "field value, key=value")
	return cmd
}

func (c *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model> <id>...",
		Short: "Delete records by id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := c.model(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := c.operationContext(cmd)
			defer cancel()

			ids := args[1:]
			if len(ids) == 1 {
				rec := records.NewRecord(model, records.WithID(ids[0]))
				if err := rec.Delete(ctx); err != nil {
					return err
				}
			} else {
				store := records.NewStore(model)
				defer store.Destroy()
				if err := store.DeleteIDs(ctx, ids...); err != nil {
					return err
				}
			}
			return c.print(cmd, map[string]any{"deleted": ids})
		},
	}
}

func (c *CLI) callCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <model> <operation>",
		Short: "Invoke a controller operation and print the raw response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := c.model(args[0])
			if err != nil {
				return err
			}
			rawParams, _ := cmd.Flags().GetStringArray("param")
			params, err := parseAssignments(rawParams)
			if err != nil {
				return err
			}
			ctx, cancel := c.operationContext(cmd)
			defer cancel()
			raw, err := model.Invoke(ctx, args[1], params)
			if err != nil {
				return err
			}
			return c.print(cmd, raw)
		},
	}
	cmd.Flags().StringArray("param", nil, "operation parameter, key=value")
	return cmd
}

// parseAssignments turns key=value pairs into a map. Values are read as
// YAML scalars, so 42 is an int and true a bool.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		out[key] = value
	}
	return out, nil
}
