package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *CLI) print(cmd *cobra.Command, value any) error {
	out := cmd.OutOrStdout()
	switch strings.ToLower(c.v.GetString("format")) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(value)
	case "", "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	default:
		return fmt.Errorf("unknown output format %q", c.v.GetString("format"))
	}
}
