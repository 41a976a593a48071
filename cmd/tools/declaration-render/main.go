// cmd/tools/declaration-render/main.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nginx-config-generator/internal/common/config"
	"nginx-config-generator/internal/common/logger"
	generateconfig "nginx-config-generator/internal/pipeline/generate-config"
	renderconfig "nginx-config-generator/internal/pipeline/render-config"
	validatedeclaration "nginx-config-generator/internal/pipeline/validate-declaration"
)

type globalOptions struct {
	configPath string
	rootDir    string
	logLevel   string
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:          "declaration-render",
		Short:        "Validate and render NGINX declarations offline",
		SilenceUsage: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.configPath, "config", "", "config yaml path (default: built-in defaults)")
	fs.StringVar(&opts.rootDir, "templates", "", "template directory with registry.json (overrides config)")
	fs.StringVar(&opts.logLevel, "log-level", "error", "log level")

	cmd.AddCommand(newRenderCmd(opts), newValidateCmd(opts), newTemplatesCmd(opts), newSchemaCmd())
	return cmd
}

func (o *globalOptions) appConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.rootDir != "" {
		cfg.Templates.RootDir = o.rootDir
	}
	cfg.Logging.Level = o.logLevel
	cfg.Logging.Format = "console"
	return cfg, nil
}

func newRenderCmd(global *globalOptions) *cobra.Command {
	var outputType string
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Run the full pipeline on a declaration file and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDeclaration(args[0])
			if err != nil {
				return err
			}
			if outputType != "" {
				if raw, err = overrideOutputType(raw, outputType); err != nil {
					return err
				}
			}

			cfg, err := global.appConfig()
			if err != nil {
				return err
			}
			pipeline, err := generateconfig.NewHandler(generateconfig.HandlerOptions{
				AppConfig: cfg,
				Logger:    logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format),
			})
			if err != nil {
				return err
			}

			resp := pipeline.Generate(context.Background(), uuid.NewString(), raw)
			if resp.StatusCode >= 300 {
				fmt.Fprintln(cmd.ErrOrStderr(), string(resp.Body))
				return fmt.Errorf("pipeline answered %d", resp.StatusCode)
			}
			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}
	cmd.Flags().StringVarP(&outputType, "output", "o", "", "replace output.type (plaintext, json, configmap, http)")
	return cmd
}

func newValidateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a declaration file and print the verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDeclaration(args[0])
			if err != nil {
				return err
			}
			cfg, err := global.appConfig()
			if err != nil {
				return err
			}
			validator := validatedeclaration.NewHandler(validatedeclaration.NewConfig(cfg),
				logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format))

			verdict, err := validator.Execute(context.Background(), raw)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(verdict); err != nil {
				return err
			}
			if !verdict.Valid {
				return fmt.Errorf("declaration rejected with %d violation(s)", len(verdict.Errors))
			}
			return nil
		},
	}
}

func newTemplatesCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the templates of the active template set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.appConfig()
			if err != nil {
				return err
			}
			engine, err := renderconfig.LoadEngine(cfg.Templates.RootDir)
			if err != nil {
				return err
			}
			for _, id := range engine.Templates() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the declaration JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(validatedeclaration.SchemaJSON())
			return err
		},
	}
}

// readDeclaration reads path ("-" for stdin) and returns it as JSON. Input
// that is not a JSON object is read as YAML.
func readDeclaration(path string) ([]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return data, nil
	}
	return yamlToJSON(data)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return json.Marshal(normalizeYAML(doc))
}

// normalizeYAML converts map[interface{}]interface{} nodes, which
// encoding/json cannot marshal, into string-keyed maps.
func normalizeYAML(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		for k, val := range x {
			x[k] = normalizeYAML(val)
		}
		return x
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []interface{}:
		for i, val := range x {
			x[i] = normalizeYAML(val)
		}
		return x
	}
	return v
}

func overrideOutputType(raw []byte, outputType string) ([]byte, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse declaration: %w", err)
	}
	output, _ := doc["output"].(map[string]interface{})
	if output == nil {
		output = map[string]interface{}{}
	}
	output["type"] = outputType
	doc["output"] = output
	return json.Marshal(doc)
}
