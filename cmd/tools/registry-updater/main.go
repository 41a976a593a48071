// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	renderconfig "nginx-config-generator/internal/pipeline/render-config"
	"nginx-config-generator/pkg/registry"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:          "registry-updater",
		Short:        "Maintain a template set directory (registry.json plus template files)",
		SilenceUsage: true,
		Example: `  registry-updater export -d configs/templates
  registry-updater add -d configs/templates --id nginx-plus.conf --file nginx-plus.conf.tmpl --format nginx
  registry-updater update -d configs/templates --id nginx-plus.conf --field description --value "NGINX Plus variant"
  registry-updater validate -d configs/templates`,
	}
	cmd.SetOut(stdout)
	cmd.PersistentFlags().StringVarP(&dir, "dir", "d", "configs/templates", "template set directory")

	registryPath := func() string { return filepath.Join(dir, registry.FileName) }

	cmd.AddCommand(
		newExportCmd(&dir),
		newAddCmd(registryPath),
		newUpdateCmd(registryPath),
		newValidateCmd(&dir),
	)
	return cmd
}

func newExportCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the built-in template set into the directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := renderconfig.ExportTemplates(*dir); err != nil {
				return fmt.Errorf("export templates: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported built-in templates to %s\n", *dir)
			return nil
		},
	}
}

func newAddCmd(registryPath func() string) *cobra.Command {
	var t registry.Template
	var tags string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a template to the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if t.ID == "" || t.File == "" {
				return fmt.Errorf("--id and --file are required")
			}
			if tags != "" {
				t.Tags = strings.Split(tags, ",")
			}
			if err := addTemplate(registryPath(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added template: %s\n", t.ID)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&t.ID, "id", "", "template id (e.g. nginx.conf)")
	fs.StringVar(&t.File, "file", "", "template file, relative to the directory")
	fs.StringVar(&t.Format, "format", registry.FormatNginx, "output format: nginx or yaml")
	fs.StringVar(&t.Description, "description", "", "description")
	fs.StringVar(&tags, "tags", "", "comma separated tags")
	return cmd
}

func newUpdateCmd(registryPath func() string) *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update one field of a registered template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || field == "" {
				return fmt.Errorf("--id and --field are required")
			}
			if err := updateTemplate(registryPath(), id, field, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated template %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&id, "id", "", "template id to update")
	fs.StringVar(&field, "field", "", "field to update (file, format, description, tags)")
	fs.StringVar(&value, "value", "", "new value for the field")
	return cmd
}

func newValidateCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the registry and parse every template it lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := renderconfig.LoadEngine(*dir)
			if err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d templates.\n", len(engine.Templates()))
			return nil
		},
	}
}

func addTemplate(path string, t registry.Template) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.TemplateRegistry{Version: "1.0.0"}
	}

	if reg.Find(t.ID) != nil {
		return fmt.Errorf("template with ID %s already exists", t.ID)
	}
	reg.Templates = append(reg.Templates, t)
	return save(reg, path)
}

func updateTemplate(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	t := reg.Find(id)
	if t == nil {
		return fmt.Errorf("template with ID %s not found", id)
	}
	switch field {
	case "file":
		t.File = value
	case "format":
		t.Format = value
	case "description":
		t.Description = value
	case "tags":
		t.Tags = nil
		if value != "" {
			t.Tags = strings.Split(value, ",")
		}
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return save(reg, path)
}

func save(reg *registry.TemplateRegistry, path string) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return registry.SaveRegistry(reg, path)
}
