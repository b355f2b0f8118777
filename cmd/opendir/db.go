package main

import (
	"fmt"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/report"
	"github.com/spf13/cobra"
)

// NewDBCmd creates the db command and its subcommands.
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage named indexes in the configuration file",
		Long: `DB manages the named indexes that can be passed to --db.

Definitions are stored in the configuration file. Deleting a definition
leaves the index file itself in place. The name "default" always refers to
the index in the data directory and cannot be changed.

Examples:
  opendir db create --type filesystem --resource ./linux.db linux
  opendir db create --type url --resource https://example.com/linux.db mirror
  opendir db create --type alias --resource linux iso
  opendir db list
  opendir db delete mirror`,
	}

	cmd.AddCommand(newDBCreateCmd())
	cmd.AddCommand(newDBListCmd())
	cmd.AddCommand(newDBDeleteCmd())

	return cmd
}

func newDBCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Define a named index",
		Args:  cobra.ExactArgs(1),
		RunE:  runDBCreateCmd,
	}

	cmd.Flags().String("type", "", "Index type: url, filesystem or alias")
	cmd.Flags().String("resource", "", "URL, file path, or aliased name")

	return cmd
}

func newDBListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List named indexes",
		Args:  cobra.NoArgs,
		RunE:  runDBListCmd,
	}
	addReportFlags(cmd)
	return cmd
}

func newDBDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Remove a named index definition",
		Args:  cobra.ExactArgs(1),
		RunE:  runDBDeleteCmd,
	}
}

// runDBCreateCmd adds a database definition and saves the configuration.
func runDBCreateCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	dbType, err := cmd.Flags().GetString("type")
	if err != nil {
		return err
	}
	resource, err := cmd.Flags().GetString("resource")
	if err != nil {
		return err
	}

	if err := cfg.File.CreateDatabase(args[0], dbType, resource); err != nil {
		return err
	}

	path := configWritePath(cfg)
	if err := cfg.File.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created database %q in %s\n", args[0], path)
	return nil
}

// runDBListCmd prints the default index and every defined database.
func runDBListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	entries := []report.DatabaseEntry{{
		Name:     config.DefaultDatabaseName,
		Type:     config.DatabaseTypeFilesystem,
		Resource: cfg.DefaultStorePath(),
	}}
	for _, name := range cfg.File.Names() {
		db := cfg.File.Databases[name]
		entries = append(entries, report.DatabaseEntry{Name: name, Type: db.Type, Resource: db.Resource})
	}

	_, err = report.NewWriter(reportFormat(cfg), cmd.OutOrStdout()).WriteDatabases(entries)
	return err
}

// runDBDeleteCmd removes a database definition and saves the configuration.
func runDBDeleteCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.File.DeleteDatabase(args[0]); err != nil {
		return err
	}

	path := configWritePath(cfg)
	if err := cfg.File.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted database %q from %s\n", args[0], path)
	return nil
}
