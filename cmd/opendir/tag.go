package main

import (
	"fmt"
	"strconv"

	"github.com/nao1215/opendir/internal/model"
	"github.com/spf13/cobra"
)

// NewTagCmd creates the tag command and its subcommands.
func NewTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags of indexed files",
		Long: `Tag attaches free-form labels to indexed files. Tags are matched by
search like file names.

Examples:
  opendir tag add 42 linux favourite
  opendir tag remove 42 favourite
  opendir tag list`,
	}

	cmd.AddCommand(newTagAddCmd())
	cmd.AddCommand(newTagRemoveCmd())
	cmd.AddCommand(newTagListCmd())

	return cmd
}

func newTagAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add ID TAG...",
		Short: "Attach tags to a file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagCmd(cmd, args, true)
		},
	}
	addDBFlag(cmd)
	return cmd
}

func newTagRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove ID TAG...",
		Short: "Detach tags from a file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTagCmd(cmd, args, false)
		},
	}
	addDBFlag(cmd)
	return cmd
}

func newTagListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tags",
		Args:  cobra.NoArgs,
		RunE:  runTagListCmd,
	}
	addDBFlag(cmd)
	return cmd
}

// parseFileID parses a file ID argument.
func parseFileID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: "file ID", Value: arg, Reason: "must be a positive integer"}
	}
	return id, nil
}

// runTagCmd adds or removes tags.
func runTagCmd(cmd *cobra.Command, args []string, add bool) error {
	id, err := parseFileID(args[0])
	if err != nil {
		return err
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	store, err := openWritableStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	for _, name := range args[1:] {
		if add {
			if err := store.AddTag(ctx, id, name); err != nil {
				return fmt.Errorf("failed to tag file %d with %q: %w", id, name, err)
			}
			fmt.Fprintf(out, "Tagged file %d with %q\n", id, name)
			continue
		}

		removed, err := store.RemoveTag(ctx, id, name)
		if err != nil {
			return fmt.Errorf("failed to remove tag %q from file %d: %w", name, id, err)
		}
		if removed {
			fmt.Fprintf(out, "Removed tag %q from file %d\n", name, id)
		} else {
			fmt.Fprintf(out, "File %d has no tag %q\n", id, name)
		}
	}
	return nil
}

// runTagListCmd prints every tag name.
func runTagListCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := setupLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	tags, err := store.ListTags(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(tags) == 0 {
		fmt.Fprintln(out, "No tags.")
		return nil
	}
	for _, tag := range tags {
		fmt.Fprintln(out, tag.Name)
	}
	return nil
}
