package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Rename a material",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a material",
	Long:  `Remove a material from the backend. Pass --yes to confirm.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	editCmd.Flags().StringP("title", "t", "", "new title (required)")
	deleteCmd.Flags().BoolP("yes", "y", false, "confirm deletion")
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("a non-empty --title is required")
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.api.UpdateMaterial(cmd.Context(), id, title); err != nil {
		return fmt.Errorf("material %d: %w", id, err)
	}
	a.log.WithField("material_id", id).Info("material renamed")
	fmt.Fprintf(cmd.OutOrStdout(), "#%d: renamed to %q\n", id, title)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("refusing to delete material %d without --yes", id)
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.api.DeleteMaterial(cmd.Context(), id); err != nil {
		return fmt.Errorf("material %d: %w", id, err)
	}
	a.log.WithField("material_id", id).Info("material deleted")
	fmt.Fprintf(cmd.OutOrStdout(), "#%d: deleted\n", id)
	return nil
}
