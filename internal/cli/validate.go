package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"zte.szuro.net/internal/cache"
	"zte.szuro.net/internal/config"
	"zte.szuro.net/internal/inventory"
	"zte.szuro.net/pkg/expression"
)

func addInventoryFlags(cmd *cobra.Command) {
	cmd.Flags().String("inventory", "", "Path of a YAML item inventory")
	cmd.Flags().String("psql", "", "Connection string of the Zabbix database, used instead of --inventory")
	cmd.Flags().Int64("cache-size", 0, "Memoize validation of up to this many expressions, 0 disables")
}

// validatorFromFlags builds a Validator from the inventory flags. It returns
// a nil Validator when neither inventory source is set.
func validatorFromFlags(cmd *cobra.Command) (*expression.Validator, func(), error) {
	path, _ := cmd.Flags().GetString("inventory")
	conn, _ := cmd.Flags().GetString("psql")
	size, _ := cmd.Flags().GetInt64("cache-size")

	conf := config.InventoryConf{Type: config.INVENTORY_FILE, Path: path}
	switch {
	case conn != "":
		conf = config.InventoryConf{Type: config.INVENTORY_PSQL, Connection: conn}
	case path == "":
		return nil, func() {}, nil
	}

	inv, err := inventory.FromConfig(conf)
	if err != nil {
		return nil, nil, err
	}

	if size <= 0 {
		return expression.NewValidator(inventory.NewResolver(inv), nil), func() { inv.Close() }, nil
	}
	c, err := cache.NewErrorCache(size)
	if err != nil {
		inv.Close()
		return nil, nil, err
	}
	cleanup := func() {
		c.Close()
		inv.Close()
	}
	return expression.NewValidator(inventory.NewResolver(inv), c), cleanup, nil
}

func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <expression>...",
		Short: "Check syntax and resolve every macro of the given expressions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validator, cleanup, err := validatorFromFlags(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			invalid := 0
			for _, expr := range args {
				if _, err := expression.Parse(expr); err != nil {
					fmt.Fprintf(out, "%s: %s\n", expr, err)
					invalid++
					continue
				}
				if validator == nil {
					fmt.Fprintf(out, "%s: OK\n", expr)
					continue
				}

				errs, err := validator.Errors(cmd.Context(), expr)
				if err != nil {
					return err
				}
				if len(errs) == 0 {
					fmt.Fprintf(out, "%s: OK\n", expr)
					continue
				}
				invalid++
				for _, e := range errs {
					fmt.Fprintf(out, "%s: %s %s\n", expr, e.Code, e.Error())
				}
			}

			if invalid > 0 {
				return exitError(exitInvalid, "%d of %d expressions invalid", invalid, len(args))
			}
			return nil
		},
	}
	addInventoryFlags(cmd)
	return cmd
}

func NewInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <macro>",
		Short: "Show the result type and validation rule of a macro",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			validator, cleanup, err := validatorFromFlags(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if validator == nil {
				return exitError(exitInvalid, "--inventory or --psql is required")
			}

			info, err := validator.FunctionInfo(cmd.Context(), args[0])
			if err != nil {
				return exitError(exitInvalid, "%s", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Value type: %s\n", info.ValueType)
			fmt.Fprintf(out, "Type: %s\n", info.Type)
			fmt.Fprintf(out, "Validation: %s\n", info.Validation)
			return nil
		},
	}
	addInventoryFlags(cmd)
	return cmd
}
