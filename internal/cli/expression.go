package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"zte.szuro.net/pkg/expression"
)

func NewTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <expression>",
		Short: "Print the tokens of an expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := expression.Tokenize(args[0])
			if err != nil {
				return exitError(exitInvalid, "%s", err)
			}
			out := cmd.OutOrStdout()
			for _, tok := range tokens {
				fmt.Fprintf(out, "%-20s %4d %4d %s\n", tok.Kind, tok.Start, tok.End, tok.Text)
			}
			return nil
		},
	}
}

func NewTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <expression>",
		Short: "Print the and/or tree of an expression with node ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := expression.BuildTree(args[0])
			if err != nil {
				return exitError(exitInvalid, "%s", err)
			}
			_, records := expression.Render(tree)
			printRecords(cmd, records)
			return nil
		},
	}
}

// printRecords draws one line per node, indented by level.
func printRecords(cmd *cobra.Command, records []expression.RenderRecord) {
	out := cmd.OutOrStdout()
	for _, rec := range records {
		indent := strings.Repeat("  ", rec.Level)
		label := rec.Letter
		if rec.Operator != "" {
			label = strings.ToUpper(string(rec.Operator))
		}
		fmt.Fprintf(out, "%s%s %s [%s]\n", indent, label, rec.Expression, rec.ID)
		for _, e := range rec.Errors {
			fmt.Fprintf(out, "%s  ! %s %s\n", indent, e.Code, e.Error())
		}
	}
}

func NewOutlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outline <expression>",
		Short: "Print the lettered outline of an expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := expression.BuildTree(args[0])
			if err != nil {
				return exitError(exitInvalid, "%s", err)
			}

			var opts []expression.RenderOption
			validator, cleanup, err := validatorFromFlags(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if validator != nil {
				opts = append(opts, expression.WithValidator(cmd.Context(), validator))
			}

			outline, records := expression.Render(tree, opts...)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, outline)
			for _, rec := range records {
				if rec.Letter == "" {
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", rec.Letter, rec.Expression)
				for _, e := range rec.Errors {
					fmt.Fprintf(out, "   ! %s %s\n", e.Code, e.Error())
				}
			}
			return nil
		},
	}
	addInventoryFlags(cmd)
	return cmd
}

func NewEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <expression>",
		Short: "Apply one edit to the node with the given id",
		Long: `Apply one edit to the expression tree and print the result.

Actions: "and" and "or" join the node with --new, "r" replaces it and "R" removes it.
Node ids are shown by the tree command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("target")
			action, _ := cmd.Flags().GetString("action")
			newExpr, _ := cmd.Flags().GetString("new")

			switch expression.Action(action) {
			case expression.ActionAnd, expression.ActionOr, expression.ActionReplace, expression.ActionRemove:
			default:
				return exitError(exitInvalid, "unknown action %q", action)
			}

			result, err := expression.Remake(args[0], target, expression.Action(action), newExpr)
			if err != nil {
				return exitError(exitInvalid, "%s", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().String("target", "", "Id of the node to edit")
	cmd.Flags().String("action", "", "One of and, or, r, R")
	cmd.Flags().String("new", "", "Expression to insert")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func NewEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression with macro values given as --macro text=value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs, _ := cmd.Flags().GetStringArray("macro")
			substitutions, err := parseMacros(pairs)
			if err != nil {
				return exitError(exitInvalid, "%s", err)
			}

			ok, err := expression.Evaluate(args[0], substitutions)
			if err != nil {
				if errors.Is(err, expression.ErrInvalidExpression) {
					return exitError(exitUndecided, "undecided: %s", err)
				}
				return exitError(exitInvalid, "%s", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
	cmd.Flags().StringArray("macro", nil, "Substitution as macro=value, repeatable")
	return cmd
}

// parseMacros splits each pair on its last "=", since macro text such as
// {host:key[a=b].last()} may contain one.
func parseMacros(pairs []string) (map[string]string, error) {
	substitutions := make(map[string]string, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i <= 0 {
			return nil, fmt.Errorf("macro %q is not in macro=value form", p)
		}
		substitutions[p[:i]] = p[i+1:]
	}
	return substitutions, nil
}
