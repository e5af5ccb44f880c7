package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/BlindDock/internal/bootstrap"
	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/domain/structure"
)

type boxOptions struct {
	receptor string
	ligand   string
	hint     hintFlags
}

func newBoxCmd() *cobra.Command {
	opts := &boxOptions{}
	cmd := &cobra.Command{
		Use:   "box",
		Short: "Print the docking box derived from a receptor",
		Long: "box computes the search space without running the engine.  Text output\n" +
			"uses the Vina configuration file syntax.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBox(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.receptor, "receptor", "r", "", "receptor structure")
	f.StringVarP(&opts.ligand, "ligand", "l", "", "optional ligand; its span becomes an extent floor")
	opts.hint.register(f)
	_ = cmd.MarkFlagRequired("receptor")
	return cmd
}

func runBox(cmd *cobra.Command, opts *boxOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	hint, err := opts.hint.build()
	if err != nil {
		return err
	}
	target, err := structure.ParseFile(opts.receptor)
	if err != nil {
		return err
	}
	var ligand *structure.Structure
	if opts.ligand != "" {
		if ligand, err = structure.ParseFile(opts.ligand); err != nil {
			return err
		}
	}

	space, err := searchspace.NewBuilder(bootstrap.Padding(cc.Config)).Build(target, ligand, hint)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if cc.OutputFormat == "json" {
		return printJSON(w, space)
	}
	fmt.Fprintf(w, "# %s box for %s (%d atoms)\n", space.Mode, target.ID(), target.AtomCount())
	for i, axis := range []string{"x", "y", "z"} {
		fmt.Fprintf(w, "center_%s = %.3f\n", axis, space.Center[i])
	}
	for i, axis := range []string{"x", "y", "z"} {
		fmt.Fprintf(w, "size_%s = %.3f\n", axis, space.Extents[i])
	}
	return nil
}

//Personal.AI order the ending
