package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
)

type runOptions struct {
	receptor       string
	ligand         string
	jobID          string
	seeds          []int64
	exhaustiveness int
	numModes       int
	topK           int
	csvPath        string
	hint           hintFlags
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dock one ligand against one receptor",
		Example: "  dockctl run --receptor 1abc.pdbqt --ligand lig.pdbqt --top-k 5\n" +
			"  dockctl run --receptor r.pdbqt --ligand l.pdbqt --residues A:45,A:67 --csv out.csv",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.receptor, "receptor", "r", "", "receptor structure (pdb, pdbqt, sdf, mol2)")
	f.StringVarP(&opts.ligand, "ligand", "l", "", "ligand structure")
	f.StringVar(&opts.jobID, "job-id", "", "job id (default: random)")
	f.Int64SliceVar(&opts.seeds, "seeds", nil, "explicit seeds (default: derived from config)")
	f.IntVar(&opts.exhaustiveness, "exhaustiveness", 0, "engine exhaustiveness (default: config)")
	f.IntVar(&opts.numModes, "num-modes", 0, "poses per run (default: config)")
	f.IntVar(&opts.topK, "top-k", 0, "clusters to keep, -1 for all (default: config)")
	f.StringVar(&opts.csvPath, "csv", "", "also write the ranked table to this CSV file")
	opts.hint.register(f)
	_ = cmd.MarkFlagRequired("receptor")
	_ = cmd.MarkFlagRequired("ligand")
	return cmd
}

func runRun(cmd *cobra.Command, opts *runOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	hint, err := opts.hint.build()
	if err != nil {
		return err
	}
	if err := domain.ValidateJobID(opts.jobID); err != nil {
		return err
	}
	if err := domain.ValidateSeeds(opts.seeds); err != nil {
		return err
	}
	req := app.Request{
		JobID:    opts.jobID,
		Receptor: domain.Input{Path: opts.receptor},
		Ligand:   domain.Input{Path: opts.ligand},
		Hint:     hint,
		Params: domain.Params{
			Exhaustiveness: opts.exhaustiveness,
			NumModes:       opts.numModes,
			Seeds:          opts.seeds,
		},
		TopK: opts.topK,
	}

	exec, release, err := cc.Deps.Executor(cmd.Context(), cc.Config, cc.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			cc.Logger.Warn("shutdown incomplete", logging.Err(err))
		}
	}()

	out, runErr := exec.Execute(cmd.Context(), req)
	if out != nil {
		if opts.csvPath != "" && out.Table != nil {
			if err := writeTableCSV(opts.csvPath, out.Table); err != nil {
				return err
			}
		}
		if err := printOutcome(cmd.OutOrStdout(), cc.OutputFormat, out); err != nil {
			return err
		}
	}
	return runErr
}

func writeTableCSV(path string, t *app.Table) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	if err := t.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printOutcome(w io.Writer, format string, o *app.Outcome) error {
	if format == "json" {
		return printJSON(w, o)
	}
	fmt.Fprintf(w, "job %s  %s x %s  %s  (%s)\n", o.JobID, o.Receptor, o.Ligand, o.Status, o.Elapsed.Round(time.Millisecond))
	if o.Job != nil {
		s := o.Job.Space
		fmt.Fprintf(w, "box  %s center=(%.3f, %.3f, %.3f) size=(%.3f, %.3f, %.3f)\n",
			s.Mode, s.Center[0], s.Center[1], s.Center[2], s.Extents[0], s.Extents[1], s.Extents[2])
	}
	fmt.Fprintf(w, "runs %d/%d succeeded, %d poses\n", len(domain.Succeeded(o.Runs)), len(o.Runs), o.Poses)
	if o.Error != "" {
		fmt.Fprintf(w, "error %s\n", o.Error)
	}
	if o.Table == nil || len(o.Table.Rows) == 0 {
		fmt.Fprintln(w, "no poses")
		return nil
	}
	return printTable(w, o.Table)
}

func printTable(w io.Writer, t *app.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tENERGY (kcal/mol)\tCLUSTER\tSEED\tPOSE")
	for _, r := range t.Rows {
		fmt.Fprintf(tw, "%d\t%.3f\t%d\t%d\t%s\n", r.Rank, r.Energy, r.ClusterSize, r.Seed, r.PoseID)
	}
	return tw.Flush()
}

//Personal.AI order the ending
