package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	app "github.com/turtacn/BlindDock/internal/application/docking"
	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/searchspace"
	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// Manifest describes a batch: every receptor is docked against every
// ligand.  Entries may be files or directories; directories contribute
// every structure file they contain.  Relative paths are resolved against
// the manifest's directory.
type Manifest struct {
	Receptors      []string          `yaml:"receptors"`
	Ligands        []string          `yaml:"ligands"`
	Exhaustiveness int               `yaml:"exhaustiveness"`
	NumModes       int               `yaml:"num_modes"`
	Seeds          []int64           `yaml:"seeds"`
	TopK           int               `yaml:"top_k"`
	Hint           *searchspace.Hint `yaml:"hint"`
}

// LoadManifest reads and validates a YAML manifest.
func LoadManifest(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidParam, "cannot read manifest").WithDetail(path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "malformed manifest").WithDetail(path)
	}
	if len(m.Receptors) == 0 || len(m.Ligands) == 0 {
		return nil, errors.InvalidParam("manifest needs at least one receptor and one ligand").WithDetail(path)
	}
	if err := domain.ValidateSeeds(m.Seeds); err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	m.Receptors = resolve(base, m.Receptors)
	m.Ligands = resolve(base, m.Ligands)
	return &m, nil
}

func resolve(base string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(base, p)
		}
	}
	return out
}

// ExpandInputs replaces directories by the structure files they contain,
// sorted by name.  Plain files are kept even when their extension is
// unknown so that the job reports the error.
func ExpandInputs(fs afero.Fs, entries []string) ([]string, error) {
	var out []string
	for _, e := range entries {
		info, err := fs.Stat(e)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "input not found").WithDetail(e)
		}
		if !info.IsDir() {
			out = append(out, e)
			continue
		}
		files, err := afero.ReadDir(fs, e)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidParam, "cannot list input directory").WithDetail(e)
		}
		var found []string
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if _, err := structure.DetectFormat(f.Name()); err == nil {
				found = append(found, filepath.Join(e, f.Name()))
			}
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

// Requests builds the receptor × ligand cross product in receptor-major
// order.
func (m *Manifest) Requests(receptors, ligands []string) []app.Request {
	reqs := make([]app.Request, 0, len(receptors)*len(ligands))
	for _, r := range receptors {
		for _, l := range ligands {
			reqs = append(reqs, app.Request{
				Receptor: domain.Input{Path: r},
				Ligand:   domain.Input{Path: l},
				Hint:     m.Hint,
				Params: domain.Params{
					Exhaustiveness: m.Exhaustiveness,
					NumModes:       m.NumModes,
					Seeds:          m.Seeds,
				},
				TopK: m.TopK,
			})
		}
	}
	return reqs
}

type batchOptions struct {
	manifest  string
	receptors []string
	ligands   []string
	summary   string
	tablesDir string
	fs        afero.Fs
}

func newBatchCmd() *cobra.Command {
	opts := &batchOptions{fs: afero.NewOsFs()}
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Dock every ligand against every receptor",
		Long: "batch runs one independent job per receptor-ligand pair.  A failing pair\n" +
			"never stops the others; it is reported as N/A in the summary.",
		Example: "  dockctl batch --manifest screen.yaml --summary summary.csv\n" +
			"  dockctl batch --receptors receptors/ --ligands ligands/ --tables-dir tables/",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.manifest, "manifest", "m", "", "YAML batch manifest")
	f.StringSliceVar(&opts.receptors, "receptors", nil, "receptor files or directories (without --manifest)")
	f.StringSliceVar(&opts.ligands, "ligands", nil, "ligand files or directories (without --manifest)")
	f.StringVar(&opts.summary, "summary", "summary.csv", "batch summary CSV")
	f.StringVar(&opts.tablesDir, "tables-dir", "", "write each ranked table as <receptor>__<ligand>.csv here")
	return cmd
}

func runBatch(cmd *cobra.Command, opts *batchOptions) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	m := &Manifest{Receptors: opts.receptors, Ligands: opts.ligands}
	if opts.manifest != "" {
		if m, err = LoadManifest(opts.fs, opts.manifest); err != nil {
			return err
		}
	} else if len(m.Receptors) == 0 || len(m.Ligands) == 0 {
		return errors.InvalidParam("either --manifest or both --receptors and --ligands are required")
	}
	receptors, err := ExpandInputs(opts.fs, m.Receptors)
	if err != nil {
		return err
	}
	ligands, err := ExpandInputs(opts.fs, m.Ligands)
	if err != nil {
		return err
	}
	reqs := m.Requests(receptors, ligands)
	if len(reqs) == 0 {
		return errors.InvalidParam("no structure files found in the batch inputs")
	}
	cc.Logger.Info("batch starting", logging.Int("receptors", len(receptors)),
		logging.Int("ligands", len(ligands)), logging.Int("jobs", len(reqs)))

	exec, release, err := cc.Deps.Executor(cmd.Context(), cc.Config, cc.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			cc.Logger.Warn("shutdown incomplete", logging.Err(err))
		}
	}()

	outcomes := exec.ExecuteBatch(cmd.Context(), reqs)

	if err := writeSummary(opts.fs, opts.summary, outcomes); err != nil {
		return err
	}
	if opts.tablesDir != "" {
		if err := writeTables(opts.fs, opts.tablesDir, outcomes); err != nil {
			return err
		}
	}
	return reportBatch(cmd, cc, outcomes)
}

func writeSummary(fs afero.Fs, path string, outcomes []*app.Outcome) error {
	f, err := fs.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot create summary").WithDetail(path)
	}
	if err := app.WriteSummaryCSV(f, app.Summarize(outcomes)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeTables(fs afero.Fs, dir string, outcomes []*app.Outcome) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot create tables directory").WithDetail(dir)
	}
	for _, o := range outcomes {
		if o == nil || o.Table == nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s__%s.csv", o.Receptor, o.Ligand))
		f, err := fs.Create(path)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "cannot create table file").WithDetail(path)
		}
		if err := o.Table.WriteCSV(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// reportBatch prints the per-pair status and fails only when no pair
// completed.
func reportBatch(cmd *cobra.Command, cc *CLIContext, outcomes []*app.Outcome) error {
	w := cmd.OutOrStdout()
	if cc.OutputFormat == "json" {
		if err := printJSON(w, app.Summarize(outcomes)); err != nil {
			return err
		}
	}
	completed := 0
	var failed []string
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		if o.Status == domain.JobCompleted {
			completed++
			continue
		}
		failed = append(failed, fmt.Sprintf("%s x %s: %s", o.Receptor, o.Ligand, o.Error))
	}
	if cc.OutputFormat != "json" {
		fmt.Fprintf(w, "%d/%d jobs completed\n", completed, len(outcomes))
		for _, f := range failed {
			fmt.Fprintf(w, "  failed %s\n", f)
		}
	}
	if completed == 0 {
		return errors.New(errors.CodeAllRunsFailed, "no batch job completed").
			WithDetail(strings.Join(failed, "; "))
	}
	return nil
}

//Personal.AI order the ending
