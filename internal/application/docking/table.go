package docking

import (
	"encoding/csv"
	"io"
	"strconv"

	domain "github.com/turtacn/BlindDock/internal/domain/docking"
	"github.com/turtacn/BlindDock/internal/domain/ranking"
	"github.com/turtacn/BlindDock/pkg/errors"
)

// Columns is the stable column order of the exported result table.
var Columns = []string{"rank", "pose_id", "energy", "cluster_size", "seed", "run_id", "pose_ref"}

// SummaryHeader is the header of the batch summary CSV.
var SummaryHeader = []string{"Protein", "Ligand", "Binding Affinity (kcal/mol)"}

// Row is one ranked cluster, described by its representative pose.
type Row struct {
	Rank        int     `json:"rank"`
	PoseID      string  `json:"pose_id"`
	Energy      float64 `json:"energy"`
	ClusterSize int     `json:"cluster_size"`
	Seed        int64   `json:"seed"`
	RunID       string  `json:"run_id"`
	PoseRef     string  `json:"pose_ref"`
}

// Table is the exportable result of one job.  A table with zero rows is a
// legitimate outcome, not an error.
type Table struct {
	JobID    string `json:"job_id"`
	Receptor string `json:"receptor"`
	Ligand   string `json:"ligand"`
	Rows     []Row  `json:"rows"`
}

// Aggregate flattens a ranked result into a Table.  A nil result yields a
// zero-row table.
func Aggregate(job *domain.Job, result *ranking.Result) *Table {
	t := &Table{Rows: []Row{}}
	if job != nil {
		t.JobID = job.ID
		t.Receptor = job.Target.ID
		t.Ligand = job.Ligand.ID
	}
	if result == nil {
		return t
	}
	for _, e := range result.Entries {
		rep := e.Cluster.Representative()
		t.Rows = append(t.Rows, Row{
			Rank:        e.Rank,
			PoseID:      rep.ID(),
			Energy:      rep.Energy(),
			ClusterSize: e.Cluster.Size(),
			Seed:        rep.Seed(),
			RunID:       rep.RunID(),
			PoseRef:     rep.Ref(),
		})
	}
	return t
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Best returns the lowest energy, or false for an empty table.
func (t *Table) Best() (float64, bool) {
	if t == nil || len(t.Rows) == 0 {
		return 0, false
	}
	return t.Rows[0].Energy, true
}

// Records returns the table as string records, header first.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, Columns)
	for _, r := range t.Rows {
		out = append(out, []string{
			strconv.Itoa(r.Rank),
			r.PoseID,
			formatEnergy(r.Energy),
			strconv.Itoa(r.ClusterSize),
			strconv.FormatInt(r.Seed, 10),
			r.RunID,
			r.PoseRef,
		})
	}
	return out
}

// WriteCSV writes the table with its header.  An empty table writes the
// header only.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to write result table")
	}
	return nil
}

// SummaryRow is the best energy of one receptor–ligand pair.  HasEnergy is
// false when the job produced no pose.
type SummaryRow struct {
	Protein   string
	Ligand    string
	Energy    float64
	HasEnergy bool
}

// Summarize derives the batch summary from job outcomes, in input order.
func Summarize(outcomes []*Outcome) []SummaryRow {
	rows := make([]SummaryRow, 0, len(outcomes))
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		row := SummaryRow{Protein: o.Receptor, Ligand: o.Ligand}
		row.Energy, row.HasEnergy = o.Table.Best()
		rows = append(rows, row)
	}
	return rows
}

// WriteSummaryCSV writes rows under SummaryHeader, with "N/A" for pairs that
// have no energy.
func WriteSummaryCSV(w io.Writer, rows []SummaryRow) error {
	cw := csv.NewWriter(w)
	records := make([][]string, 0, len(rows)+1)
	records = append(records, SummaryHeader)
	for _, r := range rows {
		energy := "N/A"
		if r.HasEnergy {
			energy = formatEnergy(r.Energy)
		}
		records = append(records, []string{r.Protein, r.Ligand, energy})
	}
	if err := cw.WriteAll(records); err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "failed to write summary")
	}
	return nil
}

func formatEnergy(e float64) string {
	return strconv.FormatFloat(e, 'f', -1, 64)
}

//Personal.AI order the ending
