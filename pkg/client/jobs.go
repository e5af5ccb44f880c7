package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/turtacn/BlindDock/pkg/errors"
)

// ─── Wire types ───

// Input names a structure file visible to the server.
type Input struct {
	ID     string `json:"id,omitempty"`
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
}

// ResidueRef selects a residue by chain and sequence number.
type ResidueRef struct {
	Chain  string `json:"chain,omitempty"`
	ResSeq int    `json:"res_seq"`
}

// Hint narrows the search space around residues or a point.
type Hint struct {
	Residues []ResidueRef `json:"residues,omitempty"`
	Center   *[3]float64  `json:"center,omitempty"`
	Size     *[3]float64  `json:"size,omitempty"`
}

// Params are engine parameters; zero values take the server defaults.
type Params struct {
	Exhaustiveness int     `json:"exhaustiveness,omitempty"`
	NumModes       int     `json:"num_modes,omitempty"`
	Seeds          []int64 `json:"seeds,omitempty"`
}

// JobRequest submits one receptor and ligand pair.
type JobRequest struct {
	JobID    string `json:"job_id,omitempty"`
	Receptor Input  `json:"receptor"`
	Ligand   Input  `json:"ligand"`
	Hint     *Hint  `json:"hint,omitempty"`
	Params   Params `json:"params"`
	TopK     int    `json:"top_k,omitempty"`
}

// Submission acknowledges an accepted job.
type Submission struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Results  string `json:"results"`
	Location string `json:"-"`
}

// SearchSpace is the docking box of a job.
type SearchSpace struct {
	Center  [3]float64 `json:"center"`
	Extents [3]float64 `json:"extents"`
	Margin  float64    `json:"margin"`
	Mode    string     `json:"mode"`
}

// Run is one seeded engine invocation.
type Run struct {
	ID        string `json:"id"`
	Seed      int64  `json:"seed"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	OutputRef string `json:"output_ref,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Job statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is the server's record of a job.
type Job struct {
	JobID       string       `json:"job_id"`
	Receptor    string       `json:"receptor"`
	Ligand      string       `json:"ligand"`
	Status      string       `json:"status"`
	Error       string       `json:"error,omitempty"`
	SearchSpace *SearchSpace `json:"search_space,omitempty"`
	Runs        []Run        `json:"runs,omitempty"`
	BestEnergy  *float64     `json:"best_energy,omitempty"`
	PoseCount   int          `json:"pose_count"`
	Clusters    int          `json:"clusters"`
	CreatedAt   time.Time    `json:"created_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

// Finished reports whether the job reached a terminal status.
func (j *Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// ResultRow is one ranked pose; energies are kcal/mol, lower is better.
type ResultRow struct {
	Rank        int     `json:"rank"`
	PoseID      string  `json:"pose_id"`
	Energy      float64 `json:"energy"`
	ClusterSize int     `json:"cluster_size"`
	Seed        int64   `json:"seed"`
	RunID       string  `json:"run_id"`
	PoseRef     string  `json:"pose_ref"`
}

// ResultTable is the ranked result of a finished job.
type ResultTable struct {
	JobID    string      `json:"job_id"`
	Receptor string      `json:"receptor"`
	Ligand   string      `json:"ligand"`
	Rows     []ResultRow `json:"rows"`
}

// ─── JobsClient ───

// JobsClient covers /api/v1/jobs.
type JobsClient struct {
	client *Client
}

// Submit queues req and returns its job id.
func (jc *JobsClient) Submit(ctx context.Context, req JobRequest) (*Submission, error) {
	if req.Receptor.Path == "" || req.Ligand.Path == "" {
		return nil, errors.InvalidParam("client: receptor and ligand paths are required")
	}
	var sub Submission
	resp, err := jc.client.postJSON(ctx, "/api/v1/jobs", req, &sub)
	if err != nil {
		return nil, err
	}
	sub.Location = resp.header.Get("Location")
	return &sub, nil
}

// Get returns the job record.
func (jc *JobsClient) Get(ctx context.Context, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, errors.InvalidParam("client: job id is required")
	}
	var job Job
	if err := jc.client.getJSON(ctx, "/api/v1/jobs/"+url.PathEscape(jobID), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Results returns the ranked table.  limit > 0 keeps the best limit rows.
func (jc *JobsClient) Results(ctx context.Context, jobID string, limit int) (*ResultTable, error) {
	if jobID == "" {
		return nil, errors.InvalidParam("client: job id is required")
	}
	var table ResultTable
	if err := jc.client.getJSON(ctx, resultsPath(jobID, "json", limit), &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// ResultsCSV copies the ranked table in CSV form to w.
func (jc *JobsClient) ResultsCSV(ctx context.Context, jobID string, w io.Writer) error {
	if jobID == "" {
		return errors.InvalidParam("client: job id is required")
	}
	resp, err := jc.client.do(ctx, http.MethodGet, resultsPath(jobID, "csv", 0), nil, "text/csv")
	if err != nil {
		return err
	}
	if _, err := w.Write(resp.body); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "client: cannot write results")
	}
	return nil
}

// Wait polls the job every interval until it finishes or ctx ends.
func (jc *JobsClient) Wait(ctx context.Context, jobID string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := jc.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Finished() {
			return job, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return job, ctx.Err()
		}
	}
}

func resultsPath(jobID, format string, limit int) string {
	q := url.Values{"format": {format}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return "/api/v1/jobs/" + url.PathEscape(jobID) + "/results?" + q.Encode()
}

//Personal.AI order the ending
