package prworker

import "fmt"

// Job is one PR review run. Key serialises execution per PR so two webhooks
// for the same (repo, pr_number) never run concurrently (§4.2 Worker pool).
type Job struct {
	Repo     string
	PRNumber int
	Title    string
	Author   string
	URL      string
}

func (j Job) Key() string {
	return fmt.Sprintf("%s#%d", j.Repo, j.PRNumber)
}
