package ashby

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// maxListedTitles caps the titles echoed back when no job matches
const maxListedTitles = 10

// JobSummary is a matched job with its description
type JobSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Department  string `json:"department,omitempty"`
	Location    string `json:"location,omitempty"`
}

// SearchResult is the outcome of a title search. Job is nil when nothing matched.
type SearchResult struct {
	Job               *JobSummary `json:"job"`
	Message           string      `json:"message,omitempty"`
	AvailableJobs     []string    `json:"availableJobs,omitempty"`
	SearchedTitle     string      `json:"searchedTitle,omitempty"`
	TotalJobsSearched int         `json:"totalJobsSearched,omitempty"`
}

// NotConfiguredResult is what a search reports when no API key is set
func NotConfiguredResult() *SearchResult {
	return &SearchResult{Message: "Ashby integration not configured"}
}

// FindJobByTitle picks the job whose title best matches title, case-insensitively.
// Tiers are tried across all jobs in order: exact, job title contains the query,
// every query word appears (queries of two or more words), query contains the
// job title.
func FindJobByTitle(jobs []Job, title string) (Job, bool) {
	query := strings.ToLower(strings.TrimSpace(title))
	if query == "" {
		return Job{}, false
	}
	words := strings.Fields(query)

	tiers := []func(candidate string) bool{
		func(c string) bool { return c == query },
		func(c string) bool { return strings.Contains(c, query) },
		func(c string) bool {
			if len(words) < 2 {
				return false
			}
			for _, w := range words {
				if !strings.Contains(c, w) {
					return false
				}
			}
			return true
		},
		func(c string) bool { return strings.Contains(query, c) },
	}

	for _, matches := range tiers {
		for _, job := range jobs {
			candidate := strings.ToLower(strings.TrimSpace(job.Title))
			if candidate == "" {
				continue
			}
			if matches(candidate) {
				return job, true
			}
		}
	}
	return Job{}, false
}

// SearchJob finds a job by title and fetches its description. A failed detail
// fetch still returns the match, without a description.
func (c *Client) SearchJob(ctx context.Context, title string) (*SearchResult, error) {
	jobs, err := c.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	log.Printf("[ashby] searching %d jobs for %q", len(jobs), title)

	job, ok := FindJobByTitle(jobs, title)
	if !ok {
		available := make([]string, 0, maxListedTitles)
		for i := 0; i < len(jobs) && i < maxListedTitles; i++ {
			available = append(available, jobs[i].Title)
		}
		return &SearchResult{
			Message:           fmt.Sprintf("No job found matching %q. Searched %d jobs.", title, len(jobs)),
			AvailableJobs:     available,
			SearchedTitle:     title,
			TotalJobsSearched: len(jobs),
		}, nil
	}

	summary := &JobSummary{
		ID:         job.ID,
		Title:      job.Title,
		Department: job.DepartmentName,
		Location:   job.LocationName,
	}
	info, err := c.GetJob(ctx, job.ID)
	if err != nil {
		log.Printf("[ashby] matched %q but detail fetch failed: %v", job.Title, err)
	} else {
		summary.Description = info.Text()
	}
	return &SearchResult{Job: summary}, nil
}
