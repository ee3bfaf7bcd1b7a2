package workflow

import "thoreinstein.com/prflow/pkg/github"

// Metrics are the size measures a complexity score is computed from.
type Metrics struct {
	Additions      int
	ChangedFiles   int
	Comments       int
	Deletions      int
	ReviewComments int
}

// Score weights.
const (
	weightAdditions      = 2
	weightChangedFiles   = 2
	weightComments       = 2
	weightDeletions      = 2
	weightReviewComments = 1
)

// Score returns the weighted complexity of a pull request. It is strictly
// increasing in every metric.
func Score(m Metrics) int {
	return weightAdditions*m.Additions +
		weightChangedFiles*m.ChangedFiles +
		weightComments*m.Comments +
		weightDeletions*m.Deletions +
		weightReviewComments*m.ReviewComments
}

// MetricsOf extracts the size metrics of a detailed pull request.
func MetricsOf(pr *github.PullRequest) Metrics {
	return Metrics{
		Additions:      pr.Additions,
		ChangedFiles:   pr.ChangedFiles,
		Comments:       pr.Comments,
		Deletions:      pr.Deletions,
		ReviewComments: pr.ReviewComments,
	}
}
