package github

// pullRequest is the subset of the pulls API response the pipeline needs.
type pullRequest struct {
	Number       int    `json:"number"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	ChangedFiles int    `json:"changed_files"`
	Head         ref    `json:"head"`
	Base         ref    `json:"base"`
}

type ref struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

// createReviewRequest is the POST body for the reviews endpoint.
type createReviewRequest struct {
	CommitID string          `json:"commit_id,omitempty"`
	Event    string          `json:"event"`
	Body     string          `json:"body"`
	Comments []reviewComment `json:"comments,omitempty"`
}

// reviewComment anchors one comment to a new-file line.
type reviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Side string `json:"side"`
	Body string `json:"body"`
}

type createReviewResponse struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
}

// errorResponse is GitHub's error envelope.
type errorResponse struct {
	Message string `json:"message"`
	Errors  []struct {
		Resource string `json:"resource"`
		Field    string `json:"field"`
		Code     string `json:"code"`
		Message  string `json:"message"`
	} `json:"errors"`
}
