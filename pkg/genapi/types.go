package genapi

// JobState classifies a remote job status response.
type JobState uint8

const (
	JobStateProcessing JobState = iota + 1
	JobStateCompleted
	JobStateFailed
)

func (s JobState) String() string {
	switch s {
	case JobStateProcessing:
		return "processing"
	case JobStateCompleted:
		return "completed"
	case JobStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// JobStatus is one classified status observation for a remote job.
type JobStatus struct {
	TaskID    string
	State     JobState
	Message   string // progress message or server-reported failure reason
	ResultURL string // result locator, set when State is Completed
}

type submitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// statusResponse mirrors GET /status/{task_id}. The server has drifted on the
// result locator key over time, so every known alias is decoded and
// resultLocator picks the first non-empty one, preferring result_url.
type statusResponse struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	ResultURL string `json:"result_url"`
	Result    string `json:"result"`
	ImageURL  string `json:"image_url"`
	URL       string `json:"url"`
	OutputURL string `json:"output_url"`
}

func (r statusResponse) resultLocator() string {
	for _, candidate := range []string{r.ResultURL, r.Result, r.ImageURL, r.URL, r.OutputURL} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}
