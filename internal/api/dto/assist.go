package dto

type AssistRequest struct {
	Task     string `json:"task_type"`
	Text     string `json:"text"`
	ReportID string `json:"report_id,omitempty"`
}

func (r AssistRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Task == "" {
		errors["task_type"] = "Task type is required"
	}
	if r.Text == "" {
		errors["text"] = "Text is required"
	}

	return errors
}
