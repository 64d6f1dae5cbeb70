package dto

// StartTransformTaskReq carries the non-file fields of a transformation
// request. Images arrive as multipart file parts named after the
// feature's image fields.
type StartTransformTaskReq struct {
	Feature       string `form:"feature" json:"feature"`
	Prompt        string `form:"prompt" json:"prompt"`
	EnhancePrompt bool   `form:"enhance_prompt" json:"enhance_prompt"`
	ReuseTaskId   string `form:"-" json:"-"` // set on retry, never by clients
}

type StartTransformTaskResData struct {
	TaskId string `json:"task_id"`
}

type GetTransformTaskReq struct {
	TaskId string `form:"taskId" binding:"required"`
}

type GetTransformTaskResData struct {
	TaskId     string `json:"task_id"`
	Feature    string `json:"feature"`
	Status     uint8  `json:"status"`
	State      string `json:"state"`
	StatusMsg  string `json:"status_msg"`
	FailReason string `json:"fail_reason,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	ResultUrl  string `json:"result_url,omitempty"`
	CreateTime int64  `json:"create_time"`
}

// StylePresetsResData lists the prompt suggestions for one feature.
type StylePresetsResData struct {
	Feature string   `json:"feature"`
	Presets []string `json:"presets"`
}
