package types

// Transform task status values persisted in the history table.
const (
	TransformTaskStatusProcessing uint8 = 1
	TransformTaskStatusSucceeded  uint8 = 2
	TransformTaskStatusFailed     uint8 = 3
)

// Feature is one camera transformation offered by the remote service.
type Feature string

const (
	FeatureTryOn      Feature = "try-on"
	FeatureHairStyle  Feature = "hair-style"
	FeatureAgeChange  Feature = "age-change"
	FeatureBeardStyle Feature = "beard-style"
	FeatureFigurine   Feature = "figurine"
	FeatureGhibliArt  Feature = "ghibli-art"
)

// FeatureSpec describes what the remote endpoint for a feature expects.
type FeatureSpec struct {
	Path            string   // endpoint path on the remote service
	ImageFields     []string // multipart image part names, in upload order
	PromptField     string   // text field name, empty when the feature takes none
	PromptRequired  bool
	MissingImageMsg string // user-facing message when image parts are missing
}

var featureSpecs = map[Feature]FeatureSpec{
	FeatureTryOn: {
		Path:            "/try-on/",
		ImageFields:     []string{"person_image", "clothing_image"},
		MissingImageMsg: "please select both person and clothing images",
	},
	FeatureHairStyle: {
		Path:            "/hair-style/",
		ImageFields:     []string{"image"},
		PromptField:     "hair_style",
		PromptRequired:  true,
		MissingImageMsg: "please select a photo",
	},
	FeatureAgeChange: {
		Path:            "/age-change/",
		ImageFields:     []string{"image"},
		PromptField:     "target_age",
		PromptRequired:  true,
		MissingImageMsg: "please select a photo",
	},
	FeatureBeardStyle: {
		Path:            "/beard-style/",
		ImageFields:     []string{"image"},
		PromptField:     "beard_style",
		PromptRequired:  true,
		MissingImageMsg: "please select a photo",
	},
	FeatureFigurine: {
		Path:            "/figurine/",
		ImageFields:     []string{"image"},
		MissingImageMsg: "please select a photo",
	},
	FeatureGhibliArt: {
		Path:            "/ghibli-art/",
		ImageFields:     []string{"image"},
		MissingImageMsg: "please select a photo",
	},
}

// Spec returns the endpoint description for the feature.
func (f Feature) Spec() (FeatureSpec, bool) {
	spec, ok := featureSpecs[f]
	return spec, ok
}

func (f Feature) Valid() bool {
	_, ok := featureSpecs[f]
	return ok
}

// Features lists all known features.
func Features() []Feature {
	return []Feature{
		FeatureTryOn,
		FeatureHairStyle,
		FeatureAgeChange,
		FeatureBeardStyle,
		FeatureFigurine,
		FeatureGhibliArt,
	}
}

// TransformTask is one generation job as recorded in local history.
type TransformTask struct {
	Id           int64  `json:"-" gorm:"primaryKey;autoIncrement"`
	TaskId       string `json:"task_id" gorm:"column:task_id;uniqueIndex;size:64"`
	Feature      string `json:"feature" gorm:"size:32"`
	RemoteTaskId string `json:"remote_task_id" gorm:"size:128"`
	Prompt       string `json:"prompt" gorm:"size:512"`
	Status       uint8  `json:"status"`
	StatusMsg    string `json:"status_msg" gorm:"size:256"`
	FailReason   string `json:"fail_reason" gorm:"size:1024"`
	ResultPath   string `json:"result_path" gorm:"size:512"`
	CreateTime   int64  `json:"create_time" gorm:"autoCreateTime"`
	UpdateTime   int64  `json:"update_time" gorm:"autoUpdateTime"`
}
