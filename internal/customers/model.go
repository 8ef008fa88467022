package customers

import "time"

// Enumerated answers accepted from the intake form. Empty means unanswered.
var (
	genders         = []string{"男", "女"}
	yesNo           = []string{"有", "無"}
	itchinessLevels = []string{"無", "偶爾", "經常"}
	dandruffLevels  = []string{"無", "少量", "明顯"}
	hairLossLevels  = []string{"正常", "偏多"}
	stressLevels    = []string{"低", "中", "高"}
)

// Lifestyle captures the intake questionnaire answers.
type Lifestyle struct {
	WashFrequency      string `json:"washFrequency,omitempty"`
	OilOnsetTime       string `json:"oilOnsetTime,omitempty"`
	Itchiness          string `json:"itchiness,omitempty"`
	Dandruff           string `json:"dandruff,omitempty"`
	HairLossPerception string `json:"hairLossPerception,omitempty"`
	StressLevel        string `json:"stressLevel,omitempty"`
}

// Customer is a clinic customer keyed by normalised phone number.
type Customer struct {
	Phone              string    `json:"phone"`
	Name               string    `json:"name"`
	AgeRange           string    `json:"ageRange,omitempty"`
	Gender             string    `json:"gender,omitempty"`
	HasChemicalHistory string    `json:"hasChemicalHistory,omitempty"`
	Lifestyle          Lifestyle `json:"lifestyle"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Profile is the writable part of a customer.
type Profile struct {
	Name               string    `json:"name"`
	AgeRange           string    `json:"ageRange"`
	Gender             string    `json:"gender"`
	HasChemicalHistory string    `json:"hasChemicalHistory"`
	Lifestyle          Lifestyle `json:"lifestyle"`
}
