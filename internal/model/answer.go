package model

// Answer is the product of one answered question. It is what /chat returns,
// what the streaming endpoint assembles event by event, and what the answer
// cache serializes.
type Answer struct {
	Answer       string   `json:"answer"`
	Sources      []string `json:"sources"`
	FollowUps    []string `json:"followUps"`
	ResponseTime int64    `json:"responseTime"`
	QuestionID   string   `json:"questionId,omitempty"`
	Cached       bool     `json:"cached,omitempty"`
}
