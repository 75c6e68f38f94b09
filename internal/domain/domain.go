package domain

// Run statuses recorded in the run log.
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// Run is one recorded invocation of a pipeline verb.
type Run struct {
	ID     string `json:"id"`
	TS     string `json:"ts" format:"date-time"`
	Verb   string `json:"verb"`
	Model  string `json:"model,omitempty"`
	Status string `json:"status" enum:"ok,failed"`
	Detail string `json:"detail,omitempty"`
}
