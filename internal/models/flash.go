package models

// Flash categories.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered view.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}
