package transfer

// PublishRequest is the body sent to the publish backend, once per platform per attempt.
type PublishRequest struct {
	UserID   int64  `json:"userId"`
	Platform string `json:"platform"`
	Content  string `json:"content"`
	MediaRef string `json:"mediaRef,omitempty"`
	Kind     string `json:"kind"`
}

const (
	PublishStatusSuccess = "success"
	PublishStatusError   = "error"
)

type PublishResponse struct {
	Status   string `json:"status"`
	PostURL  string `json:"postUrl,omitempty"`
	ShareURL string `json:"shareUrl,omitempty"`
	Error    string `json:"error,omitempty"`
}
