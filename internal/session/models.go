package session

import "time"

// Operations recorded per iteration.
const (
	OpGenerate = "generate"
	OpModify   = "modify"
)

type Session struct {
	ID                 string
	Name               string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CurrentIterationID string
	Model              string
}

// Iteration is one successful generation or modification. ImagePath
// is empty when the response carried no image part; ResponseText is
// empty when it carried no text part.
type Iteration struct {
	ID           string
	SessionID    string
	ParentID     string
	Operation    string // OpGenerate or OpModify
	Prompt       string
	ResponseText string
	Model        string
	ImagePath    string
	Timestamp    time.Time
}

func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
