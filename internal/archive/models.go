package archive

import "time"

// Record is a finished job kept after the in-memory job has been swept.
type Record struct {
	ID           string     `gorm:"primaryKey;size:26" json:"job_id"` // ULID length
	Engine       string     `gorm:"type:varchar(32);index;not null" json:"engine"`
	Language     string     `gorm:"type:varchar(16)" json:"language"`
	Model        string     `gorm:"type:varchar(64)" json:"model,omitempty"`
	SourcePath   string     `gorm:"type:varchar(512)" json:"filename"`
	Status       string     `gorm:"type:varchar(16);index;not null" json:"status"`
	Error        *string    `gorm:"type:text" json:"error_message"`
	Cancelled    bool       `json:"cancelled"`
	SubtitlePath string     `gorm:"type:varchar(512)" json:"subtitle_path,omitempty"`
	TextPath     string     `gorm:"type:varchar(512)" json:"text_path,omitempty"`
	StartedAt    time.Time  `json:"start_time"`
	FinishedAt   *time.Time `gorm:"index" json:"end_time"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}

func (Record) TableName() string { return "transcription_jobs" }
