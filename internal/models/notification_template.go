package models

// TemplateTag narrows the action dispatch for templates sharing a notification type.
type TemplateTag string

const (
	TagNone       TemplateTag = ""
	TagModel      TemplateTag = "model"
	TagDeployment TemplateTag = "deployment"
	TagData       TemplateTag = "data"
	TagDataset    TemplateTag = "dataset"
	TagSystem     TemplateTag = "system"
	TagAnomaly    TemplateTag = "anomaly"
)

// Valid reports whether tag is one of the recognised dispatch tags.
func (t TemplateTag) Valid() bool {
	switch t {
	case TagNone, TagModel, TagDeployment, TagData, TagDataset, TagSystem, TagAnomaly:
		return true
	default:
		return false
	}
}

// NotificationTemplate is a named pair of parameterised strings that produces notifications.
type NotificationTemplate struct {
	BaseModel

	Name            string           `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	TitleTemplate   string           `gorm:"type:varchar(200);not null" json:"title_template"`
	MessageTemplate string           `gorm:"type:text;not null" json:"message_template"`
	Type            NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Priority        Priority         `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Tag             TemplateTag      `gorm:"type:varchar(32)" json:"tag"`
	IsActive        bool             `gorm:"not null;index" json:"is_active"`
}
