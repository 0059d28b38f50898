package permissions

// Notification permission identifiers.
const (
	NotificationView     = "notification.view"
	NotificationCreate   = "notification.create"
	NotificationGenerate = "notification.generate"
	NotificationManage   = "notification.manage"
)

// Built-in roles carried in access token claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Definition describes one permission. A grant only takes effect when every
// Requires entry is also held; Implies entries are granted alongside it.
type Definition struct {
	ID          string
	Requires    []string
	Implies     []string
	Description string
}

var catalog = []Definition{
	{
		ID:          NotificationView,
		Description: "View, read and delete own and global notifications",
	},
	{
		ID:          NotificationCreate,
		Requires:    []string{NotificationView},
		Description: "Create notifications through the API",
	},
	{
		ID:          NotificationGenerate,
		Requires:    []string{NotificationView},
		Description: "Generate sample notifications from active templates",
	},
	{
		ID:          NotificationManage,
		Requires:    []string{NotificationView},
		Implies:     []string{NotificationCreate, NotificationGenerate},
		Description: "Administer every notification, templates and maintenance jobs",
	},
}

// DefaultRoleGrants maps the built-in roles to their directly granted permissions.
func DefaultRoleGrants() map[string][]string {
	return map[string][]string{
		RoleUser:  {NotificationView, NotificationCreate, NotificationGenerate},
		RoleAdmin: {NotificationView, NotificationManage},
	}
}
