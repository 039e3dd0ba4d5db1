package request

// Form field names follow the portal's HTML forms.

type LoginForm struct {
	Username string `form:"emailAddress" label:"Email address" validate:"required"`
	Password string `form:"password" label:"Password" validate:"required"`
}

type NewPasswordForm struct {
	NewPassword string `form:"newPassword" label:"New password" validate:"required,min=8"`
}

type PasswordResetRequestForm struct {
	Username string `form:"emailAddress" label:"Email address" validate:"required"`
}

type PasswordResetForm struct {
	Username    string `form:"emailAddress" label:"Email address" validate:"required"`
	Code        string `form:"verificationCode" label:"Verification code" validate:"required"`
	NewPassword string `form:"newPassword" label:"New password" validate:"required,min=8"`
}

type MfaCodeForm struct {
	Code string `form:"authVerificationCode" label:"Verification code" validate:"required,len=6,numeric"`
}

// AccessRequestForm is a requester's new access request.
type AccessRequestForm struct {
	FirstName   string `form:"firstName" label:"First name" validate:"required,max=100"`
	LastName    string `form:"lastName" label:"Last name" validate:"required,max=100"`
	Email       string `form:"emailAddress" label:"Email address" validate:"required,email"`
	Team        string `form:"teamName" label:"Team" validate:"required,max=100"`
	Environment string `form:"environmentRequired" label:"Environment" validate:"required"`
	Comments    string `form:"requestComments" label:"Comments" validate:"max=2000"`
}

// DecisionForm is an admin's approve/deny on the request view page.
type DecisionForm struct {
	Status   string `form:"adminStatus" label:"Decision" validate:"required,decision"`
	Comments string `form:"adminComments" label:"Comments" validate:"max=2000"`
}

// Admin control panel actions.
const (
	AdminActionUpdate = "Update"
	AdminActionDelete = "Delete"
)

// AdminForm is the admin control panel. Only Action is needed to delete.
type AdminForm struct {
	Action        string `form:"AdminControlPanel" label:"Action" validate:"required,oneof=Update Delete"`
	FirstName     string `form:"firstName" label:"First name" validate:"required_if=Action Update,max=100"`
	LastName      string `form:"lastName" label:"Last name" validate:"required_if=Action Update,max=100"`
	Email         string `form:"emailAddress" label:"Email address" validate:"required_if=Action Update,omitempty,email"`
	Team          string `form:"teamName" label:"Team" validate:"required_if=Action Update,max=100"`
	Environment   string `form:"environmentRequired" label:"Environment" validate:"required_if=Action Update"`
	Status        string `form:"requestStatus" label:"Status" validate:"required_if=Action Update,omitempty,status"`
	RequestDate   string `form:"requestDate" label:"Request date" validate:"required_if=Action Update,omitempty,timestamp"`
	AdminComments string `form:"adminComments" label:"Admin comments" validate:"max=2000"`
}

// ExportForm selects the records and file format of an export.
type ExportForm struct {
	Status      string `form:"status"`
	Environment string `form:"environment"`
	Format      string `form:"format" label:"Format" validate:"omitempty,oneof=csv xlsx"`
}

// EnvironmentsForm holds the admin URL form, keyed by environment name
// (url[Test]=...), and an optional VPN profile target.
type EnvironmentsForm struct {
	URLs           map[string]string `form:"url"`
	VPNEnvironment string            `form:"vpnEnvironment"`
}
