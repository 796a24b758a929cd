package types

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type MagicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type VerifyLoginLinkRequest struct {
	Token string `json:"token" validate:"required"`
}

type ReferenceImageRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	FileURL  string `json:"file_url" validate:"required,url"`
	FileKey  string `json:"file_key" validate:"required"`
	MimeType string `json:"mime_type" validate:"required,oneof=image/jpeg image/png image/webp image/gif"`
	FileSize int64  `json:"file_size" validate:"gt=0"`
}

type IntakeRequest struct {
	Name            string                  `json:"name" validate:"max=100"`
	Email           string                  `json:"email" validate:"required,email"`
	ProductType     string                  `json:"product_type" validate:"required,max=100"`
	CreativeBrief   string                  `json:"creative_brief" validate:"max=5000"`
	ReferenceImages []ReferenceImageRequest `json:"reference_images" validate:"max=10,dive"`
}

type UpdateBriefRequest struct {
	ProductType   *string `json:"product_type" validate:"omitempty,min=1,max=100"`
	CreativeBrief *string `json:"creative_brief" validate:"omitempty,max=5000"`
}

type AssignPackageRequest struct {
	PackageType    string `json:"package_type" validate:"required,oneof=10-shots 20-shots 30-shots custom"`
	PaymentLinkURL string `json:"payment_link_url" validate:"required,url"`
	SendEmail      *bool  `json:"send_email"`
}

type MarkPaidRequest struct {
	SendMagicLink *bool   `json:"send_magic_link"`
	Notes         *string `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

type UploadURLRequest struct {
	ProjectID string `json:"project_id" validate:"omitempty,uuid"`
	Type      string `json:"type" validate:"omitempty,oneof=REFERENCE GENERATED"`
	FileName  string `json:"file_name" validate:"required,max=255"`
	MimeType  string `json:"mime_type" validate:"required"`
	FileSize  int64  `json:"file_size" validate:"gt=0"`
}

type GeneratedAssetRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	FileKey  string `json:"file_key" validate:"required"`
	MimeType string `json:"mime_type" validate:"required"`
	FileSize int64  `json:"file_size" validate:"gt=0"`
	Width    *int   `json:"width" validate:"omitempty,gt=0"`
	Height   *int   `json:"height" validate:"omitempty,gt=0"`
}

type AddAssetsRequest struct {
	Assets []GeneratedAssetRequest `json:"assets" validate:"required,min=1,max=50,dive"`
}

type RevisionRequest struct {
	Notes string `json:"notes" validate:"required,max=2000"`
}
