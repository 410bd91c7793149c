package protocol

// ErrorCode is the machine-readable code inside an error envelope.
type ErrorCode string

const (
	ErrorCodeValidation  ErrorCode = "validation_error"
	ErrorCodeAuthInvalid ErrorCode = "auth_invalid"
	ErrorCodeAuthExpired ErrorCode = "auth_expired"
	ErrorCodeAuthRevoked ErrorCode = "auth_revoked"
	ErrorCodeForbidden   ErrorCode = "forbidden"
	ErrorCodeNotEditable ErrorCode = "not_editable"
	ErrorCodeNotFound    ErrorCode = "not_found"
	ErrorCodeConflict    ErrorCode = "conflict"
	ErrorCodeRateLimited ErrorCode = "rate_limited"
	ErrorCodeInternal    ErrorCode = "internal"
)

// Envelope wraps every API response, successful or not.
type Envelope struct {
	StatusCode int           `json:"statusCode"`
	Data       any           `json:"data"`
	Message    string        `json:"message"`
	Success    bool          `json:"success"`
	Errors     []ErrorDetail `json:"errors"`
}

type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// OK builds a success envelope. Errors is always an empty list, never null.
func OK(status int, data any, message string) Envelope {
	return Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
		Errors:     []ErrorDetail{},
	}
}

// Fail builds an error envelope with a single detail.
func Fail(status int, detail ErrorDetail) Envelope {
	return Envelope{
		StatusCode: status,
		Message:    detail.Message,
		Success:    false,
		Errors:     []ErrorDetail{detail},
	}
}

// NotifyRequest is the body POSTed to the notification service.
type NotifyRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	UserID    uint   `json:"userId"`
	Message   string `json:"message"`
	Sentiment string `json:"sentiment"`
}

// Request bodies.

type SignUpRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type UsernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type FieldUpdateRequest struct {
	Value string `json:"value" validate:"required"`
}

type CommentRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// SignInResponse is the data part of a successful sign-in.
type SignInResponse struct {
	User         any    `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
