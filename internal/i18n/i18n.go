// Package i18n holds the user facing messages of the service. Arabic is the
// primary language, English the fallback for clients that ask for it.
package i18n

import (
	"context"
	"strings"

	"golang.org/x/text/language"
)

// Supported languages, in order of preference.
var (
	Arabic  = language.Arabic
	English = language.English
)

var matcher = language.NewMatcher([]language.Tag{Arabic, English})

// Message codes.
const (
	CodeInvalidCredentials  = "invalid_credentials"
	CodeEmailNotConfirmed   = "email_not_confirmed"
	CodeTooManyRequests     = "too_many_requests"
	CodeAccountInactive     = "account_inactive"
	CodeInvalidEmail        = "invalid_email"
	CodePasswordRequired    = "password_required"
	CodeWeakPassword        = "weak_password"
	CodeSessionExpired      = "session_expired"
	CodeUnauthorized        = "unauthorized"
	CodeForbidden           = "forbidden"
	CodeNetwork             = "network"
	CodeServer              = "server"
	CodeUnknown             = "unknown"
	CodeValidation          = "validation"
	CodeInvalidPeriod       = "invalid_period"
	CodeInvalidDate         = "invalid_date"
	CodeInvalidFilter       = "invalid_filter"
	CodeInvalidRequestBody  = "invalid_request_body"
	CodeCustomerNotFound    = "customer_not_found"
	CodeWarrantyNotFound    = "warranty_not_found"
	CodeProductNotFound     = "product_not_found"
	CodeUserNotFound        = "user_not_found"
	CodeDuplicateRequest    = "duplicate_request"
	CodeSelfAction          = "self_action"
	CodeEmailTaken          = "email_taken"
	CodeWarrantyCreated     = "warranty_created"
	CodeWarrantyUpdated     = "warranty_updated"
	CodeWarrantyDeleted     = "warranty_deleted"
	CodeUserCreated         = "user_created"
	CodeUserUpdated         = "user_updated"
	CodeUserDeleted         = "user_deleted"
	CodeCustomerUpdated     = "customer_updated"
	CodeCustomerDeleted     = "customer_deleted"
	CodeNothingToUpdate     = "nothing_to_update"
	CodeSearchKeyRequired   = "search_key_required"
	CodeLoginFailed         = "login_failed"
	CodeProfileLoadFailed   = "profile_load_failed"
	CodeConnectionRestored  = "connection_restored"
	CodeConnectionLost      = "connection_lost"
	CodeTokenMissing        = "token_missing"
	CodeRoleInvalid         = "role_invalid"
	CodePhoneInvalid        = "phone_invalid"
	CodeNameTooShort        = "name_too_short"
	CodeInvoiceRequired     = "invoice_required"
	CodeProductsRequired    = "products_required"
	CodeInvalidIdentifier   = "invalid_id"
	CodeCertificateNotFound = "certificate_not_found"
)

type entry struct {
	ar, en string
}

var catalogue = map[string]entry{
	CodeInvalidCredentials:  {"البريد الإلكتروني أو كلمة المرور غير صحيحة", "Invalid email or password"},
	CodeEmailNotConfirmed:   {"يرجى تأكيد البريد الإلكتروني أولاً", "Please confirm your email first"},
	CodeTooManyRequests:     {"تم تجاوز عدد المحاولات المسموح. يرجى المحاولة لاحقاً", "Too many attempts. Please try again later"},
	CodeAccountInactive:     {"الحساب غير مفعل. يرجى التواصل مع المدير", "The account is inactive. Please contact the administrator"},
	CodeInvalidEmail:        {"البريد الإلكتروني غير صحيح", "The email address is invalid"},
	CodePasswordRequired:    {"كلمة المرور مطلوبة", "Password is required"},
	CodeWeakPassword:        {"كلمة المرور يجب أن تحتوي على 8 أحرف على الأقل مع حرف كبير وحرف صغير ورقم", "The password needs at least 8 characters with an upper case letter, a lower case letter and a digit"},
	CodeSessionExpired:      {"انتهت صلاحية الجلسة. يرجى تسجيل الدخول مرة أخرى", "The session has expired. Please sign in again"},
	CodeUnauthorized:        {"خطأ في المصادقة. يرجى المحاولة مرة أخرى.", "Authentication error. Please try again."},
	CodeForbidden:           {"ليس لديك صلاحية للوصول إلى هذه الصفحة", "You do not have permission to access this resource"},
	CodeNetwork:             {"مشكلة في الاتصال. يرجى التحقق من اتصال الإنترنت والمحاولة مرة أخرى.", "Connection problem. Please check your internet connection and try again."},
	CodeServer:              {"حدث خطأ في الخادم. يرجى المحاولة مرة أخرى لاحقاً.", "A server error occurred. Please try again later."},
	CodeUnknown:             {"حدث خطأ غير متوقع. يرجى المحاولة مرة أخرى.", "An unexpected error occurred. Please try again."},
	CodeValidation:          {"يرجى التحقق من البيانات المدخلة.", "Please check the entered data."},
	CodeInvalidPeriod:       {"مدة الضمان يجب أن تكون بين 1 و 60 شهراً", "The warranty period must be between 1 and 60 months"},
	CodeInvalidDate:         {"التاريخ غير صحيح", "The date is invalid"},
	CodeInvalidFilter:       {"قيمة التصفية غير صحيحة", "The filter value is invalid"},
	CodeInvalidRequestBody:  {"تعذر قراءة الطلب", "The request body could not be read"},
	CodeCustomerNotFound:    {"العميل غير موجود", "Customer not found"},
	CodeWarrantyNotFound:    {"شهادة الضمان غير موجودة", "Warranty not found"},
	CodeProductNotFound:     {"الشركة غير موجودة", "Product not found"},
	CodeUserNotFound:        {"المستخدم غير موجود", "User not found"},
	CodeDuplicateRequest:    {"تم إرسال هذا الطلب مسبقاً", "This request was already submitted"},
	CodeSelfAction:          {"لا يمكنك تنفيذ هذا الإجراء على حسابك", "You cannot perform this action on your own account"},
	CodeEmailTaken:          {"البريد الإلكتروني مستخدم بالفعل", "The email address is already in use"},
	CodeWarrantyCreated:     {"تم إنشاء شهادة الضمان بنجاح", "Warranty certificate created"},
	CodeWarrantyUpdated:     {"تم تحديث شهادة الضمان بنجاح", "Warranty certificate updated"},
	CodeWarrantyDeleted:     {"تم حذف شهادة الضمان بنجاح", "Warranty certificate deleted"},
	CodeUserCreated:         {"تم إنشاء المستخدم بنجاح", "User created"},
	CodeUserUpdated:         {"تم تحديث بيانات المستخدم بنجاح", "User updated"},
	CodeUserDeleted:         {"تم حذف المستخدم بنجاح", "User deleted"},
	CodeCustomerUpdated:     {"تم تحديث بيانات العميل بنجاح", "Customer updated"},
	CodeCustomerDeleted:     {"تم حذف العميل وجميع شهاداته بنجاح", "Customer and all certificates deleted"},
	CodeNothingToUpdate:     {"لا توجد بيانات للتحديث", "Nothing to update"},
	CodeSearchKeyRequired:   {"يرجى إدخال رقم الفاتورة أو رقم الهاتف", "Enter an invoice number or a phone number"},
	CodeLoginFailed:         {"حدث خطأ في تسجيل الدخول. يرجى المحاولة مرة أخرى", "Sign in failed. Please try again"},
	CodeProfileLoadFailed:   {"فشل في تحميل بيانات المستخدم", "Failed to load the user profile"},
	CodeConnectionRestored:  {"تم استعادة الاتصال", "Connection restored"},
	CodeConnectionLost:      {"انقطع الاتصال بالخادم", "Connection to the server lost"},
	CodeTokenMissing:        {"يرجى تسجيل الدخول أولاً", "Please sign in first"},
	CodeRoleInvalid:         {"الدور غير صحيح", "The role is invalid"},
	CodePhoneInvalid:        {"رقم الهاتف غير صحيح", "The phone number is invalid"},
	CodeNameTooShort:        {"اسم العميل يجب أن يكون حرفين على الأقل", "The customer name must have at least 2 characters"},
	CodeInvoiceRequired:     {"رقم الفاتورة مطلوب", "The invoice number is required"},
	CodeProductsRequired:    {"يرجى اختيار شركة واحدة على الأقل", "Select at least one product"},
	CodeInvalidIdentifier:   {"المعرف غير صحيح", "The identifier is invalid"},
	CodeCertificateNotFound: {"لا توجد شهادات ضمان لهذا العميل", "This customer has no warranty certificates"},
}

// Negotiate picks the response language from an Accept-Language header.
// Arabic is returned when the header is empty or matches nothing.
func Negotiate(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Arabic
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No || idx == 0 {
		return Arabic
	}
	return English
}

// Message returns the text for code in tag's language. Unknown codes give
// the generic unexpected error text.
func Message(tag language.Tag, code string) string {
	e, ok := catalogue[code]
	if !ok {
		e = catalogue[CodeUnknown]
	}
	if isEnglish(tag) {
		return e.en
	}
	return e.ar
}

// Known reports whether code has a catalogue entry.
func Known(code string) bool {
	_, ok := catalogue[code]
	return ok
}

func isEnglish(tag language.Tag) bool {
	base, _ := tag.Base()
	en, _ := English.Base()
	return base == en
}

// AuthCode maps an authentication failure message to a catalogue code.
// Messages that match no rule give CodeLoginFailed.
func AuthCode(msg string) string {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "invalid login credentials"), strings.Contains(m, "invalid credentials"):
		return CodeInvalidCredentials
	case strings.Contains(m, "email not confirmed"):
		return CodeEmailNotConfirmed
	case strings.Contains(m, "too many requests"):
		return CodeTooManyRequests
	case strings.Contains(m, "inactive"):
		return CodeAccountInactive
	default:
		return CodeLoginFailed
	}
}

type ctxKey struct{}

// WithLanguage stores the negotiated language in ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// FromContext returns the language stored by WithLanguage, Arabic otherwise.
func FromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return tag
	}
	return Arabic
}
