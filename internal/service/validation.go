package service

import (
	"errors"
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/microcosm-cc/bluemonday"

	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
)

const (
	teacherNameTag  = "teacher_name"
	teacherEmailTag = "teacher_email"
	phone10Tag      = "phone10"
)

var (
	teacherEmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phone10Regex      = regexp.MustCompile(`^\d{10}$`)

	customMessages = map[string]string{
		teacherNameTag:  "Name must be at least 2 characters",
		teacherEmailTag: "Invalid email format",
		phone10Tag:      "Phone must be 10 digits",
	}
)

// Validator wraps go-playground/validator with English messages and the directory's custom tags.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
	policy     *bluemonday.Policy
}

// NewValidator builds a Validator with custom tags and translations registered.
func NewValidator() *Validator {
	validate := validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(teacherNameTag, func(fl validator.FieldLevel) bool {
		return len([]rune(strings.TrimSpace(fl.Field().String()))) >= 2
	})
	_ = validate.RegisterValidation(teacherEmailTag, func(fl validator.FieldLevel) bool {
		return teacherEmailRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation(phone10Tag, func(fl validator.FieldLevel) bool {
		return phone10Regex.MatchString(fl.Field().String())
	})

	noop := func(ut.Translator) error { return nil }
	for tag := range customMessages {
		_ = validate.RegisterTranslation(tag, translator, noop, func(_ ut.Translator, fe validator.FieldError) string {
			return customMessages[fe.Tag()]
		})
	}

	return &Validator{validate: validate, translator: translator, policy: bluemonday.StrictPolicy()}
}

// Struct validates s and returns a VALIDATION_ERROR listing every failed field, joined with ", ".
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Translate(v.translator))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, strings.Join(messages, ", "))
}

// PlainText strips markup from free text and trims it.
func (v *Validator) PlainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(v.policy.Sanitize(s)))
}
