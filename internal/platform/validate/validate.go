// Package validate holds the process-wide struct validator with english messages
package validate

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	perr "activitymirror/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldError aliases validator.FieldError
type FieldError = validator.FieldError

// Svc holds a singleton validator and translator
type Svc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	once sync.Once
	svc  *Svc
)

// forge account names: alphanumerics and single inner hyphens, up to 39 chars
var forgeUser = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|[-_.](?:[A-Za-z0-9])){0,38}$`)

// Get returns the validator singleton, initializing on first use
func Get() *Svc {
	once.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// messages name the settings key the user actually wrote
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"toml", "yaml", "json"} {
				tag := fld.Tag.Get(key)
				if idx := strings.Index(tag, ","); idx >= 0 {
					tag = tag[:idx]
				}
				if tag != "" && tag != "-" {
					return tag
				}
			}
			return fld.Name
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		_ = v.RegisterValidation("forge_user", func(fl validator.FieldLevel) bool {
			return forgeUser.MatchString(fl.Field().String())
		})
		registerMessage(v, trans, "forge_user", "{0} must be a valid forge account name")
		registerMessage(v, trans, "min", "{0} must be at least {1}")
		registerMessage(v, trans, "max", "{0} must be at most {1}")

		svc = &Svc{Validator: v, Translator: trans}
	})
	return svc
}

// Struct validates s and maps the first failure to a Validation error with its field
func Struct(s any) error {
	err := Get().Validator.Struct(s)
	if err == nil {
		return nil
	}
	field, msg := FieldAndMessage(err)
	out := perr.New(perr.ErrorCodeValidation, msg)
	if field != "" {
		out = perr.WithField(out, field)
	}
	return out
}

// FieldAndMessage returns the namespaced field and translated message of the first failure
func FieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	if inv, ok := err.(*validator.InvalidValidationError); ok {
		return "", inv.Error()
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return trimRoot(fe.Namespace()), fe.Translate(Get().Translator)
	}
	return "", err.Error()
}

// trimRoot drops the top level struct name: Settings.github.token -> github.token
func trimRoot(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(u ut.Translator) error { return u.Add(tag, text, true) },
		func(u ut.Translator, fe validator.FieldError) string {
			msg, _ := u.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}
