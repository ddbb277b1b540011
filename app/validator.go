package roomchat

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate
var uniTrans *ut.UniversalTranslator

func registerMessage(trans ut.Translator, tag, msg string) {
	validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
		return ut.Add(tag, msg, true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T(tag, fe.Field(), fe.Param())
		return t
	})
}

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	en := en.New()
	uniTrans = ut.New(en, en)
	enTrans, _ := uniTrans.GetTranslator("en")

	// json name when present, lowercased field name otherwise
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(field.Name)
		}
		return name
	})

	validate.RegisterValidation("port", func(fl validator.FieldLevel) bool {
		port, ok := fl.Field().Interface().(int)
		if !ok {
			return false
		}
		return port > 0 && port <= 65535
	})

	// notblank rejects strings made of whitespace only
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})

	registerMessage(enTrans, "required", "{0} is a required field")
	registerMessage(enTrans, "notblank", "{0} must not be blank")
	registerMessage(enTrans, "port", "{0} must be a valid port number")
	registerMessage(enTrans, "oneof", "{0} must be one of [{1}]")
	registerMessage(enTrans, "min", "{0} must be at least {1}")
	registerMessage(enTrans, "max", "{0} must be at most {1}")
}
