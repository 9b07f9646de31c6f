package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var trans ut.Translator

// InitValidator wires gin's binding validator with json field names, an
// English translator, and the consultation-specific rules.
func InitValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("modelref", validModelRef)

		en := en.New()
		uni := ut.New(en, en)
		trans, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v, trans)
	}
}

// validModelRef accepts a bare model name or a "service/model" reference.
// Blank entries and dangling slashes are rejected before they reach the
// engine, where they would only surface as a per-model lookup failure.
func validModelRef(fl validator.FieldLevel) bool {
	ref := strings.TrimSpace(fl.Field().String())
	if ref == "" {
		return false
	}
	return !strings.HasPrefix(ref, "/") && !strings.HasSuffix(ref, "/")
}

// ParseValidationError flattens binding failures into a field → message
// map keyed by json name (list entries as "models[0]").
func ParseValidationError(err error) map[string]string {
	errMap := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			ns := e.Namespace()

			if i := strings.Index(ns, "."); i != -1 {
				ns = ns[i+1:]
			}

			msg := e.Translate(trans)

			switch e.Tag() {
			case "oneof":
				msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
			case "modelref":
				msg = "must be a model name or service/model reference"
			}

			errMap[ns] = msg
		}
		return errMap
	}

	errMap["body"] = "Invalid request body format. Please fix your payload."
	return errMap
}
