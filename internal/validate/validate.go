// Package validate runs struct-tag validation on decoded request bodies and
// renders failures as per-field English messages keyed by JSON name.
package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once       sync.Once
	validate   *validator.Validate
	translator ut.Translator

	// custom tags and texts
	enumTags = map[string]struct {
		values []string
		text   string
	}{
		"difficulty":   {[]string{"easy", "medium", "hard"}, "must be easy, medium, or hard"},
		"role":         {[]string{"teacher", "student"}, "must be teacher or student"},
		"show_results": {[]string{"immediately", "after_submission"}, "must be immediately or after_submission"},
	}
	requiredText = "this field is required"
)

// Error lists validation failures by field.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func setup() {
	validate = validator.New()
	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, def := range enumTags {
		allowed := def.values
		_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			v := fl.Field().String()
			if v == "" {
				return true
			}
			for _, a := range allowed {
				if v == a {
					return true
				}
			}
			return false
		})
		registerTranslation(tag, def.text, false)
	}
	registerTranslation("required", requiredText, true)
}

func registerTranslation(tag, text string, override bool) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s and returns *Error on failure.
func Struct(s interface{}) error {
	once.Do(setup)

	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if name == "" {
			name = fe.StructField()
		}
		fields[name] = fe.Translate(translator)
	}
	return &Error{Fields: fields}
}

// Var validates a single value against tag.
func Var(field interface{}, tag string) bool {
	once.Do(setup)
	return validate.Var(field, tag) == nil
}
