package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// safeIDPattern bounds caller-supplied identifiers to characters that
// are safe in keys, URLs, and log lines.
var safeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", func(fl validator.FieldLevel) bool {
			return safeIDPattern.MatchString(fl.Field().String())
		})
	}
}

// SanitizeStruct trims and HTML-escapes every settable string and
// *string field of the struct that v points to. Non-struct values are
// left alone.
func SanitizeStruct(v any) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()

	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Pointer && !field.IsNil() {
			field = field.Elem()
		}
		if field.Kind() == reflect.String {
			field.SetString(html.EscapeString(strings.TrimSpace(field.String())))
		}
	}
}
