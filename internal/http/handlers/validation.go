package handlers

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators configures gin's validator: field errors are reported
// under their json names and the "role" rule is added. Safe to call more
// than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("binding validator is not go-playground/validator")
			return
		}

		v.RegisterTagNameFunc(jsonFieldName)

		registerErr = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, err := user.ParseRole(fl.Field().String())
			return err == nil
		})
	})

	return registerErr
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
