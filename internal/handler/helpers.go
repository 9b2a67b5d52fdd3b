package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"qist/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// report json/form names rather than Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

func writeValidation(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New(http.StatusBadRequest, err.Error()))
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, apierror.NewValidation(fields))
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New(http.StatusBadRequest, "Invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(c, err)
		return false
	}
	return true
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New(http.StatusBadRequest, "Invalid query: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		writeValidation(c, err)
		return false
	}
	return true
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New(http.StatusBadRequest, "Invalid "+name))
		return 0, false
	}
	return uint(id), true
}

func respond(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, apierror.OK(msg, data))
}

// fail hands err to middleware.ErrorHandler, which writes the envelope.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
