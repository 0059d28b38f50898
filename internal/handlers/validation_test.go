package handlers

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appValidator "github.com/charlesng35/mlnotify/pkg/validator"
)

func TestFormatValidationError(t *testing.T) {
	require.Equal(t, "invalid request payload", formatValidationError(nil))
	require.Equal(t, "invalid request payload", formatValidationError(errors.New("boom")))

	msg := formatValidationError(appValidator.ValidationErrors{
		{Field: "title", Tag: "required"},
		{Field: "action_text", Tag: "max", Param: "50"},
		{Field: "type", Tag: "notification_type"},
		{Field: "status", Tag: "oneof", Param: "started completed failed"},
	})
	require.Equal(t,
		"title is required; action text must be at most 50; type is not a supported value; status must be one of: started completed failed",
		msg,
	)
}

func TestEnumValidation(t *testing.T) {
	registerEnums()

	type payload struct {
		Type     string  `validate:"omitempty,notification_type"`
		Priority *string `validate:"omitempty,notification_priority"`
		Tag      string  `validate:"omitempty,template_tag"`
	}

	urgent := "urgent"
	require.NoError(t, appValidator.ValidateStruct(payload{Type: "prediction", Priority: &urgent, Tag: "anomaly"}))
	require.NoError(t, appValidator.ValidateStruct(payload{}))

	err := appValidator.ValidateStruct(payload{Type: "banner"})
	var ve appValidator.ValidationErrors
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "notification_type", ve[0].Tag)

	critical := "critical"
	require.Error(t, appValidator.ValidateStruct(payload{Priority: &critical}))
}

func TestQueryParsing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=3&bad=x&read=true&active=0&junk=maybe", nil)

	require.Equal(t, 3, parseIntQuery(c, "page", 1))
	require.Equal(t, 1, parseIntQuery(c, "bad", 1))
	require.Equal(t, 7, parseIntQuery(c, "missing", 7))

	require.Nil(t, parseBoolQuery(c, "missing"))
	require.Nil(t, parseBoolQuery(c, "junk"))
	require.NotNil(t, parseBoolQuery(c, "read"))
	require.True(t, *parseBoolQuery(c, "read"))
	require.False(t, *parseBoolQuery(c, "active"))
}
