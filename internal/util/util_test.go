package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"mysql_practice_backend/internal/model"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{Username: "alice", Role: model.Admin}
	user.ID = 42

	token, err := GenerateJWT(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, model.Admin, claims.Role)
	assert.Equal(t, "alice", claims.Username)

	_, err = ParseJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestJWTExpired(t *testing.T) {
	user := &model.User{Username: "bob", Role: model.Student}
	token, err := GenerateJWT(user, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseJWT(token, "secret")
	assert.Error(t, err)
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
	}{
		{ErrQuestionNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", ErrUserNotFound), http.StatusNotFound},
		{Validationf("page must be >= 1"), http.StatusBadRequest},
		{fmt.Errorf("evaluate: %w", ErrGradingUnavailable), http.StatusServiceUnavailable},
		{ErrEmailRegistered, http.StatusConflict},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("append: %w", ErrStorage), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		HandleError(c, tc.err)

		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		var body Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Code)
	}
}

func TestParseUintParam(t *testing.T) {
	id, err := ParseUintParam("17")
	require.NoError(t, err)
	assert.Equal(t, uint(17), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := ParseUintParam(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestParseIntDefault(t *testing.T) {
	v, err := ParseIntDefault("", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	v, err = ParseIntDefault("5", 20)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = ParseIntDefault("x", 20)
	assert.ErrorIs(t, err, ErrValidation)
}
