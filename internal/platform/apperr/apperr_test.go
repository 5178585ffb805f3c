package apperr

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrInvalid("x"), http.StatusBadRequest},
		{ErrNotFound("x"), http.StatusNotFound},
		{ErrConflict("x"), http.StatusConflict},
		{ErrInvalidState("x"), http.StatusConflict},
		{ErrUnavailable("x"), http.StatusServiceUnavailable},
		{ErrInternal("x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		// ラップされていても拾える
		{fmt.Errorf("wrapped: %w", ErrNotFound("x")), http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.err))
	}
}

func TestFromDB(t *testing.T) {
	assert.NoError(t, FromDB(nil, "m"))

	// APIErrorはそのまま通す
	err := FromDB(ErrConflict("dup"), "m")
	var api *APIError
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, CodeConflict, api.Code)

	// タイムアウト・接続断はUNAVAILABLE
	for _, cause := range []error{context.DeadlineExceeded, context.Canceled, driver.ErrBadConn} {
		err := FromDB(cause, "m")
		assert.ErrorAs(t, err, &api)
		assert.Equal(t, CodeUnavailable, api.Code)
	}

	// ロック待ちタイムアウト・デッドロックもUNAVAILABLE（FOR UPDATE競合時の主経路）
	for _, num := range []uint16{1205, 1213} {
		err := FromDB(&mysql.MySQLError{Number: num, Message: "lock"}, "m")
		assert.ErrorAs(t, err, &api)
		assert.Equal(t, CodeUnavailable, api.Code)
	}

	// UNIQUE違反(1062)はストア側でCONFLICTに寄せる対象なのでここではINTERNAL扱いのまま
	err = FromDB(&mysql.MySQLError{Number: 1062, Message: "dup"}, "m")
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInternal, api.Code)

	// その他はINTERNAL
	err = FromDB(errors.New("boom"), "m")
	assert.ErrorAs(t, err, &api)
	assert.Equal(t, CodeInternal, api.Code)
}

func TestBodyFromErr(t *testing.T) {
	b := BodyFromErr(ErrNotFound("sheet 1 not found"))
	assert.Equal(t, CodeNotFound, b.Error.Code)
	assert.Equal(t, "sheet 1 not found", b.Error.Message)

	b = BodyFromErr(errors.New("boom"))
	assert.Equal(t, CodeInternal, b.Error.Code)
}
