package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/alata/internal/backup"
	"github.com/roach88/alata/internal/catalog"
	"github.com/roach88/alata/internal/sales"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]int{"pruned": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]interface{}{"pruned": 3.0}, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error("INSUFFICIENT_STOCK", "sale rejected", map[string]string{"code": "PRD002"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", resp.Error.Code)
	assert.Equal(t, "sale rejected", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error("EMPTY_CART", "sale rejected", "no lines"))
			assert.Contains(t, buf.String(), "Error [EMPTY_CART]: sale rejected")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: no lines")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

type fakeView struct{ lines []string }

func (v fakeView) WriteText(w io.Writer) error {
	_, err := fmt.Fprintln(w, strings.Join(v.lines, "|"))
	return err
}

func TestOutputFormatter_TextRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(fakeView{lines: []string{"a", "b"}}))
	assert.Equal(t, "a|b\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success("Deleted PRD001"))
	assert.Equal(t, "Deleted PRD001\n", buf.String())
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: true}

	formatter.VerboseLog("cart: %d lines", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "cart: 2 lines\n", diag.String())

	formatter.Verbose = false
	formatter.VerboseLog("hidden")
	assert.Equal(t, "cart: 2 lines\n", diag.String())
}

func TestRupiah(t *testing.T) {
	s := Rupiah(65000)
	assert.True(t, strings.HasPrefix(s, "Rp"), "got %q", s)
	assert.Contains(t, s, "65")
	assert.NotEqual(t, Rupiah(65000), Rupiah(70000))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "inner: cause", WrapExitError(ExitCommandError, "inner", errors.New("cause")).Error())
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{&sales.StockUpdateError{TransactionID: "t1"}, "STOCK_UPDATE_FAILED"},
		{fmt.Errorf("checkout: %w", sales.ErrInsufficientCash), "INSUFFICIENT_CASH"},
		{&sales.StockError{Code: "PRD002", Requested: 2, Available: 1}, "INSUFFICIENT_STOCK"},
		{sales.ErrEmptyCart, "EMPTY_CART"},
		{fmt.Errorf("create: %w", catalog.ErrProductExists), "PRODUCT_EXISTS"},
		{fmt.Errorf("import: %w", backup.ErrInvalidImportFormat), "INVALID_IMPORT_FORMAT"},
		{fmt.Errorf("import: %w", backup.ErrImportSchemaMismatch), "IMPORT_SCHEMA_MISMATCH"},
		{&backup.PartialImportError{Failed: "products", Err: errors.New("disk full")}, "PARTIAL_IMPORT"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, errorCode(tt.err))
		})
	}
}
