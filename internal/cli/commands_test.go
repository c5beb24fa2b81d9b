package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is a config file pointing at a private database and legacy store.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "alata.yaml")
	content := fmt.Sprintf("database:\n  path: %s\nlegacy:\n  path: %s\nlog_level: error\n",
		filepath.Join(dir, "alata.db"), filepath.Join(dir, "legacy.json"))
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))
	return &testEnv{dir: dir, config: cfg}
}

// run executes the root command and returns stdout, stderr, and the error.
func (e *testEnv) run(ctx context.Context, args ...string) (string, string, error) {
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", e.config, "--env-file", ""}, args...))
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// runJSON executes a command with --format json and decodes the response.
func (e *testEnv) runJSON(t *testing.T, args ...string) (CLIResponse, error) {
	t.Helper()
	out, _, err := e.run(context.Background(), append([]string{"--format", "json"}, args...)...)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func dataMap(t *testing.T, resp CLIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func dataList(t *testing.T, resp CLIResponse) []interface{} {
	t.Helper()
	l, ok := resp.Data.([]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return l
}

func TestProducts_ListSeedCatalog(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON(t, "products", "list")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, dataList(t, resp), 13)

	out, _, err := env.run(context.Background(), "products", "list", "--search", "eceng")
	require.NoError(t, err)
	assert.Contains(t, out, "PRD002")
	assert.Contains(t, out, "PRD003")
	assert.NotContains(t, out, "PRD001")
}

func TestProducts_ListByStatus(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON(t, "products", "list", "--status", "low")
	require.NoError(t, err)
	for _, item := range dataList(t, resp) {
		p := item.(map[string]interface{})
		assert.LessOrEqual(t, p["stockLevel"].(float64), 5.0, "product %v", p["code"])
		assert.Greater(t, p["stockLevel"].(float64), 0.0, "product %v", p["code"])
	}
}

func TestProducts_CreateGetUpdate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.runJSON(t, "products", "create", "PRD014",
		"--name", "Benang Katun", "--category", "Bahan Produksi", "--unit", "gulung",
		"--stock", "10", "--price", "18000")
	require.NoError(t, err)

	resp, err := env.runJSON(t, "products", "get", "PRD014")
	require.NoError(t, err)
	got := dataList(t, resp)
	require.Len(t, got, 1)
	assert.Equal(t, "Benang Katun", got[0].(map[string]interface{})["name"])

	_, err = env.runJSON(t, "products", "update", "PRD014", "--stock", "4")
	require.NoError(t, err)

	resp, err = env.runJSON(t, "products", "logs", "PRD014")
	require.NoError(t, err)
	logs := dataList(t, resp)
	require.Len(t, logs, 1)
	entry := logs[0].(map[string]interface{})
	assert.Equal(t, "adjustment", entry["type"])
	assert.Equal(t, 10.0, entry["oldStock"])
	assert.Equal(t, 4.0, entry["newStock"])
}

func TestProducts_CreateRejected(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON(t, "products", "create", "prd001",
		"--name", "Dup", "--category", "Bahan Produksi", "--unit", "unit", "--price", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PRODUCT_EXISTS", resp.Error.Code)

	resp, err = env.runJSON(t, "products", "create", "NEW01",
		"--name", "New", "--category", "Nowhere", "--unit", "unit", "--price", "1000")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNKNOWN_CATEGORY", resp.Error.Code)
}

func TestProducts_StockAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.run(ctx, "products", "stock", "PRD001", "20", "--notes", "Restock")
	require.NoError(t, err)

	resp, err := env.runJSON(t, "products", "get", "PRD001")
	require.NoError(t, err)
	assert.Equal(t, 20.0, dataList(t, resp)[0].(map[string]interface{})["stockLevel"])

	out, _, err := env.run(ctx, "products", "delete", "PRD001")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted PRD001")

	_, _, err = env.run(ctx, "products", "get", "PRD001")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSale_Cash(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON(t, "sale", "--item", "PRD003=2", "--item", "PRD012", "--cash", "100000", "--customer", "Ani")
	require.NoError(t, err)
	tx := dataMap(t, resp)
	assert.Equal(t, "001", tx["receiptNo"])
	assert.Equal(t, 70000.0, tx["total"])
	assert.Equal(t, 30000.0, tx["change"])
	assert.Equal(t, "Ani", tx["customer"])
	assert.Equal(t, "Alata Craft", tx["shopName"])

	resp, err = env.runJSON(t, "products", "get", "PRD003")
	require.NoError(t, err)
	assert.Equal(t, 48.0, dataList(t, resp)[0].(map[string]interface{})["stockLevel"])

	// The counter survives the process.
	resp, err = env.runJSON(t, "sale", "--item", "PRD012=1", "--payment", "transfer")
	require.NoError(t, err)
	assert.Equal(t, "002", dataMap(t, resp)["receiptNo"])
}

func TestSale_TextReceipt(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(context.Background(), "sale", "-i", "PRD012=2", "--cash", "50000")
	require.NoError(t, err)
	assert.Contains(t, out, "Receipt 001")
	assert.Contains(t, out, "Sarung Tangan Kerja")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "Rp")
}

func TestSale_Backdated(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON(t, "sale", "--item", "PRD012=1", "--payment", "transfer", "--date", "2024-12-01")
	require.NoError(t, err)
	tx := dataMap(t, resp)
	assert.Equal(t, "2024-12-01T00:00:00Z", tx["date"])

	resp, err = env.runJSON(t, "report", "day", "2024-12-01")
	require.NoError(t, err)
	day := dataMap(t, resp)
	assert.Len(t, day["transactions"], 1)
	assert.Equal(t, 0.0, day["stats"].(map[string]interface{})["totalTransactions"])

	// The sale counts toward the day it was entered.
	resp, err = env.runJSON(t, "report", "day")
	require.NoError(t, err)
	assert.Equal(t, 1.0, dataMap(t, resp)["stats"].(map[string]interface{})["totalTransactions"])

	_, _, err = env.run(context.Background(), "sale", "--item", "PRD012=1", "--cash", "50000", "--date", "01/12/2024")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSale_Rejected(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"empty cart", []string{"sale", "--cash", "1000"}, "EMPTY_CART"},
		{"insufficient stock", []string{"sale", "--item", "PRD002=2", "--cash", "99999999"}, "INSUFFICIENT_STOCK"},
		{"insufficient cash", []string{"sale", "--item", "PRD001=1", "--cash", "100"}, "INSUFFICIENT_CASH"},
		{"unknown payment", []string{"sale", "--item", "PRD001=1", "--payment", "card"}, "UNKNOWN_PAYMENT_METHOD"},
		{"unknown product", []string{"sale", "--item", "NOPE=1", "--cash", "1000"}, "PRODUCT_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			resp, err := env.runJSON(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)

			history, err := env.runJSON(t, "report", "history")
			require.NoError(t, err)
			assert.Empty(t, dataList(t, history))
		})
	}
}

func TestParseItems(t *testing.T) {
	lines, err := parseItems([]string{"PRD001=3", " PRD002 ", "PRD003=0"})
	require.NoError(t, err)
	assert.Equal(t, []cartLine{{"PRD001", 3}, {"PRD002", 1}, {"PRD003", 0}}, lines)

	_, err = parseItems([]string{"PRD001=x"})
	assert.Error(t, err)
	_, err = parseItems([]string{"=2"})
	assert.Error(t, err)
}

func TestReport_AfterSales(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.runJSON(t, "sale", "--item", "PRD003=2", "--cash", "50000")
	require.NoError(t, err)
	resp, err := env.runJSON(t, "sale", "--item", "PRD012=2", "--item", "PRD003=1", "--payment", "transfer")
	require.NoError(t, err)
	id := dataMap(t, resp)["id"].(string)

	resp, err = env.runJSON(t, "report", "day")
	require.NoError(t, err)
	day := dataMap(t, resp)
	stats := day["stats"].(map[string]interface{})
	assert.Equal(t, 2.0, stats["totalTransactions"])
	assert.Equal(t, 5.0, stats["totalItems"])
	assert.Equal(t, 115000.0, stats["totalSales"])
	assert.Len(t, day["transactions"], 2)

	resp, err = env.runJSON(t, "report", "top", "--limit", "1")
	require.NoError(t, err)
	top := dataList(t, resp)
	require.Len(t, top, 1)
	assert.Equal(t, "PRD003", top[0].(map[string]interface{})["code"])

	resp, err = env.runJSON(t, "report", "history", "-n", "1")
	require.NoError(t, err)
	history := dataList(t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, id, history[0].(map[string]interface{})["id"])

	resp, err = env.runJSON(t, "report", "transaction", id)
	require.NoError(t, err)
	assert.Equal(t, "002", dataMap(t, resp)["receiptNo"])

	today := stats["date"].(string)
	resp, err = env.runJSON(t, "report", "range", today, today)
	require.NoError(t, err)
	report := dataMap(t, resp)
	assert.Equal(t, 2.0, report["totalTransactions"])
	methods := report["paymentMethods"].(map[string]interface{})
	assert.Equal(t, 1.0, methods["cash"].(map[string]interface{})["count"])
	assert.Equal(t, 1.0, methods["transfer"].(map[string]interface{})["count"])

	resp, err = env.runJSON(t, "report", "stats", today, today)
	require.NoError(t, err)
	assert.Len(t, dataList(t, resp), 1)
}

func TestReport_InvalidRange(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(context.Background(), "report", "range", "2025-02-01", "2025-01-01")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = env.run(context.Background(), "report", "day", "not-a-day")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCustomers_AddAndFind(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON(t, "customers", "add", "Ani", "--phone", "08123", "--email", "ani@example.com")
	require.NoError(t, err)
	saved := dataList(t, resp)[0].(map[string]interface{})
	assert.Equal(t, 1.0, saved["id"])

	resp, err = env.runJSON(t, "customers", "find", "--phone", "08123")
	require.NoError(t, err)
	assert.Equal(t, "Ani", dataList(t, resp)[0].(map[string]interface{})["name"])

	_, _, err = env.run(context.Background(), "customers", "find", "--email", "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = env.run(context.Background(), "customers", "find")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCategories_Add(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.runJSON(t, "categories", "add", "Aksesoris")
	require.NoError(t, err)

	resp, err := env.runJSON(t, "categories", "add", "aksesoris")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CATEGORY_EXISTS", resp.Error.Code)

	out, _, err := env.run(context.Background(), "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Aksesoris")
}

func TestSettings_SetGetList(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.runJSON(t, "settings", "set", "receiptFooter", "Terima kasih")
	require.NoError(t, err)
	_, err = env.runJSON(t, "settings", "set", "transactionCounter", "42")
	require.NoError(t, err)

	resp, err := env.runJSON(t, "settings", "get", "receiptFooter")
	require.NoError(t, err)
	setting := dataList(t, resp)[0].(map[string]interface{})
	assert.Equal(t, "Terima kasih", setting["value"])

	resp, err = env.runJSON(t, "sale", "--item", "PRD012=1", "--cash", "20000")
	require.NoError(t, err)
	assert.Equal(t, "042", dataMap(t, resp)["receiptNo"])

	_, _, err = env.run(context.Background(), "settings", "get", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSettingValue(t *testing.T) {
	assert.JSONEq(t, `42`, string(settingValue("42")))
	assert.JSONEq(t, `{"a":1}`, string(settingValue(`{"a":1}`)))
	assert.JSONEq(t, `"Alata Craft"`, string(settingValue("Alata Craft")))
}

func TestExportImport_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.runJSON(t, "sale", "--item", "PRD003=1", "--cash", "25000")
	require.NoError(t, err)

	backupFile := filepath.Join(env.dir, "backup.json")
	_, _, err = env.run(ctx, "export", "--out", backupFile)
	require.NoError(t, err)

	_, _, err = env.run(ctx, "products", "delete", "PRD003")
	require.NoError(t, err)

	resp, err := env.runJSON(t, "import", backupFile)
	require.NoError(t, err)
	counts := dataMap(t, resp)["counts"].(map[string]interface{})
	assert.Equal(t, 13.0, counts["products"])
	assert.Equal(t, 1.0, counts["transactions"])

	resp, err = env.runJSON(t, "products", "get", "PRD003")
	require.NoError(t, err)
	assert.Equal(t, 49.0, dataList(t, resp)[0].(map[string]interface{})["stockLevel"])
}

func TestExport_Stdout(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(context.Background(), "export")
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "products")
	assert.Contains(t, doc, "settings")
}

func TestImport_InvalidDocument(t *testing.T) {
	env := newTestEnv(t)
	bad := filepath.Join(env.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"products": "nope"}`), 0o644))

	resp, err := env.runJSON(t, "import", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "IMPORT_SCHEMA_MISMATCH", resp.Error.Code)

	notJSON := filepath.Join(env.dir, "notes.txt")
	require.NoError(t, os.WriteFile(notJSON, []byte("kode,nama\nPRD001,Pensil"), 0o644))
	resp, err = env.runJSON(t, "import", notJSON)
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_IMPORT_FORMAT", resp.Error.Code)

	resp, err = env.runJSON(t, "products", "list")
	require.NoError(t, err)
	assert.Len(t, dataList(t, resp), 13)

	_, _, err = env.run(context.Background(), "import", filepath.Join(env.dir, "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrate_FromLegacyFile(t *testing.T) {
	env := newTestEnv(t)
	src := filepath.Join(env.dir, "old.json")
	legacyDoc := map[string]string{
		"alataCraftProducts": `[{"kode":"OLD01","nama":"Keranjang","kategori":"Bahan Baku","satuan":"unit","volume":3,"harga":15000}]`,
		"alataCraftCounter":  "7",
	}
	data, err := json.Marshal(legacyDoc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	resp, err := env.runJSON(t, "migrate", "--legacy", src)
	require.NoError(t, err)
	summary := dataMap(t, resp)
	assert.Equal(t, false, summary["skipped"])
	assert.Equal(t, 1.0, summary["products"])
	assert.Equal(t, true, summary["counter"])

	resp, err = env.runJSON(t, "products", "get", "OLD01")
	require.NoError(t, err)
	assert.Equal(t, "Keranjang", dataList(t, resp)[0].(map[string]interface{})["name"])
}

func TestOptimizeAndInfo(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.runJSON(t, "optimize")
	require.NoError(t, err)
	assert.Equal(t, 0.0, dataMap(t, resp)["pruned"])

	resp, err = env.runJSON(t, "info")
	require.NoError(t, err)
	info := dataMap(t, resp)
	assert.Equal(t, "database", info["mode"])
	counts := info["counts"].(map[string]interface{})
	assert.Equal(t, 13.0, counts["products"])

	out, _, err := env.run(context.Background(), "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Mode:")
	assert.Contains(t, out, "products")
}
